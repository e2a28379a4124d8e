package emergency

import (
	"context"

	"github.com/google/uuid"

	"github.com/medirespond/medirespond/pkg/pagination"
)

type CallRepository interface {
	Create(ctx context.Context, c *Call) error
	GetByID(ctx context.Context, id uuid.UUID) (*Call, error)
	// List returns calls newest first. Zero page params mean every call.
	List(ctx context.Context, page pagination.Params) ([]*Call, error)
	// MarkAssigned flips an unassigned call to assigned. It reports false,
	// without error, when the call is missing or already assigned.
	MarkAssigned(ctx context.Context, id, doctorID uuid.UUID) (bool, error)
}
