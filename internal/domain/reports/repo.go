package reports

import (
	"context"

	"github.com/google/uuid"

	"github.com/medirespond/medirespond/pkg/pagination"
)

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)
	// ListByUser and ListAll return newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]*Report, error)
	ListAll(ctx context.Context, page pagination.Params) ([]*Report, error)
	SetSummary(ctx context.Context, id uuid.UUID, summary string) error
	Delete(ctx context.Context, id uuid.UUID) error
}
