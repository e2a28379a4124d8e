package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/medirespond/medirespond/pkg/pagination"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ListByUser and ListByDoctor order by date, earliest first.
	ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, page pagination.Params) ([]*Appointment, error)
	// UpdateStatus moves the appointment only if it is still in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
}
