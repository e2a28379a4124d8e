package scheduling

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/domain/emergency"
	"github.com/medirespond/medirespond/internal/domain/identity"
	"github.com/medirespond/medirespond/internal/platform/db"
	"github.com/medirespond/medirespond/internal/platform/events"
	"github.com/medirespond/medirespond/pkg/apperr"
	"github.com/medirespond/medirespond/pkg/pagination"
)

// CallAssigner is the part of the emergency call lifecycle the scheduler
// drives. *emergency.Service satisfies it.
type CallAssigner interface {
	GetCall(ctx context.Context, id uuid.UUID) (*emergency.Call, error)
	MarkAssigned(ctx context.Context, callID, doctorID uuid.UUID) error
}

// DoctorLookup resolves user accounts. *identity.Service satisfies it.
type DoctorLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Service assigns doctors to emergency calls by booking appointments.
type Service struct {
	appointments AppointmentRepository
	calls        CallAssigner
	doctors      DoctorLookup
	tx           db.Transactor
	publisher    events.Publisher
	logger       zerolog.Logger
}

func NewService(appointments AppointmentRepository, calls CallAssigner, doctors DoctorLookup, tx db.Transactor, publisher events.Publisher, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		appointments: appointments,
		calls:        calls,
		doctors:      doctors,
		tx:           tx,
		publisher:    publisher,
		logger:       logger.With().Str("component", "scheduling").Logger(),
	}
}

// Assign books an appointment for the call and marks the call assigned to
// the doctor. Both writes commit together or not at all; a call that is
// already assigned yields a ConflictError.
func (s *Service) Assign(ctx context.Context, req *AssignRequest, requesterID uuid.UUID) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	var appt *Appointment
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		call, err := s.calls.GetCall(ctx, req.EmergencyCallID)
		if err != nil {
			return err
		}
		if call.IsAssigned {
			return apperr.Conflict("emergency call %s is already assigned", call.ID)
		}

		a := &Appointment{
			UserID:          requesterID,
			EmergencyCallID: call.ID,
			DoctorID:        req.DoctorID,
			Date:            req.Date,
			Time:            req.Time,
			Facility:        req.Facility,
			Department:      req.Department,
			Reason:          call.Description,
			Status:          StatusScheduled,
		}
		if call.PatientID != nil {
			a.UserID = *call.PatientID
		}
		if err := s.appointments.Create(ctx, a); err != nil {
			return err
		}
		if err := s.calls.MarkAssigned(ctx, call.ID, req.DoctorID); err != nil {
			return err
		}
		appt = a
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "assign doctor")
	}

	s.logger.Info().
		Str("call_id", appt.EmergencyCallID.String()).
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", appt.DoctorID.String()).
		Msg("doctor assigned")

	evt := events.New(events.TypeCallAssigned, events.TopicEmergency, appt.EmergencyCallID.String(), appt)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("call_id", appt.EmergencyCallID.String()).Msg("failed to publish call assigned event")
	}
	return appt, nil
}

func (s *Service) requireDoctor(ctx context.Context, id uuid.UUID) error {
	u, err := s.doctors.GetUser(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.NotFound("doctor %s not found", id)
	}
	if err != nil {
		return apperr.Wrap(err, "get doctor")
	}
	if !u.IsDoctor() {
		return apperr.NotFound("doctor %s not found", id)
	}
	return nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]*Appointment, error) {
	items, err := s.appointments.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, apperr.Wrap(err, "list user appointments")
	}
	return items, nil
}

func (s *Service) ListForDoctor(ctx context.Context, doctorID uuid.UUID, page pagination.Params) ([]*Appointment, error) {
	items, err := s.appointments.ListByDoctor(ctx, doctorID, page)
	if err != nil {
		return nil, apperr.Wrap(err, "list doctor appointments")
	}
	return items, nil
}

// UpdateStatus moves an appointment forward. Doctors may only update their
// own appointments; admins may update any.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID, isAdmin bool) (*Appointment, error) {
	to, ok := ParseStatus(status)
	if !ok {
		return nil, apperr.Validation("invalid status: %q", status)
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get appointment")
	}
	if !isAdmin && a.DoctorID != actorID {
		return nil, apperr.Forbidden("appointment belongs to another doctor")
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.Validation("cannot change status from %s to %s", a.Status, to)
	}
	ok, err = s.appointments.UpdateStatus(ctx, id, a.Status, to)
	if err != nil {
		return nil, apperr.Wrap(err, "update appointment status")
	}
	if !ok {
		return nil, apperr.Conflict("appointment %s was modified concurrently", id)
	}
	a.Status = to
	return a, nil
}
