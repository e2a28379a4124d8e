package scheduling

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medirespond/medirespond/pkg/apperr"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusConfirmed Status = "Confirmed"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// transitions lists the forward moves allowed from each status.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether an appointment may move from one status to
// another. Completed and Cancelled are terminal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func ParseStatus(v string) (Status, bool) {
	switch s := Status(v); s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return s, true
	}
	return "", false
}

// DateLayout is the wire and storage format of Appointment.Date.
const DateLayout = "2006-01-02"

// Appointment maps to the appointments table. Reason is copied from the
// emergency call description at assignment time.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"userId"`
	EmergencyCallID uuid.UUID `json:"emergencyCallId"`
	DoctorID        uuid.UUID `json:"doctorId"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Facility        string    `json:"facility"`
	Department      string    `json:"department"`
	Reason          string    `json:"reason"`
	Status          Status    `json:"status"`
	// Display names filled by list queries.
	DoctorName  string    `json:"doctorName,omitempty"`
	PatientName string    `json:"patientName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type AssignRequest struct {
	EmergencyCallID uuid.UUID `json:"emergencyCallId"`
	DoctorID        uuid.UUID `json:"doctorId"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Facility        string    `json:"facility"`
	Department      string    `json:"department"`
}

func (r *AssignRequest) Validate() error {
	if r.EmergencyCallID == uuid.Nil {
		return apperr.Validation("emergencyCallId is required")
	}
	if r.DoctorID == uuid.Nil {
		return apperr.Validation("doctorId is required")
	}
	if r.Date == "" {
		return apperr.Validation("date is required")
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return apperr.Validation("date must be formatted as YYYY-MM-DD")
	}
	if strings.TrimSpace(r.Time) == "" {
		return apperr.Validation("time is required")
	}
	if strings.TrimSpace(r.Facility) == "" {
		return apperr.Validation("facility is required")
	}
	if strings.TrimSpace(r.Department) == "" {
		return apperr.Validation("department is required")
	}
	return nil
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}
