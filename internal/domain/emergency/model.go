package emergency

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medirespond/medirespond/internal/domain/triage"
	"github.com/medirespond/medirespond/pkg/apperr"
)

// Source records which creation path produced a call's priority.
type Source string

const (
	SourceAssessed Source = "assessed"
	SourceDirect   Source = "direct"
)

// Vitals are device or self-reported readings. Every field is optional.
type Vitals struct {
	DeviceType    string   `json:"deviceType,omitempty"`
	HeartRate     *float64 `json:"heartRate,omitempty"`
	BloodPressure string   `json:"bloodPressure,omitempty"`
	SpO2          *float64 `json:"spO2,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// Call maps to the emergency_calls table. TriagePriority is set once at
// creation. AssignedDoctor is non-nil exactly when IsAssigned is true.
type Call struct {
	ID                   uuid.UUID       `json:"id"`
	PatientID            *uuid.UUID      `json:"patientId,omitempty"`
	Description          string          `json:"description"`
	Vitals               Vitals          `json:"vitals"`
	Severity             triage.Severity `json:"severity"`
	MedicalReportSummary string          `json:"medicalReportSummary"`
	TriagePriority       triage.Priority `json:"triagePriority"`
	AIResponse           string          `json:"aiResponse"`
	Source               Source          `json:"source"`
	IsAssigned           bool            `json:"isAssigned"`
	AssignedDoctor       *uuid.UUID      `json:"assignedDoctor,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// AssessedCallRequest is the body of the patient-context path. Severity
// fields arrive flattened.
type AssessedCallRequest struct {
	Description          string               `json:"description"`
	Vitals               Vitals               `json:"vitals"`
	MedicalReportSummary string               `json:"medicalReportSummary"`
	PainLevel            int                  `json:"painLevel"`
	BreathingDifficulty  int                  `json:"breathingDifficulty"`
	DistressLevel        triage.DistressLevel `json:"distressLevel"`
	Consciousness        triage.Consciousness `json:"consciousness"`
}

func (r *AssessedCallRequest) Severity() triage.Severity {
	return triage.Severity{
		PainLevel:           r.PainLevel,
		BreathingDifficulty: r.BreathingDifficulty,
		DistressLevel:       r.DistressLevel,
		Consciousness:       r.Consciousness,
	}
}

func (r *AssessedCallRequest) Validate() error {
	return validateCall(r.Description, r.Severity())
}

// DirectCallRequest is the body of the direct path, classified locally.
type DirectCallRequest struct {
	Description          string          `json:"description"`
	Vitals               Vitals          `json:"vitals"`
	MedicalReportSummary string          `json:"medicalReportSummary"`
	Severity             triage.Severity `json:"severity"`
}

func (r *DirectCallRequest) Validate() error {
	return validateCall(r.Description, r.Severity)
}

func validateCall(description string, sev triage.Severity) error {
	if strings.TrimSpace(description) == "" {
		return apperr.Validation("description is required")
	}
	return sev.Validate()
}

// Assessment is the structured reply of the assessment model. It is
// untrusted until TriagePriority has been parsed.
type Assessment struct {
	Summary         string `json:"summary"`
	TriagePriority  string `json:"triagePriority"`
	Recommendations string `json:"recommendations"`
}

// AssessedCallResult is returned by the patient-context path.
type AssessedCallResult struct {
	Call       *Call       `json:"emergencyCall"`
	Assessment *Assessment `json:"aiResponse"`
}

// DirectCallResult is returned by the direct path.
type DirectCallResult struct {
	Success         bool            `json:"success"`
	Call            *Call           `json:"emergencyCall"`
	AIResponse      string          `json:"aiResponse"`
	TriagePriority  triage.Priority `json:"triagePriority"`
	Recommendations string          `json:"recommendations"`
}

func marshalAssessment(a *Assessment) string {
	b, _ := json.Marshal(a)
	return string(b)
}
