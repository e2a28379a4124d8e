package emergency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/domain/identity"
	"github.com/medirespond/medirespond/internal/domain/triage"
	"github.com/medirespond/medirespond/internal/platform/events"
	"github.com/medirespond/medirespond/pkg/apperr"
	"github.com/medirespond/medirespond/pkg/pagination"
)

const DefaultAssessmentTimeout = 30 * time.Second

var errAssessorUnavailable = errors.New("no assessment model configured")

// PatientLookup resolves the user filing a call.
type PatientLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Config struct {
	// AssessmentTimeout bounds one call to the assessment model.
	AssessmentTimeout time.Duration
}

type Service struct {
	calls     CallRepository
	patients  PatientLookup
	assessor  Assessor
	publisher events.Publisher
	timeout   time.Duration
	logger    zerolog.Logger
}

// NewService wires the lifecycle manager. A nil assessor disables the
// assessed path; a nil publisher drops events.
func NewService(calls CallRepository, patients PatientLookup, assessor Assessor, publisher events.Publisher, cfg Config, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if cfg.AssessmentTimeout <= 0 {
		cfg.AssessmentTimeout = DefaultAssessmentTimeout
	}
	return &Service{
		calls:     calls,
		patients:  patients,
		assessor:  assessor,
		publisher: publisher,
		timeout:   cfg.AssessmentTimeout,
		logger:    logger,
	}
}

// CreateAssessedCall files a call on behalf of userID and takes its priority
// from the assessment model. Any model failure aborts the call; nothing is
// stored and the local classifier is not used in its place.
func (s *Service) CreateAssessedCall(ctx context.Context, req *AssessedCallRequest, userID uuid.UUID) (*AssessedCallResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	patient, err := s.patients.GetUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "resolve patient")
	}

	assessment, err := s.assess(ctx, BuildAssessmentPrompt(patient, req))
	if err != nil {
		return nil, err
	}
	priority, ok := triage.ParsePriority(assessment.TriagePriority)
	if !ok {
		return nil, apperr.Assessment("assessment returned an unknown triage priority",
			fmt.Errorf("triagePriority %q", assessment.TriagePriority))
	}

	sev := req.Severity()
	if local := triage.Classify(sev); local != priority {
		s.logger.Warn().
			Str("user_id", userID.String()).
			Str("assessed", string(priority)).
			Str("classified", string(local)).
			Msg("assessed priority differs from local classification")
	}

	call := &Call{
		PatientID:            &userID,
		Description:          req.Description,
		Vitals:               req.Vitals,
		Severity:             sev,
		MedicalReportSummary: req.MedicalReportSummary,
		TriagePriority:       priority,
		AIResponse:           marshalAssessment(assessment),
		Source:               SourceAssessed,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, apperr.Wrap(err, "create emergency call")
	}
	s.publishCreated(ctx, call)
	return &AssessedCallResult{Call: call, Assessment: assessment}, nil
}

func (s *Service) assess(ctx context.Context, prompt string) (*Assessment, error) {
	if s.assessor == nil {
		return nil, apperr.Assessment("assessment unavailable", errAssessorUnavailable)
	}
	actx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	a, err := s.assessor.Assess(actx, prompt)
	if err != nil {
		if apperr.Is(err, apperr.KindAssessment) {
			return nil, err
		}
		return nil, apperr.Assessment("assessment request failed", err)
	}
	if a == nil {
		return nil, apperr.Assessment("assessment request failed", errors.New("empty assessment"))
	}
	s.logger.Debug().Dur("latency", time.Since(start)).Str("priority", a.TriagePriority).Msg("assessment received")
	return a, nil
}

// CreateDirectCall classifies the caller-supplied severity locally. No user
// is resolved.
func (s *Service) CreateDirectCall(ctx context.Context, req *DirectCallRequest) (*DirectCallResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	priority := triage.Classify(req.Severity)
	call := &Call{
		Description:          req.Description,
		Vitals:               req.Vitals,
		Severity:             req.Severity,
		MedicalReportSummary: req.MedicalReportSummary,
		TriagePriority:       priority,
		AIResponse:           Narrative(req.Description, req.Vitals),
		Source:               SourceDirect,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return nil, apperr.Wrap(err, "create emergency call")
	}
	s.publishCreated(ctx, call)
	return &DirectCallResult{
		Success:         true,
		Call:            call,
		AIResponse:      call.AIResponse,
		TriagePriority:  priority,
		Recommendations: triage.Recommendations(priority),
	}, nil
}

func (s *Service) GetCall(ctx context.Context, id uuid.UUID) (*Call, error) {
	c, err := s.calls.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get emergency call")
	}
	return c, nil
}

// ListCalls returns calls newest first, every call unless page is bounded.
func (s *Service) ListCalls(ctx context.Context, page pagination.Params) ([]*Call, error) {
	calls, err := s.calls.List(ctx, page)
	if err != nil {
		return nil, apperr.Wrap(err, "list emergency calls")
	}
	return calls, nil
}

// MarkAssigned records doctorID on an unassigned call. A call that is
// already assigned yields a ConflictError. Inside a transaction the update
// joins it.
func (s *Service) MarkAssigned(ctx context.Context, callID, doctorID uuid.UUID) error {
	ok, err := s.calls.MarkAssigned(ctx, callID, doctorID)
	if err != nil {
		return apperr.Wrap(err, "mark emergency call assigned")
	}
	if ok {
		return nil
	}
	if _, err := s.calls.GetByID(ctx, callID); err != nil {
		return apperr.Wrap(err, "get emergency call")
	}
	return apperr.Conflict("emergency call %s is already assigned", callID)
}

func (s *Service) publishCreated(ctx context.Context, c *Call) {
	evt := events.New(events.TypeCallCreated, events.TopicEmergency, c.ID.String(), c)
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("call_id", c.ID.String()).Msg("failed to publish call created event")
	}
}
