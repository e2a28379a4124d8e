package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/platform/blobstore"
	"github.com/medirespond/medirespond/internal/platform/genai"
	"github.com/medirespond/medirespond/pkg/apperr"
	"github.com/medirespond/medirespond/pkg/pagination"
)

// Generator is the part of genai.Client used for summaries.
type Generator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
	GenerateJSON(ctx context.Context, req genai.Request, out interface{}) error
}

// Service manages uploaded reports and their AI summaries.
type Service struct {
	reports ReportRepository
	store   blobstore.Store
	gen     Generator
	logger  zerolog.Logger
}

// NewService wires the report service. gen may be nil, in which case
// summary and analysis requests fail with an AssessmentError.
func NewService(reports ReportRepository, store blobstore.Store, gen Generator, logger zerolog.Logger) *Service {
	return &Service{
		reports: reports,
		store:   store,
		gen:     gen,
		logger:  logger.With().Str("component", "reports").Logger(),
	}
}

// Upload stores the file and records the report. A failed insert removes
// the stored blob again.
func (s *Service) Upload(ctx context.Context, req *UploadRequest, userID uuid.UUID) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	rp := &Report{
		ID:          uuid.New(),
		UserID:      userID,
		PatientName: strings.TrimSpace(req.PatientName),
		ReportType:  strings.TrimSpace(req.ReportType),
		FileName:    req.FileName,
		ContentType: req.ContentType,
	}
	if rp.FileName == "" {
		rp.FileName = "report.pdf"
	}
	rp.StorageKey = storageKey(userID, rp.ID)

	obj, err := s.store.Put(ctx, rp.StorageKey, rp.ContentType, req.Content, req.Size)
	if errors.Is(err, blobstore.ErrFileTooLarge) {
		return nil, apperr.Validation("file exceeds the %d MB limit", blobstore.MaxFileSize>>20)
	}
	if err != nil {
		return nil, apperr.Persistence("store report file", err)
	}
	rp.Size = obj.Size

	if err := s.reports.Create(ctx, rp); err != nil {
		if derr := s.store.Delete(ctx, rp.StorageKey); derr != nil {
			s.logger.Warn().Err(derr).Str("key", rp.StorageKey).Msg("failed to remove orphaned report file")
		}
		return nil, apperr.Wrap(err, "insert report")
	}

	s.logger.Info().Str("report_id", rp.ID.String()).Int64("size", rp.Size).Msg("report uploaded")
	return rp, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]*Report, error) {
	items, err := s.reports.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, apperr.Wrap(err, "list reports")
	}
	return items, nil
}

func (s *Service) ListAll(ctx context.Context, page pagination.Params) ([]*Report, error) {
	items, err := s.reports.ListAll(ctx, page)
	if err != nil {
		return nil, apperr.Wrap(err, "list all reports")
	}
	return items, nil
}

// get loads a report visible to the requester: its owner or staff.
func (s *Service) get(ctx context.Context, id, requesterID uuid.UUID, staff bool) (*Report, error) {
	rp, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "get report")
	}
	if !staff && rp.UserID != requesterID {
		return nil, apperr.NotFound("report not found")
	}
	return rp, nil
}

// GenerateSummary asks the generator for a structured summary of the stored
// PDF and keeps the formatted text on the report.
func (s *Service) GenerateSummary(ctx context.Context, id, requesterID uuid.UUID, staff bool) (*Report, string, error) {
	rp, err := s.get(ctx, id, requesterID, staff)
	if err != nil {
		return nil, "", err
	}
	if s.gen == nil {
		return nil, "", apperr.Assessment("generate report summary", errors.New("generator not configured"))
	}
	pdf, err := s.readBlob(ctx, rp.StorageKey)
	if err != nil {
		return nil, "", err
	}

	var out struct {
		Summary Summary `json:"summary"`
	}
	err = s.gen.GenerateJSON(ctx, genai.Request{
		Parts: []genai.Part{
			genai.Text(fmt.Sprintf(summaryPrompt, rp.PatientName, rp.ReportType)),
			genai.File(ContentTypePDF, pdf),
		},
		Schema:          summarySchema,
		MaxOutputTokens: summaryMaxTokens,
	}, &out)
	if err != nil {
		return nil, "", apperr.Assessment("generate report summary", err)
	}

	text := out.Summary.Format()
	if err := s.reports.SetSummary(ctx, rp.ID, text); err != nil {
		return nil, "", apperr.Wrap(err, "store report summary")
	}
	rp.HasSummary = true
	rp.Summary = text
	return rp, text, nil
}

// Open returns the report PDF or its summary. Any other kind is a
// ValidationError; a report without a summary yields NotFound.
func (s *Service) Open(ctx context.Context, id uuid.UUID, kind string, requesterID uuid.UUID, staff bool) (*File, error) {
	switch FileKind(kind) {
	case FileReport, FileSummary:
	default:
		return nil, apperr.Validation("invalid file type: %q", kind)
	}
	rp, err := s.get(ctx, id, requesterID, staff)
	if err != nil {
		return nil, err
	}

	if FileKind(kind) == FileSummary {
		if !rp.HasSummary {
			return nil, apperr.NotFound("summary not found")
		}
		return &File{
			Name:        rp.PatientName + "_Summary.txt",
			ContentType: "text/plain; charset=utf-8",
			Content:     io.NopCloser(strings.NewReader(rp.Summary)),
		}, nil
	}

	rc, _, err := s.store.Get(ctx, rp.StorageKey)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, apperr.NotFound("report data not found")
	}
	if err != nil {
		return nil, apperr.Persistence("open report file", err)
	}
	return &File{Name: rp.FileName, ContentType: rp.ContentType, Content: rc}, nil
}

// Delete removes the owner's report: the stored file first, then the row.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	rp, err := s.get(ctx, id, userID, false)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, rp.StorageKey); err != nil && !errors.Is(err, blobstore.ErrBlobNotFound) {
		return apperr.Persistence("delete report file", err)
	}
	if err := s.reports.Delete(ctx, rp.ID); err != nil {
		return apperr.Wrap(err, "delete report")
	}
	s.logger.Info().Str("report_id", rp.ID.String()).Msg("report deleted")
	return nil
}

// AnalyzeReport returns a short responder-oriented summary of pdf. Nothing
// is stored.
func (s *Service) AnalyzeReport(ctx context.Context, pdf []byte) (string, error) {
	return s.describe(ctx, "analyze report", analysisPrompt, ContentTypePDF, pdf, analysisMaxTokens)
}

// ExtractSummary returns a de-identified 100-200 word summary of a PDF or
// image document. Nothing is stored.
func (s *Service) ExtractSummary(ctx context.Context, mimeType string, data []byte) (string, error) {
	return s.describe(ctx, "extract report", extractPrompt, mimeType, data, extractMaxTokens)
}

func (s *Service) describe(ctx context.Context, op, prompt, mimeType string, data []byte, maxTokens int) (string, error) {
	if s.gen == nil {
		return "", apperr.Assessment(op, errors.New("generator not configured"))
	}
	text, err := s.gen.Generate(ctx, genai.Request{
		Parts:           []genai.Part{genai.Text(prompt), genai.File(mimeType, data)},
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", apperr.Assessment(op, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Assessment(op, errors.New("empty response"))
	}
	return text, nil
}

func (s *Service) readBlob(ctx context.Context, key string) ([]byte, error) {
	rc, _, err := s.store.Get(ctx, key)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, apperr.NotFound("report data not found")
	}
	if err != nil {
		return nil, apperr.Persistence("open report file", err)
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, apperr.Persistence("read report file", err)
	}
	return buf.Bytes(), nil
}
