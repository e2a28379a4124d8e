package reports

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medirespond/medirespond/internal/platform/blobstore"
	"github.com/medirespond/medirespond/pkg/apperr"
)

const ContentTypePDF = "application/pdf"

// MaxExtractSize bounds a document sent for one-shot extraction.
const MaxExtractSize = 10 << 20

var extractContentTypes = map[string]bool{
	ContentTypePDF: true,
	"image/png":    true,
	"image/jpeg":   true,
}

// ParseDataURL decodes a "data:<mime>;base64,<payload>" document and checks
// it can be sent for extraction.
func ParseDataURL(s string) (string, []byte, error) {
	if s == "" {
		return "", nil, apperr.Validation("missing base64 file data")
	}
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return "", nil, apperr.Validation("invalid base64 format")
	}
	mimeType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	if !extractContentTypes[mimeType] {
		return "", nil, apperr.Validation("unsupported document type %q", mimeType)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxExtractSize+2 {
		return "", nil, apperr.Validation("document exceeds 10MB limit")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, apperr.Validation("invalid base64 format")
	}
	if len(data) == 0 {
		return "", nil, apperr.Validation("missing base64 file data")
	}
	if len(data) > MaxExtractSize {
		return "", nil, apperr.Validation("document exceeds 10MB limit")
	}
	return mimeType, data, nil
}

// Report is an uploaded medical report. The PDF lives in the blob store
// under StorageKey; the generated summary is kept on the row.
type Report struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	PatientName string    `json:"patientName"`
	ReportType  string    `json:"reportType"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StorageKey  string    `json:"-"`
	HasSummary  bool      `json:"hasSummary"`
	Summary     string    `json:"-"`
	CreatedAt   time.Time `json:"date"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UploadRequest carries a report file and its metadata.
type UploadRequest struct {
	PatientName string
	ReportType  string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

func (r *UploadRequest) Validate() error {
	if r.Content == nil || strings.TrimSpace(r.PatientName) == "" || strings.TrimSpace(r.ReportType) == "" {
		return apperr.Validation("file, patient name, and report type are required")
	}
	if r.ContentType != ContentTypePDF {
		return apperr.Validation("only PDF files are allowed")
	}
	if r.Size > blobstore.MaxFileSize {
		return apperr.Validation("file exceeds the %d MB limit", blobstore.MaxFileSize>>20)
	}
	return nil
}

// FileKind selects what Open returns.
type FileKind string

const (
	FileReport  FileKind = "report"
	FileSummary FileKind = "summary"
)

// File is an open report or summary ready to stream to a client.
type File struct {
	Name        string
	ContentType string
	Content     io.ReadCloser
}

// Summary is the structured output requested from the generator.
type Summary struct {
	KeyFindings      []string `json:"keyFindings"`
	Diagnosis        string   `json:"diagnosis"`
	Recommendations  []string `json:"recommendations"`
	ImportantDetails string   `json:"importantDetails"`
}

// Format renders the summary as the plain-text document served to clients.
func (s *Summary) Format() string {
	var b strings.Builder
	b.WriteString("MEDICAL REPORT SUMMARY\n=====================\n\nKEY FINDINGS:\n")
	b.WriteString(bullets(s.KeyFindings))
	fmt.Fprintf(&b, "\n\nDIAGNOSIS:\n%s\n\nRECOMMENDATIONS:\n", s.Diagnosis)
	b.WriteString(bullets(s.Recommendations))
	fmt.Fprintf(&b, "\n\nIMPORTANT DETAILS:\n%s", s.ImportantDetails)
	return strings.TrimSpace(b.String())
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "- " + it
	}
	return strings.Join(lines, "\n")
}

func storageKey(userID, reportID uuid.UUID) string {
	return fmt.Sprintf("reports/%s/%s.pdf", userID, reportID)
}
