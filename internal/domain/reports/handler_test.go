package reports

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/pkg/apperr"
)

func multipartUpload(t *testing.T, fields map[string]string, contentType, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="report.pdf"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte(content))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func withUser(req *http.Request, userID, role string) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), userID, role))
}

func TestHandler_Upload(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()

	req := multipartUpload(t, map[string]string{"patientName": "Jane Doe", "reportType": "MRI"}, ContentTypePDF, samplePDF)
	rec := httptest.NewRecorder()
	c := e.NewContext(withUser(req, f.owner.String(), auth.RolePatient), rec)

	if err := h.Upload(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var res struct {
		Report Report `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if res.Report.PatientName != "Jane Doe" || res.Report.FileName != "report.pdf" {
		t.Errorf("unexpected report: %+v", res.Report)
	}
	if strings.Contains(rec.Body.String(), "storageKey") {
		t.Error("storage key must not be exposed")
	}
}

func TestHandler_UploadRejectsNonPDF(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()

	req := multipartUpload(t, map[string]string{"patientName": "Jane Doe", "reportType": "MRI"}, "image/png", "png")
	c := e.NewContext(withUser(req, f.owner.String(), auth.RolePatient), httptest.NewRecorder())

	if err := h.Upload(c); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	f.upload(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(withUser(httptest.NewRequest(http.MethodGet, "/", nil), f.owner.String(), auth.RolePatient), rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res struct {
		Reports []Report `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(res.Reports) != 1 {
		t.Errorf("expected 1 report, got %d", len(res.Reports))
	}
}

func TestHandler_OpenReport(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	rp := f.upload(t)

	req := httptest.NewRequest(http.MethodGet, "/?type=report&download=true", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(withUser(req, f.owner.String(), auth.RolePatient), rec)
	c.SetParamNames("id")
	c.SetParamValues(rp.ID.String())

	if err := h.Open(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Body.String() != samplePDF {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != ContentTypePDF {
		t.Errorf("expected PDF content type, got %q", got)
	}
	if got := rec.Header().Get(echo.HeaderContentDisposition); !strings.HasPrefix(got, "attachment") {
		t.Errorf("expected attachment disposition, got %q", got)
	}
}

func TestHandler_Delete(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()
	rp := f.upload(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(withUser(httptest.NewRequest(http.MethodDelete, "/", nil), f.owner.String(), auth.RolePatient), rec)
	c.SetParamNames("id")
	c.SetParamValues(rp.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Extract(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()

	body := `{"base64":"data:application/pdf;base64,` + base64.StdEncoding.EncodeToString([]byte(samplePDF)) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(withUser(req, f.owner.String(), auth.RolePatient), rec)

	if err := h.Extract(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if res["text"] != "Patient has hyperlipidemia." {
		t.Errorf("unexpected text %q", res["text"])
	}
	if string(f.gen.got.Parts[1].Data) != samplePDF {
		t.Error("expected decoded document to reach the generator")
	}
	if len(f.repo.reports) != 0 || f.store.Len() != 0 {
		t.Error("extraction must not store anything")
	}
}

func TestHandler_ExtractInvalidFormat(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"base64":"not-a-data-url"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	if err := h.Extract(c); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
