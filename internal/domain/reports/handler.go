package reports

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/internal/platform/blobstore"
	"github.com/medirespond/medirespond/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports")
	g.GET("", h.List)
	g.GET("/all", h.ListAll, auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	g.POST("/upload", h.Upload)
	g.POST("/extract", h.Extract)
	g.POST("/:id/summary", h.GenerateSummary)
	g.GET("/:id/file", h.Open)
	g.DELETE("/:id", h.Delete)
}

func isStaff(c echo.Context) bool {
	return auth.HasRole(c.Request().Context(), auth.RoleDoctor)
}

func requester(c echo.Context) (uuid.UUID, error) {
	uid, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return uid, nil
}

func reportID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	uid, err := requester(c)
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), uid, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reports": items})
}

func (h *Handler) ListAll(c echo.Context) error {
	items, err := h.svc.ListAll(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Upload(c echo.Context) error {
	uid, err := requester(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file, patient name, and report type are required")
	}
	if fh.Size > blobstore.MaxFileSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds 50MB limit")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer f.Close()

	rp, err := h.svc.Upload(c.Request().Context(), &UploadRequest{
		PatientName: c.FormValue("patientName"),
		ReportType:  c.FormValue("reportType"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Content:     f,
	}, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "Report uploaded successfully",
		"report":  rp,
	})
}

func (h *Handler) GenerateSummary(c echo.Context) error {
	uid, err := requester(c)
	if err != nil {
		return err
	}
	id, err := reportID(c)
	if err != nil {
		return err
	}
	rp, summary, err := h.svc.GenerateSummary(c.Request().Context(), id, uid, isStaff(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Summary generated successfully",
		"report":  rp,
		"summary": summary,
	})
}

// Open streams the report (?type=report) or its summary (?type=summary).
// ?download=true serves it as an attachment instead of inline.
func (h *Handler) Open(c echo.Context) error {
	uid, err := requester(c)
	if err != nil {
		return err
	}
	id, err := reportID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.Open(c.Request().Context(), id, c.QueryParam("type"), uid, isStaff(c))
	if err != nil {
		return err
	}
	defer f.Content.Close()

	disposition := "inline"
	if c.QueryParam("download") == "true" {
		disposition = fmt.Sprintf("attachment; filename=%q", f.Name)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	return c.Stream(http.StatusOK, f.ContentType, f.Content)
}

func (h *Handler) Delete(c echo.Context) error {
	uid, err := requester(c)
	if err != nil {
		return err
	}
	id, err := reportID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Report deleted successfully"})
}

type extractRequest struct {
	Base64 string `json:"base64"`
}

// Extract summarizes a document sent inline as a data URL. Nothing is stored.
func (h *Handler) Extract(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	mimeType, data, err := ParseDataURL(req.Base64)
	if err != nil {
		return err
	}
	text, err := h.svc.ExtractSummary(c.Request().Context(), mimeType, data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"text": text})
}
