package emergency

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medirespond/medirespond/internal/platform/auth"
	"github.com/medirespond/medirespond/pkg/pagination"
)

// MaxAnalysisFileSize caps PDFs sent for one-shot analysis.
const MaxAnalysisFileSize = 10 << 20

// ReportAnalyzer summarizes a PDF for responders without storing it.
type ReportAnalyzer interface {
	AnalyzeReport(ctx context.Context, pdf []byte) (string, error)
}

type Handler struct {
	svc      *Service
	analyzer ReportAnalyzer
}

func NewHandler(svc *Service, analyzer ReportAnalyzer) *Handler {
	return &Handler{svc: svc, analyzer: analyzer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/emergency")
	g.POST("", h.CreateAssessedCall)
	g.POST("/create", h.CreateDirectCall)
	g.POST("/report-analysis", h.AnalyzeReport)

	staff := auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor)
	g.GET("", h.ListCalls, staff)
	g.GET("/:id", h.GetCall, staff)
}

func (h *Handler) CreateAssessedCall(c echo.Context) error {
	uid, err := auth.UserUUIDFromContext(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	var req AssessedCallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.CreateAssessedCall(c.Request().Context(), &req, uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) CreateDirectCall(c echo.Context) error {
	var req DirectCallRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.svc.CreateDirectCall(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetCall(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	call, err := h.svc.GetCall(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, call)
}

func (h *Handler) ListCalls(c echo.Context) error {
	calls, err := h.svc.ListCalls(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, calls)
}

func (h *Handler) AnalyzeReport(c echo.Context) error {
	if h.analyzer == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "report analysis is not configured")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
	}
	if fh.Size > MaxAnalysisFileSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
	}
	if fh.Header.Get(echo.HeaderContentType) != "application/pdf" {
		return echo.NewHTTPError(http.StatusBadRequest, "only PDF files are allowed")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxAnalysisFileSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	if len(data) > MaxAnalysisFileSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
	}

	summary, err := h.analyzer.AnalyzeReport(c.Request().Context(), data)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"summary": summary})
}
