package imaging

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/imaging/:modality", h.Analyze)
}

// Analyze accepts a multipart "file" for /imaging/xray or /imaging/ctscan.
func (h *Handler) Analyze(c echo.Context) error {
	m, ok := ParseModality(c.Param("modality"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown imaging modality")
	}
	if !h.svc.Enabled(m) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, string(m)+" analysis is not configured")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
	}
	if fh.Size > MaxImageSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image exceeds 10MB limit")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, MaxImageSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}

	res, err := h.svc.Analyze(c.Request().Context(), m, &Image{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
