package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiPolicy  = "default-src 'none'; frame-ancestors 'none'"
	feedPolicy = "default-src 'none'; connect-src 'self'; frame-ancestors 'none'"
)

// SecurityConfig tunes SecurityHeaders.
type SecurityConfig struct {
	// HSTS enables Strict-Transport-Security. Leave it off when the server
	// is reached over plain HTTP, as in local development.
	HSTS bool
	// FrameAncestors are the frontend origins allowed to embed report
	// documents served inline.
	FrameAncestors []string
}

// SecurityHeaders sets response headers for a JSON API that also serves
// report PDFs and the live call feed.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	documentPolicy := "default-src 'none'; sandbox; frame-ancestors 'self'"
	if len(cfg.FrameAncestors) > 0 {
		documentPolicy += " " + strings.Join(cfg.FrameAncestors, " ")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// Call records and reports carry patient data.
			h.Set("Cache-Control", "no-store")
			if cfg.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			path := c.Request().URL.Path
			switch {
			case isReportDocument(path):
				// Viewed inline by the frontend, so framing is limited by
				// frame-ancestors rather than denied outright.
				h.Set("Content-Security-Policy", documentPolicy)
			case path == "/api/ws":
				h.Set("Content-Security-Policy", feedPolicy)
				h.Set("X-Frame-Options", "DENY")
			default:
				h.Set("Content-Security-Policy", apiPolicy)
				h.Set("X-Frame-Options", "DENY")
			}

			return next(c)
		}
	}
}

// isReportDocument matches GET /api/reports/:id/file.
func isReportDocument(path string) bool {
	rest, ok := strings.CutPrefix(path, "/api/reports/")
	if !ok {
		return false
	}
	id, ok := strings.CutSuffix(rest, "/file")
	return ok && id != "" && !strings.Contains(id, "/")
}
