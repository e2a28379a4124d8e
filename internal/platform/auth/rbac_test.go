package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runRequireRole(t *testing.T, role string, allowed ...string) (int, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithUser(req.Context(), "u", role))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := RequireRole(allowed...)(okHandler)(c)
	return rec.Code, err
}

func TestRequireRole_Allowed(t *testing.T) {
	code, err := runRequireRole(t, RoleDoctor, RoleDoctor)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
}

func TestRequireRole_AdminPassesAll(t *testing.T) {
	if _, err := runRequireRole(t, RoleAdmin, RoleDoctor); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	_, err := runRequireRole(t, RolePatient, RoleDoctor, RoleAdmin)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_NoRoles(t *testing.T) {
	_, err := runRequireRole(t, "", RoleDoctor)
	expectStatus(t, err, http.StatusForbidden)
}
