package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_DefaultsToUnbounded(t *testing.T) {
	p := FromContext(newContext("/"))

	if !p.Unbounded() {
		t.Errorf("expected unbounded params, got limit %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(newContext("/?limit=50&offset=10"))

	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(newContext("/?limit=100000"))

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_NegativeValues(t *testing.T) {
	p := FromContext(newContext("/?limit=-3&offset=-5"))

	if !p.Unbounded() {
		t.Errorf("expected negative limit to mean unbounded, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0 for negative input, got %d", p.Offset)
	}
}

func TestSQL(t *testing.T) {
	tests := []struct {
		p    Params
		want string
	}{
		{Params{}, ""},
		{Params{Offset: 5}, "OFFSET 5"},
		{Params{Limit: 20, Offset: 40}, "LIMIT 20 OFFSET 40"},
	}
	for _, tt := range tests {
		if got := tt.p.SQL(); got != tt.want {
			t.Errorf("%+v.SQL() = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	if got := Apply(items, Params{}); len(got) != 5 {
		t.Errorf("expected all 5 items unbounded, got %v", got)
	}
	if got := Apply(items, Params{Limit: 2, Offset: 1}); len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("expected [2 3], got %v", got)
	}
	if got := Apply(items, Params{Limit: 10, Offset: 3}); len(got) != 2 {
		t.Errorf("expected tail of 2 items, got %v", got)
	}
	if got := Apply(items, Params{Offset: 9}); len(got) != 0 {
		t.Errorf("expected empty page past the end, got %v", got)
	}
}
