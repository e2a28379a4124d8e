package medichat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medirespond/medirespond/internal/platform/genai"
	"github.com/medirespond/medirespond/internal/platform/retrieval"
	"github.com/medirespond/medirespond/pkg/apperr"
)

type stubRetriever struct {
	out   string
	err   error
	query string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string) (string, error) {
	s.query = query
	return s.out, s.err
}

type stubGenerator struct {
	text string
	err  error
	got  genai.Request
}

func (s *stubGenerator) Generate(_ context.Context, req genai.Request) (string, error) {
	s.got = req
	return s.text, s.err
}

func conversation(q string) []Message {
	return []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "Hi, how can I help?"},
		{Role: RoleUser, Content: q},
	}
}

func TestChat(t *testing.T) {
	r := &stubRetriever{out: "Statins reduce LDL."}
	g := &stubGenerator{text: "Your LDL is elevated."}
	svc := NewService(r, g, zerolog.Nop())

	res, err := svc.Chat(context.Background(), conversation("What does my LDL mean"), "LDL 190 mg/dL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "Your LDL is elevated." || res.Role != RoleAssistant || res.Retrievals != "Statins reduce LDL." {
		t.Errorf("unexpected response: %+v", res)
	}
	if r.query != SearchQuery("LDL 190 mg/dL", "What does my LDL mean") {
		t.Errorf("unexpected search query %q", r.query)
	}
	prompt := g.got.Parts[0].Text
	for _, want := range []string{"LDL 190 mg/dL", "What does my LDL mean?", "Statins reduce LDL.", "**Answer:**"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if g.got.MaxOutputTokens != 2048 {
		t.Errorf("expected 2048 max tokens, got %d", g.got.MaxOutputTokens)
	}
}

func TestChat_RetrievalFailureDegrades(t *testing.T) {
	r := &stubRetriever{err: errors.New("pinecone unavailable")}
	g := &stubGenerator{text: "answer"}
	svc := NewService(r, g, zerolog.Nop())

	res, err := svc.Chat(context.Background(), conversation("q"), "report")
	if err != nil {
		t.Fatalf("expected chat to succeed, got %v", err)
	}
	if res.Retrievals != "" {
		t.Errorf("expected empty retrievals, got %q", res.Retrievals)
	}
}

func TestChat_NoMatchesPassedThrough(t *testing.T) {
	g := &stubGenerator{text: "answer"}
	svc := NewService(&stubRetriever{out: retrieval.NoMatches}, g, zerolog.Nop())

	res, err := svc.Chat(context.Background(), conversation("q"), "report")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Retrievals != retrieval.NoMatches {
		t.Errorf("expected %q, got %q", retrieval.NoMatches, res.Retrievals)
	}
}

func TestChat_GeneratorFailure(t *testing.T) {
	svc := NewService(nil, &stubGenerator{err: errors.New("503")}, zerolog.Nop())
	_, err := svc.Chat(context.Background(), conversation("q"), "")
	if !apperr.Is(err, apperr.KindAssessment) {
		t.Fatalf("expected assessment error, got %v", err)
	}

	svc = NewService(nil, nil, zerolog.Nop())
	if _, err := svc.Chat(context.Background(), conversation("q"), ""); !apperr.Is(err, apperr.KindAssessment) {
		t.Errorf("expected assessment error without generator, got %v", err)
	}
}

func TestChat_RequiresQuestion(t *testing.T) {
	svc := NewService(nil, &stubGenerator{}, zerolog.Nop())
	for _, msgs := range [][]Message{nil, {{Role: RoleUser, Content: "  "}}} {
		if _, err := svc.Chat(context.Background(), msgs, "r"); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error for %v, got %v", msgs, err)
		}
	}
}

func TestHandler_Chat(t *testing.T) {
	h := NewHandler(NewService(&stubRetriever{out: "p"}, &stubGenerator{text: "a"}, zerolog.Nop()))
	e := echo.New()
	body := `{"messages":[{"role":"user","content":"Is my ECG normal"}],"data":{"reportData":"ECG: sinus rhythm"}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Chat(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if res.Text != "a" || res.Role != "assistant" {
		t.Errorf("unexpected response: %+v", res)
	}
}
