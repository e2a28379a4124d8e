// Package genai is a minimal client for the Gemini generateContent REST
// endpoint. It supports plain-text and schema-constrained JSON output and
// inline file parts.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-pro"
	DefaultTimeout = 30 * time.Second
)

var (
	ErrEmptyResponse = errors.New("genai: response contained no text")
	ErrBlocked       = errors.New("genai: prompt was blocked")
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Timeout bounds a single generateContent call.
	Timeout time.Duration
}

// Part is one piece of prompt content: either text or inline file data.
type Part struct {
	Text     string
	MimeType string
	Data     []byte
}

func Text(s string) Part { return Part{Text: s} }

func File(mimeType string, data []byte) Part { return Part{MimeType: mimeType, Data: data} }

// Request is a single-turn generation request.
type Request struct {
	Parts []Part
	// Schema constrains the response to JSON matching an OpenAPI-style
	// schema. Nil requests free text.
	Schema          map[string]interface{}
	MaxOutputTokens int
}

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("genai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger = logger.With().Str("component", "genai").Str("model", cfg.Model).Logger()

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "genai",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// A caller that went away says nothing about the upstream's health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			},
		}),
		logger: logger,
	}, nil
}

type wireInlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	ResponseMimeType string                 `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]interface{} `json:"responseSchema,omitempty"`
	MaxOutputTokens  int                    `json:"maxOutputTokens,omitempty"`
}

type wireRequest struct {
	Contents         []wireContent         `json:"contents"`
	GenerationConfig *wireGenerationConfig `json:"generationConfig,omitempty"`
}

type wireResponse struct {
	Candidates []struct {
		Content      wireContent `json:"content"`
		FinishReason string      `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func buildWireRequest(req Request) wireRequest {
	parts := make([]wirePart, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Data != nil {
			parts = append(parts, wirePart{InlineData: &wireInlineData{MimeType: p.MimeType, Data: p.Data}})
			continue
		}
		parts = append(parts, wirePart{Text: p.Text})
	}

	wr := wireRequest{Contents: []wireContent{{Role: "user", Parts: parts}}}
	if req.Schema != nil || req.MaxOutputTokens > 0 {
		gc := &wireGenerationConfig{MaxOutputTokens: req.MaxOutputTokens}
		if req.Schema != nil {
			gc.ResponseMimeType = "application/json"
			gc.ResponseSchema = req.Schema
		}
		wr.GenerationConfig = gc
	}
	return wr
}

// Generate returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// GenerateJSON decodes the response text into out. Markdown code fences
// around the JSON are tolerated.
func (c *Client) GenerateJSON(ctx context.Context, req Request, out interface{}) error {
	text, err := c.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(StripCodeFence(text)), out); err != nil {
		return fmt.Errorf("genai: decode structured response: %w", err)
	}
	return nil
}

func (c *Client) generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(buildWireRequest(req))
	if err != nil {
		return "", fmt.Errorf("genai: encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("genai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("genai: request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().Int("status", resp.StatusCode).Dur("latency", time.Since(start)).Msg("generateContent")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("genai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var envelope wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	if envelope.PromptFeedback != nil && envelope.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, envelope.PromptFeedback.BlockReason)
	}

	var sb strings.Builder
	if len(envelope.Candidates) > 0 {
		for _, p := range envelope.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

// StripCodeFence removes a surrounding ```json or ``` fence.
func StripCodeFence(s string) string {
	cleaned := strings.TrimSpace(s)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}
