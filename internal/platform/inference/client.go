// Package inference calls an external image classification service. The
// service takes the image as the multipart field "file" and answers with
// {"predictions": {"<label>": <probability>, ...}}.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const DefaultTimeout = 60 * time.Second

// ErrNoPredictions is returned when the service answers without scores.
var ErrNoPredictions = errors.New("inference: response contained no predictions")

type Config struct {
	// Name identifies the service in logs and breaker state changes.
	Name    string
	URL     string
	Timeout time.Duration
}

type Client struct {
	name       string
	url        string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("inference url is required")
	}
	if cfg.Name == "" {
		cfg.Name = "inference"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger = logger.With().Str("component", "inference").Str("service", cfg.Name).Logger()

	return &Client{
		name:       cfg.Name,
		url:        cfg.URL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
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

type response struct {
	Predictions map[string]float64 `json:"predictions"`
}

// Classify posts image and returns the per-label probabilities.
func (c *Client) Classify(ctx context.Context, fileName, contentType string, image []byte) (map[string]float64, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.classify(ctx, fileName, contentType, image)
	})
	if err != nil {
		return nil, err
	}
	return out.(map[string]float64), nil
}

func (c *Client) classify(ctx context.Context, fileName, contentType string, image []byte) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, formType, err := encodeFile(fileName, contentType, image)
	if err != nil {
		return nil, fmt.Errorf("inference: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("inference: build request: %w", err)
	}
	req.Header.Set("Content-Type", formType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("inference: %s returned status %d: %s", c.name, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("inference: decode response: %w", err)
	}
	if len(r.Predictions) == 0 {
		return nil, ErrNoPredictions
	}
	c.logger.Debug().Dur("latency", time.Since(start)).Int("labels", len(r.Predictions)).Msg("classification received")
	return r.Predictions, nil
}

// encodeFile builds the multipart body and returns it with its content type.
func encodeFile(fileName, contentType string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
