package retrieval

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
)

const (
	DefaultEmbeddingModel = "mixedbread-ai/mxbai-embed-large-v1"
	defaultHFBaseURL      = "https://api-inference.huggingface.co"
)

// HFEmbedder calls the Hugging Face inference feature-extraction pipeline.
type HFEmbedder struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewHFEmbedder(apiKey, model, baseURL string) *HFEmbedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	return &HFEmbedder{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (e *HFEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]interface{}{"inputs": text})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("huggingface request failed with status %d", resp.StatusCode)
	}
	return decodeEmbedding(raw)
}

// decodeEmbedding accepts a pooled vector or per-token vectors, which are
// mean-pooled.
func decodeEmbedding(raw []byte) ([]float32, error) {
	var pooled []float32
	if err := json.Unmarshal(raw, &pooled); err == nil {
		if len(pooled) == 0 {
			return nil, errors.New("empty embedding")
		}
		return pooled, nil
	}

	var tokens [][]float32
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decode embedding: %w", err)
	}
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, errors.New("empty embedding")
	}
	out := make([]float32, len(tokens[0]))
	for _, tok := range tokens {
		if len(tok) != len(out) {
			return nil, errors.New("ragged token embeddings")
		}
		for i, v := range tok {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float32(len(tokens))
	}
	return out, nil
}
