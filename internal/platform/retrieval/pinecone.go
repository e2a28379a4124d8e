package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const pineconeAPIVersion = "2024-07"

// PineconeIndex queries a single Pinecone index namespace over its data
// plane host.
type PineconeIndex struct {
	apiKey     string
	host       string
	namespace  string
	httpClient *http.Client
}

func NewPineconeIndex(apiKey, host, namespace string) *PineconeIndex {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &PineconeIndex{
		apiKey:     apiKey,
		host:       strings.TrimRight(host, "/"),
		namespace:  namespace,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type pineconeQuery struct {
	Namespace       string    `json:"namespace,omitempty"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type pineconeResponse struct {
	Matches []struct {
		ID       string                 `json:"id"`
		Score    float64                `json:"score"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"matches"`
}

func (p *PineconeIndex) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	body, err := json.Marshal(pineconeQuery{
		Namespace:       p.namespace,
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("X-Pinecone-API-Version", pineconeAPIVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinecone query failed with status %d", resp.StatusCode)
	}

	var pr pineconeResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode pinecone response: %w", err)
	}

	matches := make([]Match, 0, len(pr.Matches))
	for _, m := range pr.Matches {
		chunk, _ := m.Metadata["chunk"].(string)
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Chunk: chunk})
	}
	return matches, nil
}
