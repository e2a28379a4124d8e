// Package retrieval looks up clinical reference passages for a query by
// embedding it and searching a vector index.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

const (
	DefaultTopK = 5
	NoMatches   = "<nomatches>"
)

// Match is one passage returned by the index.
type Match struct {
	ID    string
	Score float64
	Chunk string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// Retriever embeds queries and formats the nearest passages as prompt
// context.
type Retriever struct {
	embedder Embedder
	index    Index
	topK     int
	logger   zerolog.Logger
}

func NewRetriever(embedder Embedder, index Index, topK int, logger zerolog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   logger.With().Str("component", "retrieval").Logger(),
	}
}

// Retrieve returns the formatted passages for query, or NoMatches when the
// index has nothing close.
func (r *Retriever) Retrieve(ctx context.Context, query string) (string, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	matches, err := r.index.Query(ctx, vector, r.topK)
	if err != nil {
		return "", fmt.Errorf("query index: %w", err)
	}
	r.logger.Debug().Int("matches", len(matches)).Msg("retrieved passages")
	return FormatMatches(matches), nil
}

// FormatMatches renders matches as numbered clinical findings.
func FormatMatches(matches []Match) string {
	if len(matches) == 0 {
		return NoMatches
	}
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("\nClinical Finding %d: \n%s", i+1, m.Chunk)
	}
	return strings.Join(parts, ". \n\n")
}
