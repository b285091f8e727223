package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"insider-pipeline/internal/domain"
)

// DefaultTopK is the number of matches returned per search.
const DefaultTopK = 10

var (
	// ErrEmptyQuery is returned for blank questions.
	ErrEmptyQuery = errors.New("query is required")
	// ErrNoData is returned when no namespace in range holds records.
	ErrNoData = errors.New("no data found in any recent namespace")
)

// Embedder turns a question into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorQuerier runs similarity queries within a namespace.
type VectorQuerier interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.VectorMatch, error)
}

// SearchResult holds the matches of one search.
type SearchResult struct {
	Query     string               `json:"query"`
	Namespace string               `json:"namespace"`
	Matches   []domain.VectorMatch `json:"matches"`
}

// Searcher embeds questions and queries the resolved namespace.
type Searcher struct {
	embedder Embedder
	resolver *Resolver
	vectors  VectorQuerier
	topK     int
}

// NewSearcher creates a searcher. A non-positive topK uses DefaultTopK.
func NewSearcher(embedder Embedder, resolver *Resolver, vectors VectorQuerier, topK int) *Searcher {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Searcher{embedder: embedder, resolver: resolver, vectors: vectors, topK: topK}
}

// Search returns the top matches for question. date optionally pins the
// namespace (DD/MM/YYYY); otherwise the most recent one with data is used.
func (s *Searcher) Search(ctx context.Context, question, date string) (*SearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ns, ok, err := s.resolver.ResolveNamespace(ctx, date)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoData
	}

	matches, err := s.vectors.Query(ctx, ns, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("query namespace %s: %w", ns, err)
	}
	return &SearchResult{Query: question, Namespace: ns, Matches: matches}, nil
}
