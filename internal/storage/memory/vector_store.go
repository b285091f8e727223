package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

// VectorStore is an in-memory implementation of storage.VectorStore.
// Query is a brute-force cosine scan over one namespace.
type VectorStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]domain.Vector // namespace -> id -> vector
	upserts    int
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{namespaces: make(map[string]map[string]domain.Vector)}
}

// Upsert writes vectors into namespace, replacing vectors with the same id.
func (s *VectorStore) Upsert(_ context.Context, namespace string, vectors []domain.Vector) error {
	if namespace == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]domain.Vector)
		s.namespaces[namespace] = ns
	}
	for _, v := range vectors {
		values := make([]float32, len(v.Values))
		copy(values, v.Values)
		v.Values = values
		ns[v.ID] = v
	}
	s.upserts++
	return nil
}

// DescribeStats returns per-namespace record counts.
func (s *VectorStore) DescribeStats(_ context.Context) (*domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.IndexStats{Namespaces: make(map[string]domain.NamespaceStats, len(s.namespaces))}
	for name, ns := range s.namespaces {
		stats.Namespaces[name] = domain.NamespaceStats{RecordCount: int64(len(ns))}
		stats.TotalRecordCount += int64(len(ns))
	}
	return stats, nil
}

// Query returns up to topK vectors in namespace ordered by cosine similarity DESC.
func (s *VectorStore) Query(_ context.Context, namespace string, vector []float32, topK int) ([]domain.VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.namespaces[namespace]
	matches := make([]domain.VectorMatch, 0, len(ns))
	for id, v := range ns {
		matches = append(matches, domain.VectorMatch{
			ID:       id,
			Score:    cosineSimilarity(vector, v.Values),
			Metadata: v.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	return truncate(matches, topK), nil
}

// UpsertCalls returns the number of Upsert calls made.
func (s *VectorStore) UpsertCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ storage.VectorStore = (*VectorStore)(nil)
