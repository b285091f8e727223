package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

// CorporateActionStore is an in-memory implementation of storage.CorporateActionStore.
type CorporateActionStore struct {
	mu   sync.RWMutex
	keys map[string]struct{}
	data []*domain.CorporateAction
}

// NewCorporateActionStore creates a new in-memory corporate action store.
func NewCorporateActionStore() *CorporateActionStore {
	return &CorporateActionStore{keys: make(map[string]struct{})}
}

func (s *CorporateActionStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}

// Insert stores a copy of a. Returns ErrDuplicateKey if key exists.
func (s *CorporateActionStore) Insert(_ context.Context, key string, a *domain.CorporateAction) (string, error) {
	if a == nil || key == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[key]; exists {
		return "", storage.ErrDuplicateKey
	}

	actionCopy := *a
	if actionCopy.ID == "" {
		actionCopy.ID = uuid.NewString()
	}
	s.keys[key] = struct{}{}
	s.data = append(s.data, &actionCopy)
	return actionCopy.ID, nil
}

// GetAll returns up to limit actions ordered by ex-date DESC.
func (s *CorporateActionStore) GetAll(_ context.Context, limit int) ([]*domain.CorporateAction, error) {
	result := s.collect(func(*domain.CorporateAction) bool { return true })
	sort.SliceStable(result, func(i, j int) bool { return result[i].ExDate > result[j].ExDate })
	return truncate(result, limit), nil
}

func (s *CorporateActionStore) GetByScripCode(_ context.Context, scripCode string) ([]*domain.CorporateAction, error) {
	result := s.collect(func(a *domain.CorporateAction) bool { return a.ScripCode == scripCode })
	sort.SliceStable(result, func(i, j int) bool { return result[i].ExDate > result[j].ExDate })
	return result, nil
}

func (s *CorporateActionStore) GetByPurpose(_ context.Context, purpose string) ([]*domain.CorporateAction, error) {
	result := s.collect(func(a *domain.CorporateAction) bool { return a.Purpose == purpose })
	sort.SliceStable(result, func(i, j int) bool { return result[i].ExDate > result[j].ExDate })
	return result, nil
}

// GetUpcoming returns actions with ExDate >= now, soonest first.
func (s *CorporateActionStore) GetUpcoming(_ context.Context, now int64, limit int) ([]*domain.CorporateAction, error) {
	result := s.collect(func(a *domain.CorporateAction) bool { return a.ExDate >= now })
	sort.SliceStable(result, func(i, j int) bool { return result[i].ExDate < result[j].ExDate })
	return truncate(result, limit), nil
}

func (s *CorporateActionStore) collect(match func(*domain.CorporateAction) bool) []*domain.CorporateAction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CorporateAction
	for _, a := range s.data {
		if match(a) {
			actionCopy := *a
			result = append(result, &actionCopy)
		}
	}
	return result
}

func truncate[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

var _ storage.CorporateActionStore = (*CorporateActionStore)(nil)
