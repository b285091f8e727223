package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

// BulkDealStore is an in-memory implementation of storage.BulkDealStore.
type BulkDealStore struct {
	mu   sync.RWMutex
	keys map[string]struct{}
	data []*domain.BulkDeal // insertion order
}

// NewBulkDealStore creates a new in-memory bulk deal store.
func NewBulkDealStore() *BulkDealStore {
	return &BulkDealStore{keys: make(map[string]struct{})}
}

func (s *BulkDealStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.keys[key]
	return ok, nil
}

// Insert stores a copy of d. Returns ErrDuplicateKey if key exists.
func (s *BulkDealStore) Insert(_ context.Context, key string, d *domain.BulkDeal) (string, error) {
	if d == nil || key == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[key]; exists {
		return "", storage.ErrDuplicateKey
	}

	dealCopy := *d
	if dealCopy.ID == "" {
		dealCopy.ID = uuid.NewString()
	}
	s.keys[key] = struct{}{}
	s.data = append(s.data, &dealCopy)
	return dealCopy.ID, nil
}

// GetAll returns up to limit deals, newest inserted first.
func (s *BulkDealStore) GetAll(_ context.Context, limit int) ([]*domain.BulkDeal, error) {
	return s.collect(limit, func(*domain.BulkDeal) bool { return true }), nil
}

func (s *BulkDealStore) GetByScripCode(_ context.Context, scripCode string) ([]*domain.BulkDeal, error) {
	return s.collect(0, func(d *domain.BulkDeal) bool { return d.ScripCode == scripCode }), nil
}

func (s *BulkDealStore) GetByClient(_ context.Context, clientName string) ([]*domain.BulkDeal, error) {
	return s.collect(0, func(d *domain.BulkDeal) bool { return d.ClientName == clientName }), nil
}

func (s *BulkDealStore) GetByDate(_ context.Context, dateText string) ([]*domain.BulkDeal, error) {
	return s.collect(0, func(d *domain.BulkDeal) bool { return d.DateText == dateText }), nil
}

func (s *BulkDealStore) collect(limit int, match func(*domain.BulkDeal) bool) []*domain.BulkDeal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BulkDeal
	for i := len(s.data) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		if match(s.data[i]) {
			dealCopy := *s.data[i]
			result = append(result, &dealCopy)
		}
	}
	return result
}

var _ storage.BulkDealStore = (*BulkDealStore)(nil)
