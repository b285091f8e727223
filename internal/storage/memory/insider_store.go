package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

// LegacyInsiderStore is an in-memory implementation of storage.LegacyInsiderStore.
// Each exchange gets its own key space, mirroring the per-exchange tables.
type LegacyInsiderStore struct {
	mu   sync.RWMutex
	keys map[domain.Exchange]map[string]string // exchange -> key -> id
	data map[string]*domain.InsiderRecord      // keyed by id
}

// NewLegacyInsiderStore creates a new in-memory legacy insider store.
func NewLegacyInsiderStore() *LegacyInsiderStore {
	return &LegacyInsiderStore{
		keys: make(map[domain.Exchange]map[string]string),
		data: make(map[string]*domain.InsiderRecord),
	}
}

// Exists reports whether key is already stored for exchange.
func (s *LegacyInsiderStore) Exists(_ context.Context, exchange domain.Exchange, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.keys[exchange][key]
	return ok, nil
}

// Insert stores a copy of rec. Returns ErrDuplicateKey if key exists for rec.Exchange.
func (s *LegacyInsiderStore) Insert(_ context.Context, key string, rec *domain.InsiderRecord) (string, error) {
	if rec == nil || key == "" || !rec.Exchange.IsValid() {
		return "", storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.keys[rec.Exchange]
	if !ok {
		byKey = make(map[string]string)
		s.keys[rec.Exchange] = byKey
	}
	if _, exists := byKey[key]; exists {
		return "", storage.ErrDuplicateKey
	}

	c := rec.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	byKey[key] = c.ID
	s.data[c.ID] = c
	return c.ID, nil
}

// GetSince returns records of exchange created at or after since, newest first.
func (s *LegacyInsiderStore) GetSince(_ context.Context, exchange domain.Exchange, since int64) ([]*domain.InsiderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InsiderRecord
	for _, r := range s.data {
		if r.Exchange == exchange && r.CreatedAt >= since {
			result = append(result, r.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UnifiedInsiderStore is an in-memory implementation of storage.UnifiedInsiderStore.
type UnifiedInsiderStore struct {
	mu    sync.RWMutex
	keys  map[string]string                // identity key -> id
	data  map[string]*domain.InsiderRecord // keyed by id
	order []string                         // ids in insertion order
}

// NewUnifiedInsiderStore creates a new in-memory unified insider store.
func NewUnifiedInsiderStore() *UnifiedInsiderStore {
	return &UnifiedInsiderStore{
		keys: make(map[string]string),
		data: make(map[string]*domain.InsiderRecord),
	}
}

// Exists reports whether the identity key is already stored.
func (s *UnifiedInsiderStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.keys[key]
	return ok, nil
}

// Insert stores a copy of rec. Returns ErrDuplicateKey if key exists.
func (s *UnifiedInsiderStore) Insert(_ context.Context, key string, rec *domain.InsiderRecord) (string, error) {
	if rec == nil || key == "" {
		return "", storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[key]; exists {
		return "", storage.ErrDuplicateKey
	}

	c := rec.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.keys[key] = c.ID
	s.data[c.ID] = c
	s.order = append(s.order, c.ID)
	return c.ID, nil
}

// GetByID retrieves a record by id. Returns ErrNotFound if not exists.
func (s *UnifiedInsiderStore) GetByID(_ context.Context, id string) (*domain.InsiderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.Clone(), nil
}

// GetSince returns records created at or after since, ordered by transaction date DESC.
func (s *UnifiedInsiderStore) GetSince(_ context.Context, since int64) ([]*domain.InsiderRecord, error) {
	return s.filter(func(r *domain.InsiderRecord) bool { return r.CreatedAt >= since }), nil
}

// GetByExchange returns records of one exchange, ordered by transaction date DESC.
func (s *UnifiedInsiderStore) GetByExchange(_ context.Context, exchange domain.Exchange) ([]*domain.InsiderRecord, error) {
	return s.filter(func(r *domain.InsiderRecord) bool { return r.Exchange == exchange }), nil
}

// GetByScripCode returns records for a security, ordered by transaction date DESC.
func (s *UnifiedInsiderStore) GetByScripCode(_ context.Context, scripCode string) ([]*domain.InsiderRecord, error) {
	return s.filter(func(r *domain.InsiderRecord) bool { return r.ScripCode == scripCode }), nil
}

// GetAll returns up to limit records, newest inserted first.
func (s *UnifiedInsiderStore) GetAll(_ context.Context, limit int) ([]*domain.InsiderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.InsiderRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, s.data[s.order[i]].Clone())
	}
	return result, nil
}

func (s *UnifiedInsiderStore) filter(match func(*domain.InsiderRecord) bool) []*domain.InsiderRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.InsiderRecord
	for _, id := range s.order {
		if r := s.data[id]; match(r) {
			result = append(result, r.Clone())
		}
	}

	// Stable on insertion order for equal dates.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].TransactionDate > result[j].TransactionDate
	})
	return result
}

// Len returns the number of stored records.
func (s *UnifiedInsiderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Len returns the number of stored records for exchange.
func (s *LegacyInsiderStore) Len(exchange domain.Exchange) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys[exchange])
}

var (
	_ storage.LegacyInsiderStore  = (*LegacyInsiderStore)(nil)
	_ storage.UnifiedInsiderStore = (*UnifiedInsiderStore)(nil)
)
