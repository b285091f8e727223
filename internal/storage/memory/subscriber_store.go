package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

// SubscriberStore is an in-memory implementation of storage.SubscriberStore.
type SubscriberStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Subscriber // keyed by external id
}

// NewSubscriberStore creates a new in-memory subscriber store.
func NewSubscriberStore() *SubscriberStore {
	return &SubscriberStore{data: make(map[string]*domain.Subscriber)}
}

// Upsert creates the subscriber or updates name and email of an existing one.
func (s *SubscriberStore) Upsert(_ context.Context, sub *domain.Subscriber) (*domain.Subscriber, error) {
	if sub == nil || sub.ExternalID == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[sub.ExternalID]
	if ok {
		existing.Name = sub.Name
		existing.Email = sub.Email
		out := *existing
		return &out, nil
	}

	subCopy := *sub
	if subCopy.ID == "" {
		subCopy.ID = uuid.NewString()
	}
	s.data[sub.ExternalID] = &subCopy
	out := subCopy
	return &out, nil
}

// AllEmails returns non-empty emails sorted for determinism.
func (s *SubscriberStore) AllEmails(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emails []string
	for _, sub := range s.data {
		if sub.Email != "" {
			emails = append(emails, sub.Email)
		}
	}
	sort.Strings(emails)
	return emails, nil
}

var _ storage.SubscriberStore = (*SubscriberStore)(nil)
