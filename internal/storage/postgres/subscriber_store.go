package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

// SubscriberStore implements storage.SubscriberStore using PostgreSQL.
type SubscriberStore struct {
	pool *Pool
}

// NewSubscriberStore creates a new SubscriberStore.
func NewSubscriberStore(pool *Pool) *SubscriberStore {
	return &SubscriberStore{pool: pool}
}

var _ storage.SubscriberStore = (*SubscriberStore)(nil)

// Upsert creates the subscriber or updates name and email for an existing external id.
func (s *SubscriberStore) Upsert(ctx context.Context, sub *domain.Subscriber) (*domain.Subscriber, error) {
	if sub == nil || sub.ExternalID == "" {
		return nil, storage.ErrInvalidInput
	}
	id := sub.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := sub.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO subscribers (id, external_id, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (external_id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email
		RETURNING id::text, external_id, name, email, created_at
	`

	var out domain.Subscriber
	err := s.pool.QueryRow(ctx, query, id, sub.ExternalID, sub.Name, sub.Email, createdAt).
		Scan(&out.ID, &out.ExternalID, &out.Name, &out.Email, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}
	return &out, nil
}

// AllEmails returns every non-empty subscriber email.
func (s *SubscriberStore) AllEmails(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT email FROM subscribers WHERE email <> '' ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query subscriber emails: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan subscriber email: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriber emails: %w", err)
	}
	return emails, nil
}
