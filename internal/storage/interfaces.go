package storage

import (
	"context"

	"insider-pipeline/internal/domain"
)

// LegacyInsiderStore is the per-exchange insider track.
// Each exchange has its own table; key is the legacy dedup key.
type LegacyInsiderStore interface {
	// Exists reports whether a record with key exists for the exchange.
	Exists(ctx context.Context, exchange domain.Exchange, key string) (bool, error)

	// Insert stores rec under key and returns its id.
	// Returns ErrDuplicateKey if the key exists for rec.Exchange.
	Insert(ctx context.Context, key string, rec *domain.InsiderRecord) (string, error)

	// GetSince returns records of an exchange created at or after since (ms), newest first.
	GetSince(ctx context.Context, exchange domain.Exchange, since int64) ([]*domain.InsiderRecord, error)
}

// UnifiedInsiderStore is the cross-exchange insider track.
type UnifiedInsiderStore interface {
	// Exists reports whether a record with the identity key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Insert stores rec under the identity key and returns its id.
	// Returns ErrDuplicateKey if the key exists.
	Insert(ctx context.Context, key string, rec *domain.InsiderRecord) (string, error)

	// GetByID retrieves a record. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.InsiderRecord, error)

	// GetSince returns records created at or after since (ms), ordered by transaction date DESC.
	GetSince(ctx context.Context, since int64) ([]*domain.InsiderRecord, error)

	// GetByExchange returns records of one exchange, ordered by transaction date DESC.
	GetByExchange(ctx context.Context, exchange domain.Exchange) ([]*domain.InsiderRecord, error)

	// GetByScripCode returns records for a security, ordered by transaction date DESC.
	GetByScripCode(ctx context.Context, scripCode string) ([]*domain.InsiderRecord, error)

	// GetAll returns up to limit records, newest created first. limit <= 0 means no limit.
	GetAll(ctx context.Context, limit int) ([]*domain.InsiderRecord, error)
}

// BulkDealStore provides access to bulk deal storage.
type BulkDealStore interface {
	Exists(ctx context.Context, key string) (bool, error)

	// Insert returns ErrDuplicateKey if key exists.
	Insert(ctx context.Context, key string, d *domain.BulkDeal) (string, error)

	// GetAll returns up to limit deals, newest first. limit <= 0 means no limit.
	GetAll(ctx context.Context, limit int) ([]*domain.BulkDeal, error)
	GetByScripCode(ctx context.Context, scripCode string) ([]*domain.BulkDeal, error)
	GetByClient(ctx context.Context, clientName string) ([]*domain.BulkDeal, error)
	GetByDate(ctx context.Context, dateText string) ([]*domain.BulkDeal, error)
}

// CorporateActionStore provides access to corporate action storage.
type CorporateActionStore interface {
	Exists(ctx context.Context, key string) (bool, error)

	// Insert returns ErrDuplicateKey if key exists.
	Insert(ctx context.Context, key string, a *domain.CorporateAction) (string, error)

	GetAll(ctx context.Context, limit int) ([]*domain.CorporateAction, error)
	GetByScripCode(ctx context.Context, scripCode string) ([]*domain.CorporateAction, error)
	GetByPurpose(ctx context.Context, purpose string) ([]*domain.CorporateAction, error)

	// GetUpcoming returns actions with ExDate >= now (ms), soonest first.
	GetUpcoming(ctx context.Context, now int64, limit int) ([]*domain.CorporateAction, error)
}

// SubscriberStore provides access to notification subscribers.
type SubscriberStore interface {
	// Upsert creates or updates the subscriber with the given external id.
	Upsert(ctx context.Context, s *domain.Subscriber) (*domain.Subscriber, error)

	// AllEmails returns every non-empty subscriber email.
	AllEmails(ctx context.Context) ([]string, error)
}

// VectorStore is a namespaced similarity index.
type VectorStore interface {
	// Upsert writes vectors into namespace, replacing vectors with the same id.
	Upsert(ctx context.Context, namespace string, vectors []domain.Vector) error

	// DescribeStats returns per-namespace record counts.
	DescribeStats(ctx context.Context) (*domain.IndexStats, error)

	// Query returns up to topK nearest vectors in namespace, best first.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.VectorMatch, error)
}
