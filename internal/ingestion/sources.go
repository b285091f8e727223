package ingestion

import (
	"context"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/embedding"
)

// InsiderSource fetches raw insider rows for one exchange.
// Rows carry no ordering guarantee and may contain malformed cells.
type InsiderSource interface {
	Exchange() domain.Exchange
	FetchRows(ctx context.Context, filter domain.RowFilter) ([]domain.RawRow, error)
}

// BulkDealSource fetches the current bulk deal table.
type BulkDealSource interface {
	FetchBulkDeals(ctx context.Context) ([]*domain.BulkDeal, error)
}

// CorporateActionSource fetches the current corporate action table.
type CorporateActionSource interface {
	FetchCorporateActions(ctx context.Context) ([]*domain.CorporateAction, error)
}

// Notifier is told about every new unified record by id.
type Notifier interface {
	Notify(ctx context.Context, id string) error
}

// Indexer embeds newly unified records into the vector index.
type Indexer interface {
	EmbedAndIndex(ctx context.Context, recs []*domain.InsiderRecord) (*embedding.IndexResult, error)
}
