package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

const bulkDealSelect = `id::text, deal_date, date_text, scrip_code, company_name, client_name, deal_type,
	quantity, price::text, total_value::text, created_at`

// BulkDealStore implements storage.BulkDealStore using PostgreSQL.
type BulkDealStore struct {
	pool *Pool
}

// NewBulkDealStore creates a new BulkDealStore.
func NewBulkDealStore(pool *Pool) *BulkDealStore {
	return &BulkDealStore{pool: pool}
}

var _ storage.BulkDealStore = (*BulkDealStore)(nil)

func (s *BulkDealStore) Exists(ctx context.Context, key string) (bool, error) {
	return existsKey(ctx, s.pool, "bulk_deals", key)
}

// Insert adds a deal. Returns ErrDuplicateKey if key exists.
func (s *BulkDealStore) Insert(ctx context.Context, key string, d *domain.BulkDeal) (string, error) {
	if d == nil || key == "" {
		return "", storage.ErrInvalidInput
	}
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO bulk_deals (
			id, dedup_key, deal_date, date_text, scrip_code, company_name, client_name,
			deal_type, quantity, price, total_value, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11::numeric, $12)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING id::text
	`

	var returned string
	err := s.pool.QueryRow(ctx, query,
		id,
		key,
		d.Date,
		d.DateText,
		d.ScripCode,
		d.CompanyName,
		d.ClientName,
		string(d.DealType),
		d.Quantity,
		d.Price.String(),
		d.TotalValue.String(),
		d.CreatedAt,
	).Scan(&returned)
	if err != nil {
		if isNotFoundError(err) || isDuplicateKeyError(err) {
			return "", storage.ErrDuplicateKey
		}
		return "", fmt.Errorf("insert bulk deal: %w", err)
	}
	return returned, nil
}

// GetAll returns up to limit deals, newest first.
func (s *BulkDealStore) GetAll(ctx context.Context, limit int) ([]*domain.BulkDeal, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	return s.query(ctx, `SELECT `+bulkDealSelect+` FROM bulk_deals ORDER BY created_at DESC, deal_date DESC LIMIT $1`, lim)
}

func (s *BulkDealStore) GetByScripCode(ctx context.Context, scripCode string) ([]*domain.BulkDeal, error) {
	return s.query(ctx, `SELECT `+bulkDealSelect+` FROM bulk_deals WHERE scrip_code = $1 ORDER BY deal_date DESC, created_at DESC`, scripCode)
}

func (s *BulkDealStore) GetByClient(ctx context.Context, clientName string) ([]*domain.BulkDeal, error) {
	return s.query(ctx, `SELECT `+bulkDealSelect+` FROM bulk_deals WHERE client_name = $1 ORDER BY deal_date DESC, created_at DESC`, clientName)
}

func (s *BulkDealStore) GetByDate(ctx context.Context, dateText string) ([]*domain.BulkDeal, error) {
	return s.query(ctx, `SELECT `+bulkDealSelect+` FROM bulk_deals WHERE date_text = $1 ORDER BY created_at DESC`, dateText)
}

func (s *BulkDealStore) query(ctx context.Context, query string, args ...any) ([]*domain.BulkDeal, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bulk deals: %w", err)
	}
	defer rows.Close()

	var result []*domain.BulkDeal
	for rows.Next() {
		d, err := scanBulkDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bulk deal: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bulk deals: %w", err)
	}
	return result, nil
}

func scanBulkDeal(row pgx.Row) (*domain.BulkDeal, error) {
	var (
		d                 domain.BulkDeal
		dealType          string
		price, totalValue string
	)
	if err := row.Scan(
		&d.ID, &d.Date, &d.DateText, &d.ScripCode, &d.CompanyName, &d.ClientName,
		&dealType, &d.Quantity, &price, &totalValue, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	d.DealType = domain.DealType(dealType)

	var err error
	if d.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	if d.TotalValue, err = decimal.NewFromString(totalValue); err != nil {
		return nil, fmt.Errorf("parse total value: %w", err)
	}
	return &d, nil
}
