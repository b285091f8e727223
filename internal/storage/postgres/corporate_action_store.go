package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

const corporateActionSelect = `id::text, scrip_code, company_name, purpose, ex_date, ex_date_text,
	record_date, bc_start_date, bc_end_date, nd_start_date, nd_end_date, created_at`

// CorporateActionStore implements storage.CorporateActionStore using PostgreSQL.
type CorporateActionStore struct {
	pool *Pool
}

// NewCorporateActionStore creates a new CorporateActionStore.
func NewCorporateActionStore(pool *Pool) *CorporateActionStore {
	return &CorporateActionStore{pool: pool}
}

var _ storage.CorporateActionStore = (*CorporateActionStore)(nil)

func (s *CorporateActionStore) Exists(ctx context.Context, key string) (bool, error) {
	return existsKey(ctx, s.pool, "corporate_actions", key)
}

// Insert adds an action. Returns ErrDuplicateKey if key exists.
func (s *CorporateActionStore) Insert(ctx context.Context, key string, a *domain.CorporateAction) (string, error) {
	if a == nil || key == "" {
		return "", storage.ErrInvalidInput
	}
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO corporate_actions (
			id, dedup_key, scrip_code, company_name, purpose, ex_date, ex_date_text,
			record_date, bc_start_date, bc_end_date, nd_start_date, nd_end_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING id::text
	`

	var returned string
	err := s.pool.QueryRow(ctx, query,
		id, key, a.ScripCode, a.CompanyName, a.Purpose, a.ExDate, a.ExDateText,
		a.RecordDate, a.BCStartDate, a.BCEndDate, a.NDStartDate, a.NDEndDate, a.CreatedAt,
	).Scan(&returned)
	if err != nil {
		if isNotFoundError(err) || isDuplicateKeyError(err) {
			return "", storage.ErrDuplicateKey
		}
		return "", fmt.Errorf("insert corporate action: %w", err)
	}
	return returned, nil
}

func (s *CorporateActionStore) GetAll(ctx context.Context, limit int) ([]*domain.CorporateAction, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	return s.query(ctx, `SELECT `+corporateActionSelect+` FROM corporate_actions ORDER BY ex_date DESC LIMIT $1`, lim)
}

func (s *CorporateActionStore) GetByScripCode(ctx context.Context, scripCode string) ([]*domain.CorporateAction, error) {
	return s.query(ctx, `SELECT `+corporateActionSelect+` FROM corporate_actions WHERE scrip_code = $1 ORDER BY ex_date DESC`, scripCode)
}

func (s *CorporateActionStore) GetByPurpose(ctx context.Context, purpose string) ([]*domain.CorporateAction, error) {
	return s.query(ctx, `SELECT `+corporateActionSelect+` FROM corporate_actions WHERE purpose = $1 ORDER BY ex_date DESC`, purpose)
}

// GetUpcoming returns actions with ex_date >= now, soonest first.
func (s *CorporateActionStore) GetUpcoming(ctx context.Context, now int64, limit int) ([]*domain.CorporateAction, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	return s.query(ctx, `SELECT `+corporateActionSelect+` FROM corporate_actions WHERE ex_date >= $1 ORDER BY ex_date ASC LIMIT $2`, now, lim)
}

func (s *CorporateActionStore) query(ctx context.Context, query string, args ...any) ([]*domain.CorporateAction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corporate actions: %w", err)
	}
	defer rows.Close()

	var result []*domain.CorporateAction
	for rows.Next() {
		a, err := scanCorporateAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan corporate action: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate corporate actions: %w", err)
	}
	return result, nil
}

func scanCorporateAction(row pgx.Row) (*domain.CorporateAction, error) {
	var a domain.CorporateAction
	err := row.Scan(
		&a.ID, &a.ScripCode, &a.CompanyName, &a.Purpose, &a.ExDate, &a.ExDateText,
		&a.RecordDate, &a.BCStartDate, &a.BCEndDate, &a.NDStartDate, &a.NDEndDate, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
