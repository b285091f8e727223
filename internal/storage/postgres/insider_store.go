package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

const insiderColumns = `id, exchange, scrip_code, company_name, person_name, category, security_type,
	transaction_type, number_of_securities, transaction_date, transaction_date_text, allotment_date_text,
	held_pre, held_pre_pct, value_per_security, held_post, held_post_pct, mode_of_acquisition,
	derivative_type, buy_value_units, sell_value_units, xbrl_link, created_at`

// insiderSelect is insiderColumns with the uuid rendered as text.
var insiderSelect = "id::text" + strings.TrimPrefix(insiderColumns, "id")

// legacyTables maps each exchange to its legacy table.
var legacyTables = map[domain.Exchange]string{
	domain.ExchangeBSE: "bse_insider_trading",
	domain.ExchangeNSE: "nse_insider_trading",
}

const unifiedTable = "insider_transactions"

// insertInsider inserts rec into table unless dedup_key exists.
// Returns ErrDuplicateKey when the conflict clause suppressed the insert.
func insertInsider(ctx context.Context, pool *Pool, table, key string, rec *domain.InsiderRecord) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (dedup_key, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING id::text
	`, table, insiderColumns)

	var returned string
	err := pool.QueryRow(ctx, query,
		key,
		id,
		string(rec.Exchange),
		rec.ScripCode,
		rec.CompanyName,
		rec.PersonName,
		rec.Category,
		rec.SecurityType,
		rec.TransactionType,
		rec.Quantity(),
		rec.TransactionDate,
		rec.TransactionDateText,
		rec.AllotmentDateText,
		rec.SecuritiesHeldPreTransaction,
		rec.SecuritiesHeldPrePercentage,
		rec.ValuePerSecurity,
		rec.SecuritiesHeldPostTransaction,
		rec.SecuritiesHeldPostPercentage,
		rec.ModeOfAcquisition,
		rec.DerivativeType,
		rec.BuyValueUnits,
		rec.SellValueUnits,
		rec.XBRLLink,
		rec.CreatedAt,
	).Scan(&returned)
	if err != nil {
		if isNotFoundError(err) || isDuplicateKeyError(err) {
			return "", storage.ErrDuplicateKey
		}
		return "", fmt.Errorf("insert into %s: %w", table, err)
	}
	return returned, nil
}

func existsKey(ctx context.Context, pool *Pool, table, key string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE dedup_key = $1)`, table)

	var exists bool
	if err := pool.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("check key in %s: %w", table, err)
	}
	return exists, nil
}

func queryInsiders(ctx context.Context, pool *Pool, query string, args ...any) ([]*domain.InsiderRecord, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query insider records: %w", err)
	}
	defer rows.Close()

	var result []*domain.InsiderRecord
	for rows.Next() {
		rec, err := scanInsider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insider record: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insider records: %w", err)
	}
	return result, nil
}

func scanInsider(row pgx.Row) (*domain.InsiderRecord, error) {
	var (
		rec      domain.InsiderRecord
		exchange string
		quantity int64
	)
	err := row.Scan(
		&rec.ID,
		&exchange,
		&rec.ScripCode,
		&rec.CompanyName,
		&rec.PersonName,
		&rec.Category,
		&rec.SecurityType,
		&rec.TransactionType,
		&quantity,
		&rec.TransactionDate,
		&rec.TransactionDateText,
		&rec.AllotmentDateText,
		&rec.SecuritiesHeldPreTransaction,
		&rec.SecuritiesHeldPrePercentage,
		&rec.ValuePerSecurity,
		&rec.SecuritiesHeldPostTransaction,
		&rec.SecuritiesHeldPostPercentage,
		&rec.ModeOfAcquisition,
		&rec.DerivativeType,
		&rec.BuyValueUnits,
		&rec.SellValueUnits,
		&rec.XBRLLink,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Exchange = domain.Exchange(exchange)
	rec.NumberOfSecurities = &quantity
	return &rec, nil
}

// LegacyInsiderStore implements storage.LegacyInsiderStore using one table per exchange.
type LegacyInsiderStore struct {
	pool *Pool
}

// NewLegacyInsiderStore creates a new LegacyInsiderStore.
func NewLegacyInsiderStore(pool *Pool) *LegacyInsiderStore {
	return &LegacyInsiderStore{pool: pool}
}

var _ storage.LegacyInsiderStore = (*LegacyInsiderStore)(nil)

func (s *LegacyInsiderStore) Exists(ctx context.Context, exchange domain.Exchange, key string) (bool, error) {
	table, ok := legacyTables[exchange]
	if !ok {
		return false, storage.ErrInvalidInput
	}
	return existsKey(ctx, s.pool, table, key)
}

// Insert stores rec in its exchange table. Returns ErrDuplicateKey if key exists.
func (s *LegacyInsiderStore) Insert(ctx context.Context, key string, rec *domain.InsiderRecord) (string, error) {
	if rec == nil || key == "" || rec.NumberOfSecurities == nil {
		return "", storage.ErrInvalidInput
	}
	table, ok := legacyTables[rec.Exchange]
	if !ok {
		return "", storage.ErrInvalidInput
	}
	return insertInsider(ctx, s.pool, table, key, rec)
}

func (s *LegacyInsiderStore) GetSince(ctx context.Context, exchange domain.Exchange, since int64) ([]*domain.InsiderRecord, error) {
	table, ok := legacyTables[exchange]
	if !ok {
		return nil, storage.ErrInvalidInput
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE created_at >= $1
		ORDER BY created_at DESC, id ASC
	`, insiderSelect, table)
	return queryInsiders(ctx, s.pool, query, since)
}

// UnifiedInsiderStore implements storage.UnifiedInsiderStore using PostgreSQL.
type UnifiedInsiderStore struct {
	pool *Pool
}

// NewUnifiedInsiderStore creates a new UnifiedInsiderStore.
func NewUnifiedInsiderStore(pool *Pool) *UnifiedInsiderStore {
	return &UnifiedInsiderStore{pool: pool}
}

var _ storage.UnifiedInsiderStore = (*UnifiedInsiderStore)(nil)

func (s *UnifiedInsiderStore) Exists(ctx context.Context, key string) (bool, error) {
	return existsKey(ctx, s.pool, unifiedTable, key)
}

// Insert stores rec. Returns ErrDuplicateKey if key exists.
func (s *UnifiedInsiderStore) Insert(ctx context.Context, key string, rec *domain.InsiderRecord) (string, error) {
	if rec == nil || key == "" || rec.NumberOfSecurities == nil {
		return "", storage.ErrInvalidInput
	}
	return insertInsider(ctx, s.pool, unifiedTable, key, rec)
}

// GetByID retrieves a record. Returns ErrNotFound if not exists.
func (s *UnifiedInsiderStore) GetByID(ctx context.Context, id string) (*domain.InsiderRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, storage.ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, insiderSelect, unifiedTable)
	rec, err := scanInsider(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get insider record by id: %w", err)
	}
	return rec, nil
}

func (s *UnifiedInsiderStore) GetSince(ctx context.Context, since int64) ([]*domain.InsiderRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE created_at >= $1
		ORDER BY transaction_date DESC, created_at ASC
	`, insiderSelect, unifiedTable)
	return queryInsiders(ctx, s.pool, query, since)
}

func (s *UnifiedInsiderStore) GetByExchange(ctx context.Context, exchange domain.Exchange) ([]*domain.InsiderRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE exchange = $1
		ORDER BY transaction_date DESC, created_at ASC
	`, insiderSelect, unifiedTable)
	return queryInsiders(ctx, s.pool, query, string(exchange))
}

func (s *UnifiedInsiderStore) GetByScripCode(ctx context.Context, scripCode string) ([]*domain.InsiderRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE scrip_code = $1
		ORDER BY transaction_date DESC, created_at ASC
	`, insiderSelect, unifiedTable)
	return queryInsiders(ctx, s.pool, query, scripCode)
}

// GetAll returns up to limit records, newest created first. limit <= 0 means no limit.
func (s *UnifiedInsiderStore) GetAll(ctx context.Context, limit int) ([]*domain.InsiderRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		ORDER BY created_at DESC, id ASC
		LIMIT $1
	`, insiderSelect, unifiedTable)
	var lim any
	if limit > 0 {
		lim = limit
	}
	return queryInsiders(ctx, s.pool, query, lim)
}
