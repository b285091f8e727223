package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

func sampleRecord(exchange domain.Exchange, scrip string, date, created int64) *domain.InsiderRecord {
	return &domain.InsiderRecord{
		Exchange:                      exchange,
		ScripCode:                     scrip,
		CompanyName:                   "Reliance Industries Ltd",
		PersonName:                    "Mukesh Ambani",
		Category:                      "Promoter",
		SecurityType:                  "Equity Shares",
		TransactionType:               "Acquisition",
		NumberOfSecurities:            ptr(int64(1000)),
		TransactionDate:               date,
		TransactionDateText:           ptr("05/03/2024"),
		SecuritiesHeldPreTransaction:  ptr(int64(5000)),
		SecuritiesHeldPrePercentage:   ptr(1.25),
		SecuritiesHeldPostTransaction: ptr(int64(6000)),
		SecuritiesHeldPostPercentage:  ptr(1.5),
		ModeOfAcquisition:             ptr("Market Purchase"),
		BuyValueUnits:                 ptr("2,45,000"),
		CreatedAt:                     created,
	}
}

func TestLegacyInsiderStore_InsertAndExists(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLegacyInsiderStore(pool)
	ctx := context.Background()

	id, err := store.Insert(ctx, "legacy-1", sampleRecord(domain.ExchangeBSE, "500325", 1709577000000, 1700000000000))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	exists, err := store.Exists(ctx, domain.ExchangeBSE, "legacy-1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Tables are per exchange.
	exists, err = store.Exists(ctx, domain.ExchangeNSE, "legacy-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Insert(ctx, "legacy-1", sampleRecord(domain.ExchangeBSE, "500325", 1709577000000, 1700000000000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	recs, err := store.GetSince(ctx, domain.ExchangeBSE, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, "2,45,000", *recs[0].BuyValueUnits)
}

func TestUnifiedInsiderStore_RoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUnifiedInsiderStore(pool)
	ctx := context.Background()

	rec := sampleRecord(domain.ExchangeNSE, "RELIANCE", 1709577000000, 1700000000000)
	rec.XBRLLink = ptr("https://www.nseindia.com/xbrl/1.xml")

	id, err := store.Insert(ctx, "unified-1", rec)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ExchangeNSE, got.Exchange)
	assert.Equal(t, "RELIANCE", got.ScripCode)
	assert.Equal(t, int64(1000), got.Quantity())
	assert.Equal(t, rec.TransactionDate, got.TransactionDate)
	assert.Equal(t, "05/03/2024", *got.TransactionDateText)
	assert.InDelta(t, 1.5, *got.SecuritiesHeldPostPercentage, 1e-9)
	assert.Equal(t, *rec.XBRLLink, *got.XBRLLink)
	assert.Nil(t, got.DerivativeType)

	_, err = store.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUnifiedInsiderStore_ConditionalInsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUnifiedInsiderStore(pool)
	ctx := context.Background()

	_, err := store.Insert(ctx, "same-key", sampleRecord(domain.ExchangeBSE, "500325", 1, 1))
	require.NoError(t, err)

	_, err = store.Insert(ctx, "same-key", sampleRecord(domain.ExchangeBSE, "500325", 1, 2))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUnifiedInsiderStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewUnifiedInsiderStore(pool)
	ctx := context.Background()

	_, err := store.Insert(ctx, "k1", sampleRecord(domain.ExchangeBSE, "500325", 100, 10))
	require.NoError(t, err)
	_, err = store.Insert(ctx, "k2", sampleRecord(domain.ExchangeNSE, "INFY", 300, 20))
	require.NoError(t, err)
	_, err = store.Insert(ctx, "k3", sampleRecord(domain.ExchangeBSE, "500325", 200, 30))
	require.NoError(t, err)

	bse, err := store.GetByExchange(ctx, domain.ExchangeBSE)
	require.NoError(t, err)
	require.Len(t, bse, 2)
	assert.Equal(t, int64(200), bse[0].TransactionDate)

	byScrip, err := store.GetByScripCode(ctx, "INFY")
	require.NoError(t, err)
	require.Len(t, byScrip, 1)

	since, err := store.GetSince(ctx, 20)
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, int64(300), since[0].TransactionDate)

	limited, err := store.GetAll(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, int64(30), limited[0].CreatedAt)
}
