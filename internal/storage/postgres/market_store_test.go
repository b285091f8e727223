package postgres

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

func TestBulkDealStore_InsertAndQuery(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBulkDealStore(pool)
	ctx := context.Background()

	price := decimal.RequireFromString("245.50")
	deal := &domain.BulkDeal{
		Date:        1709577000000,
		DateText:    "05/03/2024",
		ScripCode:   "500325",
		CompanyName: "RELIANCE",
		ClientName:  "ABC FUND",
		DealType:    domain.DealTypeBuy,
		Quantity:    1000,
		Price:       price,
		TotalValue:  price.Mul(decimal.NewFromInt(1000)),
		CreatedAt:   1709600000000,
	}

	_, err := store.Insert(ctx, "deal-1", deal)
	require.NoError(t, err)

	_, err = store.Insert(ctx, "deal-1", deal)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	exists, err := store.Exists(ctx, "deal-1")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.GetByClient(ctx, "ABC FUND")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Price.Equal(price))
	assert.True(t, got[0].TotalValue.Equal(decimal.RequireFromString("245500")))
	assert.Equal(t, domain.DealTypeBuy, got[0].DealType)

	byDate, err := store.GetByDate(ctx, "05/03/2024")
	require.NoError(t, err)
	assert.Len(t, byDate, 1)

	all, err := store.GetAll(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCorporateActionStore_Upcoming(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCorporateActionStore(pool)
	ctx := context.Background()

	for i, ex := range []int64{300, 100, 500} {
		_, err := store.Insert(ctx, string(rune('a'+i)), &domain.CorporateAction{
			ScripCode:  "500325",
			Purpose:    "Dividend - Rs 10",
			ExDate:     ex,
			RecordDate: ptr("06/03/2024"),
			CreatedAt:  1,
		})
		require.NoError(t, err)
	}

	upcoming, err := store.GetUpcoming(ctx, 200, 50)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, int64(300), upcoming[0].ExDate)
	assert.Equal(t, int64(500), upcoming[1].ExDate)
	assert.Equal(t, "06/03/2024", *upcoming[0].RecordDate)
	assert.Nil(t, upcoming[0].BCStartDate)

	byPurpose, err := store.GetByPurpose(ctx, "Dividend - Rs 10")
	require.NoError(t, err)
	assert.Len(t, byPurpose, 3)
}

func TestSubscriberStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSubscriberStore(pool)
	ctx := context.Background()

	first, err := store.Upsert(ctx, &domain.Subscriber{ExternalID: "user_1", Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	second, err := store.Upsert(ctx, &domain.Subscriber{ExternalID: "user_1", Name: "A", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new@example.com", second.Email)

	_, err = store.Upsert(ctx, &domain.Subscriber{ExternalID: "user_2", Name: "B"})
	require.NoError(t, err)

	emails, err := store.AllEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new@example.com"}, emails)
}
