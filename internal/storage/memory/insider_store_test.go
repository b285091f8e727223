package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

func qty(v int64) *int64 { return &v }

func newRecord(exchange domain.Exchange, scrip string, date int64, q int64) *domain.InsiderRecord {
	return &domain.InsiderRecord{
		Exchange:           exchange,
		ScripCode:          scrip,
		CompanyName:        "Acme Ltd",
		PersonName:         "A. Person",
		TransactionType:    "Buy",
		NumberOfSecurities: qty(q),
		TransactionDate:    date,
		CreatedAt:          date,
	}
}

func TestLegacyInsiderStore_PerExchangeKeys(t *testing.T) {
	store := NewLegacyInsiderStore()
	ctx := context.Background()

	id, err := store.Insert(ctx, "k1", newRecord(domain.ExchangeBSE, "500325", 1000, 10))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	_, err = store.Insert(ctx, "k1", newRecord(domain.ExchangeBSE, "500325", 1000, 10))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	// Same key on the other exchange lives in a separate table.
	if _, err := store.Insert(ctx, "k1", newRecord(domain.ExchangeNSE, "RELIANCE", 1000, 10)); err != nil {
		t.Errorf("Insert on NSE failed: %v", err)
	}

	ok, _ := store.Exists(ctx, domain.ExchangeBSE, "k1")
	if !ok {
		t.Error("expected k1 to exist on BSE")
	}
	ok, _ = store.Exists(ctx, domain.ExchangeBSE, "k2")
	if ok {
		t.Error("expected k2 to be absent")
	}
	if got := store.Len(domain.ExchangeBSE); got != 1 {
		t.Errorf("Len(BSE) = %d, want 1", got)
	}
}

func TestLegacyInsiderStore_InvalidInput(t *testing.T) {
	store := NewLegacyInsiderStore()
	ctx := context.Background()

	if _, err := store.Insert(ctx, "", newRecord(domain.ExchangeBSE, "1", 0, 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("empty key: expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Insert(ctx, "k", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("nil record: expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.Insert(ctx, "k", newRecord("LSE", "1", 0, 1)); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("bad exchange: expected ErrInvalidInput, got %v", err)
	}
}

func TestLegacyInsiderStore_GetSince(t *testing.T) {
	store := NewLegacyInsiderStore()
	ctx := context.Background()

	for i, created := range []int64{100, 300, 200} {
		rec := newRecord(domain.ExchangeBSE, "500325", 0, int64(i))
		rec.CreatedAt = created
		if _, err := store.Insert(ctx, fmt.Sprintf("k%d", i), rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetSince(ctx, domain.ExchangeBSE, 200)
	if err != nil {
		t.Fatalf("GetSince failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].CreatedAt != 300 || got[1].CreatedAt != 200 {
		t.Errorf("expected newest first, got %d, %d", got[0].CreatedAt, got[1].CreatedAt)
	}
}

func TestUnifiedInsiderStore_InsertAndGet(t *testing.T) {
	store := NewUnifiedInsiderStore()
	ctx := context.Background()

	rec := newRecord(domain.ExchangeNSE, "INFY", 1709596800000, 500)
	id, err := store.Insert(ctx, "u1", rec)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ScripCode != "INFY" || got.Quantity() != 500 {
		t.Errorf("unexpected record: %+v", got)
	}

	// Mutating the returned copy must not touch the store.
	*got.NumberOfSecurities = 1
	again, _ := store.GetByID(ctx, id)
	if again.Quantity() != 500 {
		t.Errorf("store was mutated through returned copy")
	}

	// Mutating the input after insert must not touch the store either.
	*rec.NumberOfSecurities = 2
	again, _ = store.GetByID(ctx, id)
	if again.Quantity() != 500 {
		t.Errorf("store was mutated through input record")
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUnifiedInsiderStore_DuplicateKey(t *testing.T) {
	store := NewUnifiedInsiderStore()
	ctx := context.Background()

	if _, err := store.Insert(ctx, "u1", newRecord(domain.ExchangeBSE, "1", 0, 1)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := store.Insert(ctx, "u1", newRecord(domain.ExchangeBSE, "1", 0, 1)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestUnifiedInsiderStore_Queries(t *testing.T) {
	store := NewUnifiedInsiderStore()
	ctx := context.Background()

	recs := []*domain.InsiderRecord{
		newRecord(domain.ExchangeBSE, "500325", 100, 1),
		newRecord(domain.ExchangeNSE, "INFY", 300, 2),
		newRecord(domain.ExchangeBSE, "500325", 200, 3),
	}
	for i, r := range recs {
		if _, err := store.Insert(ctx, fmt.Sprintf("u%d", i), r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	bse, _ := store.GetByExchange(ctx, domain.ExchangeBSE)
	if len(bse) != 2 || bse[0].TransactionDate != 200 {
		t.Errorf("GetByExchange: expected 2 records ordered by date DESC, got %d", len(bse))
	}

	scrip, _ := store.GetByScripCode(ctx, "INFY")
	if len(scrip) != 1 || scrip[0].Exchange != domain.ExchangeNSE {
		t.Errorf("GetByScripCode: unexpected result %v", scrip)
	}

	since, _ := store.GetSince(ctx, 200)
	if len(since) != 2 || since[0].TransactionDate != 300 {
		t.Errorf("GetSince: unexpected result count %d", len(since))
	}

	all, _ := store.GetAll(ctx, 2)
	if len(all) != 2 || all[0].Quantity() != 3 {
		t.Errorf("GetAll: expected newest inserted first, got %d records", len(all))
	}
}

func TestUnifiedInsiderStore_ConcurrentInsertSameKey(t *testing.T) {
	store := NewUnifiedInsiderStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Insert(ctx, "same", newRecord(domain.ExchangeBSE, "1", 0, 1)); err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("expected exactly one winner, got %d", inserted)
	}
}
