package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/storage"
)

func TestBulkDealStore(t *testing.T) {
	store := NewBulkDealStore()
	ctx := context.Background()

	deals := []*domain.BulkDeal{
		{DateText: "01/03/2024", ScripCode: "500325", ClientName: "FUND A", DealType: domain.DealTypeBuy, Quantity: 100, Price: decimal.NewFromInt(10)},
		{DateText: "02/03/2024", ScripCode: "500325", ClientName: "FUND B", DealType: domain.DealTypeSell, Quantity: 50, Price: decimal.NewFromInt(11)},
		{DateText: "02/03/2024", ScripCode: "532540", ClientName: "FUND A", DealType: domain.DealTypeBuy, Quantity: 70, Price: decimal.NewFromInt(12)},
	}
	for i, d := range deals {
		if _, err := store.Insert(ctx, string(rune('a'+i)), d); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if _, err := store.Insert(ctx, "a", deals[0]); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.GetAll(ctx, 2)
	if len(all) != 2 || all[0].Quantity != 70 {
		t.Errorf("GetAll: expected newest first with limit, got %d", len(all))
	}

	byScrip, _ := store.GetByScripCode(ctx, "500325")
	if len(byScrip) != 2 {
		t.Errorf("GetByScripCode: got %d, want 2", len(byScrip))
	}

	byClient, _ := store.GetByClient(ctx, "FUND A")
	if len(byClient) != 2 {
		t.Errorf("GetByClient: got %d, want 2", len(byClient))
	}

	byDate, _ := store.GetByDate(ctx, "02/03/2024")
	if len(byDate) != 2 {
		t.Errorf("GetByDate: got %d, want 2", len(byDate))
	}
}

func TestCorporateActionStore_GetUpcoming(t *testing.T) {
	store := NewCorporateActionStore()
	ctx := context.Background()

	for i, ex := range []int64{500, 100, 300, 0} {
		a := &domain.CorporateAction{ScripCode: "500325", Purpose: "Dividend", ExDate: ex}
		if _, err := store.Insert(ctx, string(rune('a'+i)), a); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetUpcoming(ctx, 200, 50)
	if err != nil {
		t.Fatalf("GetUpcoming failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming, got %d", len(got))
	}
	if got[0].ExDate != 300 || got[1].ExDate != 500 {
		t.Errorf("expected soonest first, got %d, %d", got[0].ExDate, got[1].ExDate)
	}

	limited, _ := store.GetUpcoming(ctx, 0, 1)
	if len(limited) != 1 || limited[0].ExDate != 0 {
		t.Errorf("limit not applied: %v", limited)
	}

	byPurpose, _ := store.GetByPurpose(ctx, "Dividend")
	if len(byPurpose) != 4 || byPurpose[0].ExDate != 500 {
		t.Errorf("GetByPurpose: unexpected order")
	}
}

func TestSubscriberStore_Upsert(t *testing.T) {
	store := NewSubscriberStore()
	ctx := context.Background()

	first, err := store.Upsert(ctx, &domain.Subscriber{ExternalID: "u1", Name: "A", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	second, err := store.Upsert(ctx, &domain.Subscriber{ExternalID: "u1", Name: "A2", Email: "a2@example.com"})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same id on update, got %s and %s", first.ID, second.ID)
	}

	if _, err := store.Upsert(ctx, &domain.Subscriber{ExternalID: "u2", Name: "B"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	emails, _ := store.AllEmails(ctx)
	if len(emails) != 1 || emails[0] != "a2@example.com" {
		t.Errorf("AllEmails = %v", emails)
	}

	if _, err := store.Upsert(ctx, &domain.Subscriber{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
