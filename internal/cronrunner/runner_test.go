package cronrunner

import (
	"context"
	"testing"
	"time"
)

func TestRunner_AddAndFire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(nil, ctx)
	fired := make(chan context.Context, 1)
	if _, err := r.Add("tick", "* * * * * *", func(c context.Context) {
		select {
		case fired <- c:
		default:
		}
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	r.Start()
	defer r.Stop()

	select {
	case got := <-fired:
		if got != ctx {
			t.Error("expected job to receive the base context")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}
}

func TestRunner_EmptySpecDisables(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Add("off", "", func(context.Context) {}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if r.Entries() != 0 {
		t.Errorf("expected no entries, got %d", r.Entries())
	}
}

func TestRunner_InvalidSpec(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Add("bad", "not a spec", func(context.Context) {}); err == nil {
		t.Fatal("expected error for invalid spec")
	}
}
