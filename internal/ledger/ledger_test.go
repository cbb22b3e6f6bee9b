package ledger

import (
	"context"
	"errors"
	"math"
	"testing"

	"pifoods/backend/internal/store"
	"pifoods/backend/internal/store/memory"
)

func TestDeductAndRestoreRoundTrip(t *testing.T) {
	repo := memory.NewSeeded()
	l := New(repo)
	ctx := context.Background()

	next, err := l.Deduct(ctx, "prod_groundnut", "200g", 3)
	if err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if math.Abs(next-9.4) > 1e-9 {
		t.Fatalf("expected stock 9.4 after deducting 3x200g from 10, got %v", next)
	}

	next, err = l.Restore(ctx, "prod_groundnut", "200g", 3)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if math.Abs(next-10) > 1e-9 {
		t.Fatalf("expected stock back at 10, got %v", next)
	}
}

func TestDeductRejectsOverdraw(t *testing.T) {
	repo := memory.NewSeeded()
	l := New(repo)
	ctx := context.Background()

	// Seeded groundnut stock is 10kg; 21 packs of 500g needs 10.5kg.
	_, err := l.Deduct(ctx, "prod_groundnut", "500g", 21)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The failed deduction must not have touched stock.
	product, err := repo.GetProduct(ctx, "prod_groundnut")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.Stock != 10 {
		t.Fatalf("expected stock unchanged at 10, got %v", product.Stock)
	}
}

func TestDeductExactRemainingStock(t *testing.T) {
	repo := memory.NewSeeded()
	l := New(repo)
	ctx := context.Background()

	// 20 packs of 500g consumes exactly the 10kg on hand.
	next, err := l.Deduct(ctx, "prod_groundnut", "500g", 20)
	if err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if next != 0 {
		t.Fatalf("expected stock 0, got %v", next)
	}
}

func TestDeductValidatesInput(t *testing.T) {
	l := New(memory.NewSeeded())
	ctx := context.Background()

	if _, err := l.Deduct(ctx, "prod_groundnut", "200g", 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero pack count, got %v", err)
	}
	if _, err := l.Deduct(ctx, "prod_groundnut", "bogus", 1); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for bad size label, got %v", err)
	}
	if _, err := l.Deduct(ctx, "prod_missing", "200g", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown product, got %v", err)
	}
}

func TestApplyPurchase(t *testing.T) {
	repo := memory.NewSeeded()
	l := New(repo)
	ctx := context.Background()

	next, err := l.ApplyPurchase(ctx, "prod_groundnut", 5)
	if err != nil {
		t.Fatalf("apply purchase failed: %v", err)
	}
	if next != 15 {
		t.Fatalf("expected stock 15 after restocking 5kg, got %v", next)
	}

	if _, err := l.ApplyPurchase(ctx, "prod_groundnut", 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for zero quantity, got %v", err)
	}
	if _, err := l.ApplyPurchase(ctx, "prod_groundnut", -1); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for negative quantity, got %v", err)
	}
}
