package cart

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"pifoods/backend/internal/domain"
	"pifoods/backend/internal/ledger"
	"pifoods/backend/internal/store"
	"pifoods/backend/internal/store/memory"
)

func newTestSession(t *testing.T) (*Session, *memory.Store, domain.Product) {
	t.Helper()

	repo := memory.New()
	product, err := repo.CreateProduct(context.Background(), domain.Product{
		ID:      "prod_test",
		Name:    "Test Powder",
		CPPerKg: 100,
		SPPerKg: 250,
		Stock:   10,
		Variants: []domain.Variant{
			{Size: "200g", Price: 50},
			{Size: "500g", Price: 100},
		},
	})
	if err != nil {
		t.Fatalf("seed product failed: %v", err)
	}
	return NewSession(ledger.New(repo)), repo, *product
}

func stockOf(t *testing.T, repo *memory.Store, id string) float64 {
	t.Helper()
	product, err := repo.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	return product.Stock
}

func TestAddItemDeductsAndMergesLines(t *testing.T) {
	session, repo, product := newTestSession(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := session.AddItem(ctx, product, "200g"); err != nil {
			t.Fatalf("add %d failed: %v", i, err)
		}
	}

	lines := session.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected one merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", lines[0].Quantity)
	}
	if lines[0].Price != 50 {
		t.Fatalf("expected snapshotted price 50, got %v", lines[0].Price)
	}
	if got := stockOf(t, repo, product.ID); math.Abs(got-9.4) > 1e-9 {
		t.Fatalf("expected stock 9.4 after 3x200g, got %v", got)
	}
}

func TestAddItemUnknownVariant(t *testing.T) {
	session, repo, product := newTestSession(t)

	err := session.AddItem(context.Background(), product, "300g")
	if !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound, got %v", err)
	}
	if got := stockOf(t, repo, product.ID); got != 10 {
		t.Fatalf("expected stock untouched at 10, got %v", got)
	}
	if len(session.Lines()) != 0 {
		t.Fatalf("expected empty cart after rejected add")
	}
}

func TestAddItemInsufficientStockLeavesCartUntouched(t *testing.T) {
	session, repo, product := newTestSession(t)
	ctx := context.Background()

	// Drain stock to below one 500g pack.
	if _, err := repo.AdjustStock(ctx, product.ID, -9.9); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	err := session.AddItem(ctx, product, "500g")
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if len(session.Lines()) != 0 {
		t.Fatalf("expected no staged line after rejected add")
	}
}

func TestRemoveItemRestoresFullLineWeight(t *testing.T) {
	session, repo, product := newTestSession(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := session.AddItem(ctx, product, "500g"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	if got := stockOf(t, repo, product.ID); math.Abs(got-9.0) > 1e-9 {
		t.Fatalf("expected stock 9.0, got %v", got)
	}

	if err := session.RemoveItem(ctx, 0); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if got := stockOf(t, repo, product.ID); math.Abs(got-10) > 1e-9 {
		t.Fatalf("expected stock restored to 10, got %v", got)
	}
	if len(session.Lines()) != 0 {
		t.Fatalf("expected empty cart after removal")
	}

	if err := session.RemoveItem(ctx, 0); !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound for empty cart, got %v", err)
	}
}

func TestDiscountTotals(t *testing.T) {
	session, _, product := newTestSession(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := session.AddItem(ctx, product, "500g"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	session.SetDiscount(product.ID, "500g", 10)

	if got := session.Total(); got != 200 {
		t.Fatalf("expected undiscounted total 200, got %v", got)
	}
	if got := session.TotalWithDiscount(); got != 180 {
		t.Fatalf("expected discounted total 180, got %v", got)
	}

	// A discount above the price drives the total negative; no clamping.
	session.SetDiscount(product.ID, "500g", 150)
	if got := session.TotalWithDiscount(); got != -100 {
		t.Fatalf("expected total -100, got %v", got)
	}
}

func TestResetRestoresEverythingButKeepsDiscounts(t *testing.T) {
	session, repo, product := newTestSession(t)
	ctx := context.Background()

	if err := session.AddItem(ctx, product, "200g"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := session.AddItem(ctx, product, "500g"); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	session.SetDiscount(product.ID, "500g", 5)

	if err := session.Reset(ctx); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if got := stockOf(t, repo, product.ID); math.Abs(got-10) > 1e-9 {
		t.Fatalf("expected stock restored to 10, got %v", got)
	}
	if len(session.Lines()) != 0 {
		t.Fatalf("expected empty cart after reset")
	}
	if got := session.Discount(product.ID, "500g"); got != 5 {
		t.Fatalf("expected discount override to survive reset, got %v", got)
	}
}

func TestResetFailureDoesNotRestoreTwice(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	first, err := repo.CreateProduct(ctx, domain.Product{
		ID: "prod_first", Name: "First Powder", Stock: 10,
		Variants: []domain.Variant{{Size: "200g", Price: 50}},
	})
	if err != nil {
		t.Fatalf("seed first product failed: %v", err)
	}
	second, err := repo.CreateProduct(ctx, domain.Product{
		ID: "prod_second", Name: "Second Powder", Stock: 10,
		Variants: []domain.Variant{{Size: "200g", Price: 55}},
	})
	if err != nil {
		t.Fatalf("seed second product failed: %v", err)
	}

	session := NewSession(ledger.New(repo))
	if err := session.AddItem(ctx, *first, "200g"); err != nil {
		t.Fatalf("add first failed: %v", err)
	}
	if err := session.AddItem(ctx, *second, "200g"); err != nil {
		t.Fatalf("add second failed: %v", err)
	}

	// The second line's product disappears before the reset.
	if err := repo.DeleteProduct(ctx, second.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := session.Reset(ctx); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("reset %d: expected ErrNotFound, got %v", i, err)
		}
	}

	// The first line was restored exactly once; retrying the failed reset
	// must not restore it again.
	if got := stockOf(t, repo, first.ID); math.Abs(got-10) > 1e-9 {
		t.Fatalf("expected first product stock back at exactly 10, got %v", got)
	}
	lines := session.Lines()
	if len(lines) != 1 || lines[0].ProductID != second.ID {
		t.Fatalf("expected only the unrestored line to remain, got %+v", lines)
	}
}

func TestCheckoutFreezesLinesAndClearsCart(t *testing.T) {
	session, repo, product := newTestSession(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := session.AddItem(ctx, product, "500g"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	session.SetDiscount(product.ID, "500g", 10)

	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	sale, err := session.Checkout("", now, func(record domain.SaleRecord) (*domain.SaleRecord, error) {
		record.ID = "sale_1"
		return &record, nil
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if sale.Date != "2026-03-14" {
		t.Fatalf("expected default date 2026-03-14, got %s", sale.Date)
	}
	if len(sale.Items) != 1 {
		t.Fatalf("expected one frozen line, got %d", len(sale.Items))
	}
	line := sale.Items[0]
	if line.Discount != 10 {
		t.Fatalf("expected frozen discount 10, got %v", line.Discount)
	}
	if line.Total != 180 {
		t.Fatalf("expected frozen line total 180, got %v", line.Total)
	}
	if sale.Total != 180 {
		t.Fatalf("expected sale total 180, got %v", sale.Total)
	}

	if len(session.Lines()) != 0 {
		t.Fatalf("expected cart cleared after checkout")
	}
	// The staged deduction stays committed, nothing is restored.
	if got := stockOf(t, repo, product.ID); math.Abs(got-9.0) > 1e-9 {
		t.Fatalf("expected stock to stay at 9.0 after checkout, got %v", got)
	}
}

func TestCheckoutKeepsCartWhenPersistFails(t *testing.T) {
	session, _, product := newTestSession(t)
	ctx := context.Background()

	if err := session.AddItem(ctx, product, "200g"); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	boom := fmt.Errorf("storage down")
	_, err := session.Checkout("2026-03-14", time.Now(), func(domain.SaleRecord) (*domain.SaleRecord, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected persist error, got %v", err)
	}
	if len(session.Lines()) != 1 {
		t.Fatalf("expected cart to survive persist failure")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	session, _, _ := newTestSession(t)

	_, err := session.Checkout("", time.Now(), func(record domain.SaleRecord) (*domain.SaleRecord, error) {
		return &record, nil
	})
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}
