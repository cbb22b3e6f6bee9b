package memory

import (
	"context"
	"errors"
	"testing"

	"pifoods/backend/internal/domain"
	"pifoods/backend/internal/store"
)

func TestAdjustStockClampsTinyNegatives(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{
		ID: "prod_x", Name: "X", Stock: 0.3,
		Variants: []domain.Variant{{Size: "100g", Price: 30}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// 0.3 - 3*0.1 is slightly negative in float arithmetic; the epsilon
	// check must treat it as exactly zero rather than rejecting it.
	next, err := s.AdjustStock(ctx, "prod_x", -0.1)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	next, err = s.AdjustStock(ctx, "prod_x", -0.1)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	next, err = s.AdjustStock(ctx, "prod_x", -0.1)
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if next != 0 {
		t.Fatalf("expected stock clamped to exactly 0, got %v", next)
	}

	if _, err := s.AdjustStock(ctx, "prod_x", -0.1); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock at zero stock, got %v", err)
	}
}

func TestAdjustStockUnknownProduct(t *testing.T) {
	s := New()
	if _, err := s.AdjustStock(context.Background(), "prod_missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindProductByNameIsCaseInsensitive(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.FindProductByName(ctx, "groundnut chutney powder")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if product.ID != "prod_groundnut" {
		t.Fatalf("expected prod_groundnut, got %s", product.ID)
	}

	if _, err := s.FindProductByName(ctx, "No Such Powder"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateProductRejectsDuplicateName(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{
		Name: "groundnut chutney powder", Stock: 1,
		Variants: []domain.Variant{{Size: "100g", Price: 30}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for duplicate name, got %v", err)
	}

	// Updating a product onto another product's name is rejected too,
	// while keeping its own name is fine.
	garlic, err := s.GetProduct(ctx, "prod_garlic")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	garlic.Name = "Groundnut Chutney Powder"
	if _, err := s.UpdateProduct(ctx, *garlic); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation for rename collision, got %v", err)
	}
	garlic.Name = "Garlic Chutney Powder"
	if _, err := s.UpdateProduct(ctx, *garlic); err != nil {
		t.Fatalf("expected self-update to pass, got %v", err)
	}
}

func TestListProductsIsSortedAndIsolated(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	products, err := s.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for i := 1; i < len(products); i++ {
		if products[i-1].Name > products[i].Name {
			t.Fatalf("expected products sorted by name")
		}
	}

	// Mutating the returned slice must not leak into the store.
	products[0].Variants[0].Price = 9999
	fresh, err := s.GetProduct(ctx, products[0].ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fresh.Variants[0].Price == 9999 {
		t.Fatalf("store state leaked through returned clone")
	}
}

func TestCreateSaleRequiresItems(t *testing.T) {
	s := New()
	if _, err := s.CreateSale(context.Background(), domain.SaleRecord{Date: "2026-03-14"}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPurchaseLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	qty := 5.0
	created, err := s.CreatePurchase(ctx, domain.PurchaseRecord{
		ItemName: "Groundnut Chutney Powder",
		Quantity: &qty,
		Date:     "2026-03-10",
		Price:    100,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}

	// The clone must deep-copy the quantity pointer.
	qty = 999
	listed, err := s.ListPurchases(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 1 || *listed[0].Quantity != 5 {
		t.Fatalf("expected stored quantity 5, got %+v", listed)
	}

	if err := s.DeletePurchase(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := s.DeletePurchase(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
