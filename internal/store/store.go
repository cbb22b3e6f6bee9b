package store

import (
	"context"
	"errors"

	"pifoods/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("invalid payload")
)

// Repository is the persistence boundary for the three collections
// (products, sales, purchaseHistory). Implementations must be safe for
// concurrent use. AdjustStock is the single mutation path for a product's
// stock field and must apply the non-negativity check and the write as
// one atomic step.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	FindProductByName(ctx context.Context, name string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	// AdjustStock adds deltaKg (negative for deductions) to the product's
	// stock and returns the new value. A deduction that would drive stock
	// below zero fails with ErrInsufficientStock and mutates nothing.
	AdjustStock(ctx context.Context, id string, deltaKg float64) (float64, error)

	ListSales(ctx context.Context) ([]domain.SaleRecord, error)
	CreateSale(ctx context.Context, sale domain.SaleRecord) (*domain.SaleRecord, error)

	ListPurchases(ctx context.Context) ([]domain.PurchaseRecord, error)
	CreatePurchase(ctx context.Context, purchase domain.PurchaseRecord) (*domain.PurchaseRecord, error)
	DeletePurchase(ctx context.Context, id string) error
}
