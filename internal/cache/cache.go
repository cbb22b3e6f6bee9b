package cache

import (
	"context"
	"time"

	"pifoods/backend/internal/domain"
)

// CatalogCache is a read-through cache for the product listing. It is an
// acceleration layer only: every stock or catalog write must invalidate
// it, and the repository stays the source of truth.
type CatalogCache interface {
	GetProducts(ctx context.Context) ([]domain.Product, bool, error)
	SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) GetProducts(context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) SetProducts(context.Context, []domain.Product, time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(context.Context) error {
	return nil
}
