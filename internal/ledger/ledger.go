// Package ledger owns every mutation of a product's stock quantity.
// Callers must pair every Deduct with at most one Restore; Restore has no
// upper bound, so an unpaired call over-restores.
package ledger

import (
	"context"
	"fmt"

	"pifoods/backend/internal/domain"
	"pifoods/backend/internal/store"
)

type Ledger struct {
	repo store.Repository
}

func New(repo store.Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Deduct removes packCount packs of the given size from the product's
// stock. It fails with store.ErrInsufficientStock, without mutating
// anything, when the deduction would drive stock negative.
func (l *Ledger) Deduct(ctx context.Context, productID string, size string, packCount int) (float64, error) {
	delta, err := packWeight(size, packCount)
	if err != nil {
		return 0, err
	}
	return l.repo.AdjustStock(ctx, productID, -delta)
}

// Restore is the inverse of Deduct and is unconditional.
func (l *Ledger) Restore(ctx context.Context, productID string, size string, packCount int) (float64, error) {
	delta, err := packWeight(size, packCount)
	if err != nil {
		return 0, err
	}
	return l.repo.AdjustStock(ctx, productID, delta)
}

// ApplyPurchase raises stock by a restocked weight in kilograms.
func (l *Ledger) ApplyPurchase(ctx context.Context, productID string, quantityKg float64) (float64, error) {
	if quantityKg <= 0 {
		return 0, fmt.Errorf("%w: purchase quantity must be positive", store.ErrValidation)
	}
	return l.repo.AdjustStock(ctx, productID, quantityKg)
}

func packWeight(size string, packCount int) (float64, error) {
	if packCount < 1 {
		return 0, fmt.Errorf("%w: pack count must be at least 1", store.ErrValidation)
	}
	sizeKg, err := domain.SizeToKg(size)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrValidation, err)
	}
	return sizeKg * float64(packCount), nil
}
