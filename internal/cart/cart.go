// Package cart holds the per-session staging area for prospective sale
// lines. All stock movement goes through the StockLedger; the session
// never touches product stock directly.
package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"pifoods/backend/internal/domain"
)

var (
	ErrVariantNotFound = errors.New("variant not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrLineNotFound    = errors.New("cart line not found")
)

type StockLedger interface {
	Deduct(ctx context.Context, productID string, size string, packCount int) (float64, error)
	Restore(ctx context.Context, productID string, size string, packCount int) (float64, error)
}

type discountKey struct {
	productID string
	size      string
}

// Session is one till's active cart plus its discount overrides. A single
// mutex serializes mutations; the ledger call happens before the local
// line is updated so a failed deduction leaves the cart untouched.
type Session struct {
	mu        sync.Mutex
	ledger    StockLedger
	lines     []domain.CartLine
	discounts map[discountKey]float64
}

func NewSession(ledger StockLedger) *Session {
	return &Session{
		ledger:    ledger,
		discounts: make(map[discountKey]float64),
	}
}

// AddItem stages one pack of the chosen variant. The variant price is
// snapshotted into the line; a matching line (same product and size) is
// incremented instead of duplicated.
func (s *Session) AddItem(ctx context.Context, product domain.Product, size string) error {
	variant, ok := product.Variant(size)
	if !ok {
		return fmt.Errorf("%w: %s has no %q variant", ErrVariantNotFound, product.Name, size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ledger.Deduct(ctx, product.ID, size, 1); err != nil {
		return err
	}

	for i := range s.lines {
		if s.lines[i].ProductID == product.ID && s.lines[i].Size == size {
			s.lines[i].Quantity++
			return nil
		}
	}
	s.lines = append(s.lines, domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Size:      size,
		Price:     variant.Price,
		Quantity:  1,
	})
	return nil
}

// RemoveItem restores the full weight deducted for the line, then drops it.
func (s *Session) RemoveItem(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.lines) {
		return ErrLineNotFound
	}
	line := s.lines[index]
	if _, err := s.ledger.Restore(ctx, line.ProductID, line.Size, line.Quantity); err != nil {
		return err
	}
	s.lines = append(s.lines[:index], s.lines[index+1:]...)
	return nil
}

// Reset restores every remaining line through the same path as a single
// removal. Each line is dropped the moment its restore succeeds, so a
// reset that fails partway keeps only the unrestored tail and a retry
// never restores the same line twice. Discount overrides survive a reset.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.lines) > 0 {
		line := s.lines[0]
		if _, err := s.ledger.Restore(ctx, line.ProductID, line.Size, line.Quantity); err != nil {
			return err
		}
		s.lines = s.lines[1:]
	}
	return nil
}

func (s *Session) SetDiscount(productID string, size string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discounts[discountKey{productID, size}] = amount
}

// Discount returns the override for (productID, size), defaulting to 0.
func (s *Session) Discount(productID string, size string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discounts[discountKey{productID, size}]
}

func (s *Session) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.lines)
}

func (s *Session) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0.0
	for _, line := range s.lines {
		total += line.Price * float64(line.Quantity)
	}
	return total
}

// TotalWithDiscount subtracts discount×quantity per line. A discount
// larger than the price makes the line total negative; that is accepted
// behavior, not clamped.
func (s *Session) TotalWithDiscount() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalWithDiscountLocked()
}

func (s *Session) totalWithDiscountLocked() float64 {
	total := 0.0
	for _, line := range s.lines {
		discount := s.discounts[discountKey{line.ProductID, line.Size}]
		total += (line.Price - discount) * float64(line.Quantity)
	}
	return total
}

func (s *Session) View() domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0.0
	for _, line := range s.lines {
		total += line.Price * float64(line.Quantity)
	}
	return domain.CartView{
		Lines:             slices.Clone(s.lines),
		Total:             total,
		TotalWithDiscount: s.totalWithDiscountLocked(),
	}
}

// Checkout freezes the cart into a SaleRecord, hands it to persist, and
// clears the lines only after persist succeeds. The stock deducted while
// staging becomes permanent at that point; nothing is restored. On
// persist failure the cart (and its deductions) stay as they were.
func (s *Session) Checkout(
	saleDate string,
	now time.Time,
	persist func(domain.SaleRecord) (*domain.SaleRecord, error),
) (*domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.lines) == 0 {
		return nil, ErrEmptyCart
	}
	if saleDate == "" {
		saleDate = now.Format("2006-01-02")
	}

	items := make([]domain.SaleLine, 0, len(s.lines))
	total := 0.0
	for _, line := range s.lines {
		discount := s.discounts[discountKey{line.ProductID, line.Size}]
		lineTotal := (line.Price - discount) * float64(line.Quantity)
		items = append(items, domain.SaleLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Size:      line.Size,
			Price:     line.Price,
			Quantity:  line.Quantity,
			Discount:  discount,
			Total:     lineTotal,
		})
		total += lineTotal
	}

	saved, err := persist(domain.SaleRecord{
		Date:      saleDate,
		Timestamp: now.Format(time.RFC3339),
		Items:     items,
		Total:     total,
	})
	if err != nil {
		return nil, err
	}

	s.lines = s.lines[:0]
	return saved, nil
}
