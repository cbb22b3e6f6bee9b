package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"pifoods/backend/internal/domain"
	"pifoods/backend/internal/store"
	"pifoods/backend/internal/xid"
)

// stockEpsilon absorbs float drift when checking the non-negativity
// invariant: a result within epsilon of zero counts as zero.
const stockEpsilon = 1e-9

type Store struct {
	mu        sync.RWMutex
	products  map[string]domain.Product
	sales     []domain.SaleRecord
	purchases []domain.PurchaseRecord
}

func New() *Store {
	return &Store{
		products:  make(map[string]domain.Product),
		sales:     make([]domain.SaleRecord, 0, 64),
		purchases: make([]domain.PurchaseRecord, 0, 32),
	}
}

// NewSeeded returns a store preloaded with a small dev/demo catalog.
func NewSeeded() *Store {
	seed := []domain.Product{
		{
			ID: "prod_groundnut", Name: "Groundnut Chutney Powder",
			CPPerKg: 100, SPPerKg: 250, Stock: 10,
			Variants: []domain.Variant{{Size: "100g", Price: 30}, {Size: "200g", Price: 50}, {Size: "500g", Price: 120}},
		},
		{
			ID: "prod_curryleaf", Name: "Curry Leaves Chutney Powder",
			CPPerKg: 120, SPPerKg: 280, Stock: 8,
			Variants: []domain.Variant{{Size: "100g", Price: 35}, {Size: "200g", Price: 60}, {Size: "500g", Price: 140}},
		},
		{
			ID: "prod_flaxseed", Name: "Flax Seed Chutney Powder",
			CPPerKg: 150, SPPerKg: 320, Stock: 6,
			Variants: []domain.Variant{{Size: "100g", Price: 40}, {Size: "200g", Price: 70}, {Size: "500g", Price: 160}},
		},
		{
			ID: "prod_garlic", Name: "Garlic Chutney Powder",
			CPPerKg: 110, SPPerKg: 260, Stock: 12,
			Variants: []domain.Variant{{Size: "100g", Price: 32}, {Size: "200g", Price: 55}, {Size: "500g", Price: 130}},
		},
	}

	s := New()
	for _, p := range seed {
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := cloneProduct(p)
	return &clone, nil
}

func (s *Store) FindProductByName(_ context.Context, name string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if strings.EqualFold(p.Name, name) {
			clone := cloneProduct(p)
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrValidation
	}
	// Names resolve restocks, so they must be unique.
	for _, existing := range s.products {
		if strings.EqualFold(existing.Name, product.Name) {
			return nil, store.ErrValidation
		}
	}

	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.Stock < 0 {
		return nil, store.ErrValidation
	}
	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.products {
		if existing.ID != product.ID && strings.EqualFold(existing.Name, product.Name) {
			return nil, store.ErrValidation
		}
	}

	s.products[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, id string, deltaKg float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return 0, store.ErrNotFound
	}

	next := p.Stock + deltaKg
	if next < -stockEpsilon {
		return 0, store.ErrInsufficientStock
	}
	if next < 0 {
		next = 0
	}
	p.Stock = next
	s.products[id] = p
	return next, nil
}

func (s *Store) ListSales(_ context.Context) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.SaleRecord, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, cloneSale(sale))
	}
	return sales, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.SaleRecord) (*domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}

	s.sales = append(s.sales, cloneSale(sale))
	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) ListPurchases(_ context.Context) ([]domain.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.PurchaseRecord, 0, len(s.purchases))
	for _, p := range s.purchases {
		purchases = append(purchases, clonePurchase(p))
	}
	return purchases, nil
}

func (s *Store) CreatePurchase(_ context.Context, purchase domain.PurchaseRecord) (*domain.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if purchase.ItemName == "" {
		return nil, store.ErrValidation
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}

	s.purchases = append(s.purchases, clonePurchase(purchase))
	created := clonePurchase(purchase)
	return &created, nil
}

func (s *Store) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.purchases {
		if p.ID == id {
			s.purchases = append(s.purchases[:i], s.purchases[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func cloneProduct(p domain.Product) domain.Product {
	clone := p
	clone.Variants = slices.Clone(p.Variants)
	return clone
}

func cloneSale(sale domain.SaleRecord) domain.SaleRecord {
	clone := sale
	clone.Items = slices.Clone(sale.Items)
	return clone
}

func clonePurchase(p domain.PurchaseRecord) domain.PurchaseRecord {
	clone := p
	if p.Quantity != nil {
		qty := *p.Quantity
		clone.Quantity = &qty
	}
	return clone
}
