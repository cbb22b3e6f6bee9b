package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pifoods/backend/internal/cache"
	"pifoods/backend/internal/cart"
	"pifoods/backend/internal/domain"
	"pifoods/backend/internal/ledger"
	"pifoods/backend/internal/report"
	"pifoods/backend/internal/store"
	"pifoods/backend/internal/xid"
)

// Service wires the catalog, the stock ledger, the till session, and the
// history collections together. One Service owns one cart session
// (single-till deployment).
type Service struct {
	repo     store.Repository
	ledger   *ledger.Ledger
	session  *cart.Session
	catalog  cache.CatalogCache
	cacheTTL time.Duration
}

func New(repo store.Repository, stockLedger *ledger.Ledger, session *cart.Session, catalog cache.CatalogCache, cacheTTL time.Duration) *Service {
	if catalog == nil {
		catalog = cache.NoopCatalogCache{}
	}
	return &Service{
		repo:     repo,
		ledger:   stockLedger,
		session:  session,
		catalog:  catalog,
		cacheTTL: cacheTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, ok, err := s.catalog.GetProducts(ctx); err != nil {
		log.Printf("[service] WARN: catalog cache read failed: %v", err)
	} else if ok {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.SetProducts(ctx, products, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: catalog cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateProductFields(req.Name, req.CPPerKg, req.SPPerKg, req.Variants, req.Stock); err != nil {
		return domain.Product{}, err
	}
	// Purchases restock by item name, so names must stay unambiguous.
	if existing, err := s.repo.FindProductByName(ctx, req.Name); err == nil {
		return domain.Product{}, fmt.Errorf("%w: a product named %q already exists", store.ErrValidation, existing.Name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:       xid.New("prod"),
		Name:     req.Name,
		CPPerKg:  req.CPPerKg,
		SPPerKg:  req.SPPerKg,
		Variants: req.Variants,
		Stock:    req.Stock,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.CPPerKg != nil {
		updated.CPPerKg = *req.CPPerKg
	}
	if req.SPPerKg != nil {
		updated.SPPerKg = *req.SPPerKg
	}
	if req.Variants != nil {
		updated.Variants = *req.Variants
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if err := validateProductFields(updated.Name, updated.CPPerKg, updated.SPPerKg, updated.Variants, updated.Stock); err != nil {
		return domain.Product{}, err
	}
	if other, err := s.repo.FindProductByName(ctx, updated.Name); err == nil && other.ID != id {
		return domain.Product{}, fmt.Errorf("%w: a product named %q already exists", store.ErrValidation, other.Name)
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.Product{}, err
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateCatalog(ctx)
	return *saved, nil
}

// DeleteProduct removes a catalog entry. Sales history keeps its own
// snapshots of name, size, and price, so past records stay readable.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// AddToCart deducts one pack from stock and stages the line. An
// InsufficientStock rejection leaves both stock and cart untouched.
func (s *Service) AddToCart(ctx context.Context, req domain.CartAddRequest) (domain.CartView, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(req.ProductID))
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.session.AddItem(ctx, *product, strings.TrimSpace(req.Size)); err != nil {
		return domain.CartView{}, err
	}
	s.invalidateCatalog(ctx)
	return s.session.View(), nil
}

func (s *Service) RemoveFromCart(ctx context.Context, index int) (domain.CartView, error) {
	if err := s.session.RemoveItem(ctx, index); err != nil {
		return domain.CartView{}, err
	}
	s.invalidateCatalog(ctx)
	return s.session.View(), nil
}

func (s *Service) SetDiscount(_ context.Context, req domain.DiscountRequest) (domain.CartView, error) {
	if strings.TrimSpace(req.ProductID) == "" || strings.TrimSpace(req.Size) == "" {
		return domain.CartView{}, fmt.Errorf("%w: productId and size are required", store.ErrValidation)
	}
	if req.Amount < 0 {
		return domain.CartView{}, fmt.Errorf("%w: discount must not be negative", store.ErrValidation)
	}
	s.session.SetDiscount(req.ProductID, req.Size, req.Amount)
	return s.session.View(), nil
}

func (s *Service) Cart(_ context.Context) domain.CartView {
	return s.session.View()
}

func (s *Service) ResetCart(ctx context.Context) error {
	if err := s.session.Reset(ctx); err != nil {
		return err
	}
	s.invalidateCatalog(ctx)
	return nil
}

// Checkout freezes the session cart into a SaleRecord and appends it to
// sales history. This is the only path that turns the staged stock
// deductions permanent.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.SaleRecord, error) {
	date := strings.TrimSpace(req.Date)
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
		}
	}

	sale, err := s.session.Checkout(date, time.Now().UTC(), func(record domain.SaleRecord) (*domain.SaleRecord, error) {
		record.ID = xid.New("sale")
		return s.repo.CreateSale(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[service] sale recorded id=%s items=%d total=%.2f", sale.ID, len(sale.Items), sale.Total)
	return sale, nil
}

func (s *Service) ListSales(ctx context.Context) ([]domain.SaleRecord, error) {
	return s.repo.ListSales(ctx)
}

// RecordSale appends an externally built sale record. Line totals and the
// grand total are recomputed server-side; stock is not touched, because
// the deductions for a staged sale happen when lines enter a cart.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (*domain.SaleRecord, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: sale needs at least one item", store.ErrValidation)
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}
	timestamp := strings.TrimSpace(req.Timestamp)
	if timestamp == "" {
		timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	items := make([]domain.SaleLine, 0, len(req.Items))
	total := 0.0
	for _, line := range req.Items {
		if strings.TrimSpace(line.Name) == "" || strings.TrimSpace(line.Size) == "" {
			return nil, fmt.Errorf("%w: sale line needs a name and size", store.ErrValidation)
		}
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: sale line quantity must be at least 1", store.ErrValidation)
		}
		if line.Price < 0 || line.Discount < 0 {
			return nil, fmt.Errorf("%w: sale line price and discount must not be negative", store.ErrValidation)
		}
		line.Total = (line.Price - line.Discount) * float64(line.Quantity)
		items = append(items, line)
		total += line.Total
	}

	return s.repo.CreateSale(ctx, domain.SaleRecord{
		ID:        xid.New("sale"),
		Date:      date,
		Timestamp: timestamp,
		Items:     items,
		Total:     total,
	})
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.PurchaseRecord, error) {
	return s.repo.ListPurchases(ctx)
}

// RecordPurchase appends a purchase record. When the item name matches a
// catalog product the restocked weight is applied to its stock first; ad
// hoc entries ("Others", or any unknown name) only write the record.
func (s *Service) RecordPurchase(ctx context.Context, req domain.PurchaseCreateRequest) (*domain.PurchaseRecord, error) {
	req.ItemName = strings.TrimSpace(req.ItemName)
	if req.ItemName == "" {
		return nil, fmt.Errorf("%w: itemName is required", store.ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}

	adHoc := strings.EqualFold(req.ItemName, domain.OthersItemName)
	if adHoc {
		// Lump-sum entry: no weight, no stock effect.
		req.Quantity = nil
	} else {
		if req.Quantity == nil || *req.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity in kg is required for a named item", store.ErrValidation)
		}
		product, err := s.repo.FindProductByName(ctx, req.ItemName)
		switch {
		case err == nil:
			if _, err := s.ledger.ApplyPurchase(ctx, product.ID, *req.Quantity); err != nil {
				return nil, err
			}
			s.invalidateCatalog(ctx)
		case errors.Is(err, store.ErrNotFound):
			// Unknown item: record only, like an ad hoc purchase.
		default:
			return nil, err
		}
	}

	return s.repo.CreatePurchase(ctx, domain.PurchaseRecord{
		ID:          xid.New("pur"),
		ItemName:    req.ItemName,
		Quantity:    req.Quantity,
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
	})
}

// DeletePurchase is a ledger-correction log edit: the record disappears
// from history but the stock increase it caused stays in place.
func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	return s.repo.DeletePurchase(ctx, id)
}

func (s *Service) ProfitReport(ctx context.Context) (domain.ProfitReport, error) {
	products, sales, purchases, err := s.loadHistory(ctx)
	if err != nil {
		return domain.ProfitReport{}, err
	}
	return report.Profit(products, sales, purchases), nil
}

func (s *Service) WeeklyExpenses(ctx context.Context) ([]domain.WeeklyBucket, error) {
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return report.WeeklyExpenses(sales), nil
}

func (s *Service) Trending(ctx context.Context) ([]domain.TrendPoint, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	return report.Trending(products, sales), nil
}

func (s *Service) loadHistory(ctx context.Context) ([]domain.Product, []domain.SaleRecord, []domain.PurchaseRecord, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	sales, err := s.repo.ListSales(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	purchases, err := s.repo.ListPurchases(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return products, sales, purchases, nil
}

func (s *Service) invalidateCatalog(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		log.Printf("[service] WARN: catalog cache invalidation failed: %v", err)
	}
}

func validateProductFields(name string, cpPerKg float64, spPerKg float64, variants []domain.Variant, stock float64) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	if cpPerKg < 0 || spPerKg < 0 {
		return fmt.Errorf("%w: prices per kg must not be negative", store.ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", store.ErrValidation)
	}
	if len(variants) == 0 {
		return fmt.Errorf("%w: at least one variant is required", store.ErrValidation)
	}
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if _, err := domain.SizeToKg(v.Size); err != nil {
			return fmt.Errorf("%w: %v", store.ErrValidation, err)
		}
		if v.Price < 0 {
			return fmt.Errorf("%w: variant price must not be negative", store.ErrValidation)
		}
		if _, dup := seen[v.Size]; dup {
			return fmt.Errorf("%w: duplicate variant size %q", store.ErrValidation, v.Size)
		}
		seen[v.Size] = struct{}{}
	}
	return nil
}
