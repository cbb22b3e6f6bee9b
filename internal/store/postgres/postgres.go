package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pifoods/backend/internal/domain"
	"pifoods/backend/internal/store"
)

// Store persists the catalog and both history collections in Postgres.
// Variant lists and sale line items are stored as jsonb columns; the
// collections are small enough that filtering happens in SQL only where
// it is free (ordering, lookups by id or name).
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cp_per_kg, sp_per_kg, stock, variants
		FROM products
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, cp_per_kg, sp_per_kg, stock, variants
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) FindProductByName(ctx context.Context, name string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, cp_per_kg, sp_per_kg, stock, variants
		FROM products
		WHERE lower(name) = lower($1)
		LIMIT 1
	`, name)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	variants, err := json.Marshal(product.Variants)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, cp_per_kg, sp_per_kg, stock, variants, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now(),now())
	`, product.ID, product.Name, product.CPPerKg, product.SPPerKg, product.Stock, variants)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	variants, err := json.Marshal(product.Variants)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, cp_per_kg = $3, sp_per_kg = $4, stock = $5, variants = $6, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.CPPerKg, product.SPPerKg, product.Stock, variants)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AdjustStock applies the delta and the non-negativity check in a single
// conditional UPDATE, so concurrent deductions cannot race stock below
// zero.
func (s *Store) AdjustStock(ctx context.Context, id string, deltaKg float64) (float64, error) {
	var next float64
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = GREATEST(stock + $2, 0), updated_at = now()
		WHERE id = $1 AND stock + $2 >= -1e-9
		RETURNING stock
	`, id, deltaKg).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	// No row updated: either the product is missing or the deduction
	// would overdraw the stock.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)
	`, id).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, store.ErrNotFound
	}
	return 0, store.ErrInsufficientStock
}

func (s *Store) ListSales(ctx context.Context) ([]domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_date, ts, items, total
		FROM sales
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.SaleRecord, 0, 64)
	for rows.Next() {
		var sale domain.SaleRecord
		var items []byte
		if err := rows.Scan(&sale.ID, &sale.Date, &sale.Timestamp, &items, &sale.Total); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(items, &sale.Items); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.SaleRecord) (*domain.SaleRecord, error) {
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (id, sale_date, ts, items, total, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, sale.ID, sale.Date, sale.Timestamp, items, sale.Total)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]domain.PurchaseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_name, qty_kg, purchase_date, description, price
		FROM purchase_history
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.PurchaseRecord, 0, 64)
	for rows.Next() {
		var purchase domain.PurchaseRecord
		var qty sql.NullFloat64
		var description sql.NullString
		if err := rows.Scan(&purchase.ID, &purchase.ItemName, &qty, &purchase.Date, &description, &purchase.Price); err != nil {
			return nil, err
		}
		if qty.Valid {
			q := qty.Float64
			purchase.Quantity = &q
		}
		if description.Valid {
			purchase.Description = description.String
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.PurchaseRecord) (*domain.PurchaseRecord, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchase_history (id, item_name, qty_kg, purchase_date, description, price, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, purchase.ID, purchase.ItemName, nullFloat(purchase.Quantity), purchase.Date, nullIfEmpty(purchase.Description), purchase.Price)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := purchase
	return &created, nil
}

func (s *Store) DeletePurchase(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM purchase_history WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var product domain.Product
	var variants []byte
	if err := row.Scan(&product.ID, &product.Name, &product.CPPerKg, &product.SPPerKg, &product.Stock, &variants); err != nil {
		return domain.Product{}, err
	}
	if err := json.Unmarshal(variants, &product.Variants); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullFloat(val *float64) any {
	if val == nil {
		return nil
	}
	return *val
}
