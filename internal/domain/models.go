package domain

// Variant is a purchasable pack size of a product. The size label encodes
// the pack weight in grams ("200g"); the price is per pack, not per kg.
type Variant struct {
	Size  string  `json:"size"`
	Price float64 `json:"price"`
}

// Product is a catalog entry. Stock is tracked in kilograms and must never
// go negative; only the stock ledger mutates it.
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	CPPerKg  float64   `json:"cpPerKg"`
	SPPerKg  float64   `json:"spPerKg"`
	Variants []Variant `json:"variants"`
	Stock    float64   `json:"stock"`
}

// Variant returns the variant with the given size label, if present.
func (p Product) Variant(size string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Size == size {
			return v, true
		}
	}
	return Variant{}, false
}

type ProductCreateRequest struct {
	Name     string    `json:"name"`
	CPPerKg  float64   `json:"cpPerKg"`
	SPPerKg  float64   `json:"spPerKg"`
	Variants []Variant `json:"variants"`
	Stock    float64   `json:"stock"`
}

type ProductUpdateRequest struct {
	Name     *string    `json:"name,omitempty"`
	CPPerKg  *float64   `json:"cpPerKg,omitempty"`
	SPPerKg  *float64   `json:"spPerKg,omitempty"`
	Variants *[]Variant `json:"variants,omitempty"`
	Stock    *float64   `json:"stock,omitempty"`
}

// CartLine is a staged sale line. Price is the variant price snapshotted
// when the line was added; later catalog edits do not change it.
type CartLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type CartView struct {
	Lines             []CartLine `json:"lines"`
	Total             float64    `json:"total"`
	TotalWithDiscount float64    `json:"totalWithDiscount"`
}

type CartAddRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
}

type DiscountRequest struct {
	ProductID string  `json:"productId"`
	Size      string  `json:"size"`
	Amount    float64 `json:"amount"`
}

type CheckoutRequest struct {
	Date string `json:"date,omitempty"`
}

// SaleLine is a frozen snapshot of a cart line at checkout time.
type SaleLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Discount  float64 `json:"discount"`
	Total     float64 `json:"total"`
}

// SaleRecord is immutable once created. Date is "2006-01-02"; Timestamp
// is the RFC3339 instant the checkout happened.
type SaleRecord struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"`
	Timestamp string     `json:"timestamp"`
	Items     []SaleLine `json:"items"`
	Total     float64    `json:"total"`
}

type SaleCreateRequest struct {
	Date      string     `json:"date"`
	Timestamp string     `json:"timestamp,omitempty"`
	Items     []SaleLine `json:"items"`
}

// PurchaseRecord is an append-only restocking entry. Quantity is nil for
// ad hoc "Others" purchases, which are priced as a lump sum.
type PurchaseRecord struct {
	ID          string   `json:"id"`
	ItemName    string   `json:"itemName"`
	Quantity    *float64 `json:"quantity"`
	Date        string   `json:"date"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
}

type PurchaseCreateRequest struct {
	ItemName    string   `json:"itemName"`
	Quantity    *float64 `json:"quantity"`
	Date        string   `json:"date"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
}

// OthersItemName marks an ad hoc purchase with no matching catalog product.
const OthersItemName = "Others"

type ProductProfit struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Profit    float64 `json:"profit"`
}

type ProfitReport struct {
	Products          []ProductProfit `json:"products"`
	GrossProfit       float64         `json:"grossProfit"`
	TotalPurchaseCost float64         `json:"totalPurchaseCost"`
	NetProfit         float64         `json:"netProfit"`
	TotalSalesValue   float64         `json:"totalSalesValue"`
}

type WeeklyBucket struct {
	Week  string  `json:"week"`
	Total float64 `json:"total"`
}

type TrendPoint struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	KgSold    float64 `json:"kgSold"`
}
