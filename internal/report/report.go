// Package report derives profit and trend figures from the accumulated
// sales and purchase history. Everything here is a full pass over the
// inputs, recomputed on demand; nothing is cached or updated
// incrementally.
package report

import (
	"fmt"
	"time"

	"pifoods/backend/internal/domain"
)

// ProductProfits computes per-product gross profit. For each variant the
// cost of one pack is cpPerKg × sizeKg; each matching historical sale
// line contributes (price − discount − costPerPack) × quantity, using the
// price and discount frozen into the line at checkout time. Variants with
// an unparseable size label are skipped.
func ProductProfits(products []domain.Product, sales []domain.SaleRecord) []domain.ProductProfit {
	profits := make([]domain.ProductProfit, 0, len(products))
	for _, product := range products {
		total := 0.0
		for _, variant := range product.Variants {
			sizeKg, err := domain.SizeToKg(variant.Size)
			if err != nil {
				continue
			}
			costPerPack := product.CPPerKg * sizeKg
			for _, sale := range sales {
				for _, line := range sale.Items {
					if line.ProductID != product.ID || line.Size != variant.Size {
						continue
					}
					total += (line.Price - line.Discount - costPerPack) * float64(line.Quantity)
				}
			}
		}
		profits = append(profits, domain.ProductProfit{
			ProductID: product.ID,
			Name:      product.Name,
			Profit:    total,
		})
	}
	return profits
}

func GrossProfit(profits []domain.ProductProfit) float64 {
	total := 0.0
	for _, p := range profits {
		total += p.Profit
	}
	return total
}

// TotalPurchaseCost sums price × quantity over the purchase history,
// treating a nil quantity (lump-sum "Others" entries) as 1.
func TotalPurchaseCost(purchases []domain.PurchaseRecord) float64 {
	total := 0.0
	for _, p := range purchases {
		qty := 1.0
		if p.Quantity != nil {
			qty = *p.Quantity
		}
		total += p.Price * qty
	}
	return total
}

func TotalSalesValue(sales []domain.SaleRecord) float64 {
	total := 0.0
	for _, sale := range sales {
		total += sale.Total
	}
	return total
}

// Profit assembles the full report: per-product gross profit, grand
// total, and net profit after restocking expenditure.
func Profit(products []domain.Product, sales []domain.SaleRecord, purchases []domain.PurchaseRecord) domain.ProfitReport {
	profits := ProductProfits(products, sales)
	gross := GrossProfit(profits)
	purchaseCost := TotalPurchaseCost(purchases)
	return domain.ProfitReport{
		Products:          profits,
		GrossProfit:       gross,
		TotalPurchaseCost: purchaseCost,
		NetProfit:         gross - purchaseCost,
		TotalSalesValue:   TotalSalesValue(sales),
	}
}

// WeekNumber buckets a date into its calendar week of the year:
// ceil((daysSinceJan1 + weekdayOfJan1 + 1) / 7), with Sunday as weekday 0.
func WeekNumber(date time.Time) int {
	jan1 := time.Date(date.Year(), time.January, 1, 0, 0, 0, 0, date.Location())
	days := int(date.Sub(jan1).Hours() / 24)
	return (days + int(jan1.Weekday()) + 7) / 7
}

// WeeklyExpenses sums sale totals into "year-Wn" buckets. Buckets appear
// in first-seen order over the input, not chronologically. Records whose
// date does not parse as 2006-01-02 are ignored.
func WeeklyExpenses(sales []domain.SaleRecord) []domain.WeeklyBucket {
	index := make(map[string]int)
	buckets := make([]domain.WeeklyBucket, 0, 8)

	for _, sale := range sales {
		date, err := time.Parse("2006-01-02", sale.Date)
		if err != nil {
			continue
		}
		key := fmt.Sprintf("%d-W%d", date.Year(), WeekNumber(date))
		if i, ok := index[key]; ok {
			buckets[i].Total += sale.Total
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, domain.WeeklyBucket{Week: key, Total: sale.Total})
	}
	return buckets
}

// Trending reports total kilograms sold per product across all history,
// one data point per catalog product.
func Trending(products []domain.Product, sales []domain.SaleRecord) []domain.TrendPoint {
	points := make([]domain.TrendPoint, 0, len(products))
	for _, product := range products {
		kg := 0.0
		for _, sale := range sales {
			for _, line := range sale.Items {
				if line.ProductID != product.ID {
					continue
				}
				sizeKg, err := domain.SizeToKg(line.Size)
				if err != nil {
					continue
				}
				kg += sizeKg * float64(line.Quantity)
			}
		}
		points = append(points, domain.TrendPoint{
			ProductID: product.ID,
			Name:      product.Name,
			KgSold:    kg,
		})
	}
	return points
}
