package inventory

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"strings"
)

const (
	SortByID    = "id"
	SortByName  = "name"
	SortByPrice = "price"

	priceTolerance = 0.01
	topN           = 5
)

var ErrInvalidSort = errors.New("sort must be one of id, name, price")

type ProductQuery struct {
	Name  string
	Price *float64
	Sort  string
}

// FilterProducts never reorders its input; the result is a fresh slice.
func FilterProducts(products []Product, q ProductQuery) ([]Product, error) {
	name := strings.ToLower(strings.TrimSpace(q.Name))

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if q.Price != nil && math.Abs(p.Price-*q.Price) >= priceTolerance {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case "":
	case SortByID:
		slices.SortStableFunc(out, func(a, b Product) int { return cmp.Compare(a.ID, b.ID) })
	case SortByName:
		slices.SortStableFunc(out, func(a, b Product) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	case SortByPrice:
		slices.SortStableFunc(out, func(a, b Product) int { return cmp.Compare(a.Price, b.Price) })
	default:
		return nil, ErrInvalidSort
	}
	return out, nil
}

func (s *Service) SearchProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	doc, err := s.Store.View(ctx)
	if err != nil {
		return nil, err
	}
	return FilterProducts(doc.Products, q)
}

type PriceBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalProducts     int           `json:"totalProducts"`
	TotalValue        float64       `json:"totalValue"`
	TotalQuantity     int64         `json:"totalQuantity"`
	AveragePrice      float64       `json:"avgPrice"`
	PriceDistribution []PriceBucket `json:"priceDistribution"`
	TopByPrice        []Product     `json:"topByPrice"`
	TopByQuantity     []Product     `json:"topByQuantity"`
	ActiveRentals     int           `json:"activeRentals"`
	SalesCount        int           `json:"salesCount"`
	SalesTotal        float64       `json:"salesTotal"`
}

func ComputeStats(doc Document) Stats {
	st := Stats{
		TotalProducts: len(doc.Products),
		PriceDistribution: []PriceBucket{
			{Label: "0-50"},
			{Label: "50-100"},
			{Label: "100-200"},
			{Label: "200+"},
		},
		SalesCount: len(doc.Sales),
	}

	var priceSum float64
	for _, p := range doc.Products {
		st.TotalValue += p.Price * float64(p.Quantity)
		st.TotalQuantity += p.Quantity
		priceSum += p.Price

		switch {
		case p.Price < 50:
			st.PriceDistribution[0].Count++
		case p.Price < 100:
			st.PriceDistribution[1].Count++
		case p.Price < 200:
			st.PriceDistribution[2].Count++
		default:
			st.PriceDistribution[3].Count++
		}
	}
	st.TotalValue = roundCents(st.TotalValue)
	if st.TotalProducts > 0 {
		st.AveragePrice = roundCents(priceSum / float64(st.TotalProducts))
	}

	st.TopByPrice = topProducts(doc.Products, func(a, b Product) int { return cmp.Compare(b.Price, a.Price) })
	st.TopByQuantity = topProducts(doc.Products, func(a, b Product) int { return cmp.Compare(b.Quantity, a.Quantity) })

	for _, r := range doc.Rentals {
		if r.Status == RentalActive {
			st.ActiveRentals++
		}
	}
	for _, sale := range doc.Sales {
		st.SalesTotal += sale.Amount
	}
	st.SalesTotal = roundCents(st.SalesTotal)

	return st
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	doc, err := s.Store.View(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(doc), nil
}

func topProducts(products []Product, less func(a, b Product) int) []Product {
	out := slices.Clone(products)
	slices.SortStableFunc(out, less)
	if len(out) > topN {
		out = out[:topN]
	}
	if out == nil {
		out = []Product{}
	}
	return out
}
