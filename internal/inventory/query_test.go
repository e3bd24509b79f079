package inventory

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 3, Name: "drill press", Price: 250, Quantity: 1},
		{ID: 1, Name: "Cordless Drill", Price: 99.99, Quantity: 10},
		{ID: 2, Name: "Saw", Price: 15, Quantity: 40},
		{ID: 4, Name: "Hammer", Price: 15.004, Quantity: 7},
	}
}

func ids(products []Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilterProducts(t *testing.T) {
	price := 15.0

	cases := []struct {
		name string
		q    ProductQuery
		want []int64
	}{
		{name: "no filter keeps order", q: ProductQuery{}, want: []int64{3, 1, 2, 4}},
		{name: "name is case insensitive", q: ProductQuery{Name: "DRILL"}, want: []int64{3, 1}},
		{name: "price within a cent", q: ProductQuery{Price: &price}, want: []int64{2, 4}},
		{name: "sort by id", q: ProductQuery{Sort: SortByID}, want: []int64{1, 2, 3, 4}},
		{name: "sort by name", q: ProductQuery{Sort: SortByName}, want: []int64{1, 3, 4, 2}},
		{name: "sort by price is stable", q: ProductQuery{Sort: SortByPrice}, want: []int64{2, 4, 1, 3}},
		{name: "filter and sort", q: ProductQuery{Name: "drill", Sort: SortByPrice}, want: []int64{1, 3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := sampleProducts()
			got, err := FilterProducts(in, tc.q)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(got))
			assert.Equal(t, sampleProducts(), in)
		})
	}

	_, err := FilterProducts(sampleProducts(), ProductQuery{Sort: "quantity"})
	require.ErrorIs(t, err, ErrInvalidSort)
}

func TestComputeStats(t *testing.T) {
	doc := Document{
		Products: sampleProducts(),
		Sales: []Sale{
			{SaleID: 1, ProductID: 2, QuantitySold: 2, Amount: 30},
			{SaleID: 2, ProductID: 1, QuantitySold: 1, Amount: 99.99},
		},
		Rentals: []Rental{
			{RentalID: 1, Status: RentalActive},
			{RentalID: 2, Status: RentalReturned},
			{RentalID: 3, Status: RentalActive},
		},
	}

	st := ComputeStats(doc)

	assert.Equal(t, 4, st.TotalProducts)
	assert.Equal(t, int64(58), st.TotalQuantity)
	assert.Equal(t, 1954.93, st.TotalValue)
	assert.Equal(t, 95.0, st.AveragePrice)
	assert.Equal(t, []PriceBucket{
		{Label: "0-50", Count: 2},
		{Label: "50-100", Count: 1},
		{Label: "100-200", Count: 0},
		{Label: "200+", Count: 1},
	}, st.PriceDistribution)
	assert.Equal(t, []int64{3, 1, 4, 2}, ids(st.TopByPrice))
	assert.Equal(t, []int64{2, 1, 4, 3}, ids(st.TopByQuantity))
	assert.Equal(t, 2, st.ActiveRentals)
	assert.Equal(t, 2, st.SalesCount)
	assert.Equal(t, 129.99, st.SalesTotal)
}

func TestComputeStats_EmptyInventoryEncodesArrays(t *testing.T) {
	b, err := json.Marshal(ComputeStats(emptyDocument()))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"topByPrice":[]`)
	assert.Contains(t, string(b), `"topByQuantity":[]`)
	assert.Contains(t, string(b), `"avgPrice":0`)
}
