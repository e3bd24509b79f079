//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

type product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type rentalRef struct {
	RentalID int64 `json:"rentalId"`
}

func TestSystem_E2E_Inventory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, baseURL+"/readyz")

	id := time.Now().UnixMilli()*1000 + int64(rand.Intn(1000))

	doJSON(t, http.MethodPost, baseURL+"/api/products", map[string]any{
		"id":       id,
		"name":     "E2E Drill",
		"price":    100,
		"quantity": 5,
	}, nil, 201)
	t.Cleanup(func() {
		doJSON(t, http.MethodDelete, baseURL+"/api/products", map[string]any{"id": id}, nil, 200)
	})

	var sold struct {
		Product product `json:"product"`
		Sale    struct {
			SaleID int64   `json:"saleId"`
			Amount float64 `json:"amount"`
		} `json:"sale"`
	}
	doJSON(t, http.MethodPost, baseURL+"/api/sell", map[string]any{
		"productId":    id,
		"quantitySold": 2,
	}, &sold, 200)
	if sold.Product.Quantity != 3 || sold.Sale.Amount != 200 {
		t.Fatalf("unexpected sale: %#v", sold)
	}

	doJSON(t, http.MethodPost, baseURL+"/api/sell", map[string]any{
		"productId":    id,
		"quantitySold": 4,
	}, nil, 400)

	var rented struct {
		Rental struct {
			RentalID int64  `json:"rentalId"`
			Status   string `json:"status"`
		} `json:"rental"`
	}
	doJSON(t, http.MethodPost, baseURL+"/api/rent", map[string]any{
		"productId":   id,
		"renterName":  "E2E Renter",
		"returnDate":  "2030-01-01",
		"phoneNumber": "555-0100",
		"address":     "1 Test St",
		"amountPaid":  20,
	}, &rented, 201)
	if rented.Rental.Status != "active" {
		t.Fatalf("unexpected rental: %#v", rented)
	}

	if os.Getenv("E2E_RESTART") == "1" {
		restartInventory(t, ctx)
		waitReady(t, ctx, baseURL+"/readyz")

		var stored []product
		doJSON(t, http.MethodGet, baseURL+"/backend/inventory.json", nil, &stored, 200)
		var rentals []rentalRef
		doJSON(t, http.MethodGet, baseURL+"/api/rentals", nil, &rentals, 200)
		if !hasProduct(stored, id) || !hasRental(rentals, rented.Rental.RentalID) {
			t.Fatalf("document after restart lost product %d or its rental", id)
		}
	}

	var got product
	doJSON(t, http.MethodGet, baseURL+"/api/products/"+itoa(id), nil, &got, 200)
	if got.Quantity != 2 {
		t.Fatalf("quantity after sell and rent = %d, want 2", got.Quantity)
	}

	doJSON(t, http.MethodPut, baseURL+"/api/rentals/return", map[string]any{
		"rentalId": rented.Rental.RentalID,
	}, nil, 200)

	doJSON(t, http.MethodGet, baseURL+"/api/products/"+itoa(id), nil, &got, 200)
	if got.Quantity != 3 {
		t.Fatalf("quantity after return = %d, want 3", got.Quantity)
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func hasProduct(products []product, id int64) bool {
	for _, p := range products {
		if p.ID == id {
			return true
		}
	}
	return false
}

func hasRental(rentals []rentalRef, id int64) bool {
	for _, r := range rentals {
		if r.RentalID == id {
			return true
		}
	}
	return false
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
