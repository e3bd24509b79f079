package inventory

import (
	"context"
	"errors"
	"slices"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrRentalNotFound    = errors.New("rental not found")
	ErrDuplicateID       = errors.New("product id already exists")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInsufficientStock = errors.New("insufficient quantity available")
	ErrNotAvailable      = errors.New("product not available for rent")
	ErrInvalidRental     = errors.New("invalid rental")
	ErrPersist           = errors.New("persist inventory")
)

const (
	RentalActive   = "active"
	RentalReturned = "returned"
)

type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

type Sale struct {
	SaleID       int64   `json:"saleId"`
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	QuantitySold int64   `json:"quantitySold"`
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
}

type Rental struct {
	RentalID     int64   `json:"rentalId"`
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	RenterName   string  `json:"renterName"`
	RentDate     string  `json:"rentDate"`
	ReturnDate   string  `json:"returnDate"`
	PhoneNumber  string  `json:"phoneNumber"`
	Address      string  `json:"address"`
	AmountPaid   float64 `json:"amountPaid"`
	Status       string  `json:"status"`
	ReturnedDate string  `json:"returnedDate,omitempty"`
}

// Document is the whole persisted inventory. It is always read and written
// as one unit.
type Document struct {
	Products []Product `json:"products"`
	Sales    []Sale    `json:"sales"`
	Rentals  []Rental  `json:"rentals"`
}

// Store loads and atomically replaces the Document.
//
// View returns a snapshot that callers must treat as read-only. Update runs fn
// against a private copy of the current Document and persists the result only
// when fn returns nil; mutations on one store are serialised.
type Store interface {
	View(ctx context.Context) (Document, error)
	Update(ctx context.Context, fn func(doc *Document) error) error
	Ping(ctx context.Context) error
}

func (d *Document) normalize() {
	if d.Products == nil {
		d.Products = []Product{}
	}
	if d.Sales == nil {
		d.Sales = []Sale{}
	}
	if d.Rentals == nil {
		d.Rentals = []Rental{}
	}
}

func (d Document) clone() Document {
	out := Document{
		Products: slices.Clone(d.Products),
		Sales:    slices.Clone(d.Sales),
		Rentals:  slices.Clone(d.Rentals),
	}
	out.normalize()
	return out
}

func (d *Document) productIndex(id int64) int {
	return slices.IndexFunc(d.Products, func(p Product) bool { return p.ID == id })
}

func (d *Document) rentalIndex(id int64) int {
	return slices.IndexFunc(d.Rentals, func(r Rental) bool { return r.RentalID == id })
}

func (d *Document) hasSale(id int64) bool {
	return slices.ContainsFunc(d.Sales, func(s Sale) bool { return s.SaleID == id })
}

func emptyDocument() Document {
	var d Document
	d.normalize()
	return d
}
