package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Service implements the inventory operations as single transactions against
// a Store.
type Service struct {
	Store   Store
	IDs     *IDGen
	Now     func() time.Time
	Metrics *Metrics
}

func NewService(store Store, metrics *Metrics) *Service {
	return &Service{
		Store:   store,
		IDs:     NewIDGen(nil),
		Now:     time.Now,
		Metrics: metrics,
	}
}

type NewProduct struct {
	ID       int64
	Name     string
	Price    float64
	Quantity int64
}

// ProductPatch carries only the fields to overwrite; nil fields are kept.
type ProductPatch struct {
	Name     *string
	Price    *float64
	Quantity *int64
}

type RentRequest struct {
	ProductID   int64
	RenterName  string
	ReturnDate  string
	PhoneNumber string
	Address     string
	AmountPaid  float64
}

var errAlreadyReturned = errors.New("rental already returned")

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	doc, err := s.Store.View(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Products, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	doc, err := s.Store.View(ctx)
	if err != nil {
		return Product{}, err
	}
	i := doc.productIndex(id)
	if i < 0 {
		return Product{}, ErrProductNotFound
	}
	return doc.Products[i], nil
}

func (s *Service) AddProduct(ctx context.Context, in NewProduct) (Product, error) {
	p := Product{
		ID:       in.ID,
		Name:     strings.TrimSpace(in.Name),
		Price:    in.Price,
		Quantity: in.Quantity,
	}
	if err := validateProduct(p); err != nil {
		return Product{}, err
	}

	err := s.update(ctx, "add_product", func(doc *Document) error {
		if doc.productIndex(p.ID) >= 0 {
			return ErrDuplicateID
		}
		doc.Products = append(doc.Products, p)
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	var out Product

	err := s.update(ctx, "update_product", func(doc *Document) error {
		i := doc.productIndex(id)
		if i < 0 {
			return ErrProductNotFound
		}

		p := doc.Products[i]
		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.Quantity != nil {
			p.Quantity = *patch.Quantity
		}
		if err := validateProduct(p); err != nil {
			return err
		}

		doc.Products[i] = p
		out = p
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return out, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.update(ctx, "delete_product", func(doc *Document) error {
		n := len(doc.Products)
		doc.Products = slices.DeleteFunc(doc.Products, func(p Product) bool { return p.ID == id })
		if len(doc.Products) == n {
			return ErrProductNotFound
		}
		return nil
	})
}

func (s *Service) Sell(ctx context.Context, productID, quantitySold int64) (Product, Sale, error) {
	if quantitySold <= 0 {
		return Product{}, Sale{}, ErrInvalidQuantity
	}

	var (
		product Product
		sale    Sale
	)
	err := s.update(ctx, "sell", func(doc *Document) error {
		i := doc.productIndex(productID)
		if i < 0 {
			return ErrProductNotFound
		}
		p := &doc.Products[i]
		if quantitySold > p.Quantity {
			return ErrInsufficientStock
		}

		p.Quantity -= quantitySold

		id := s.IDs.Next()
		for doc.hasSale(id) {
			id = s.IDs.Next()
		}
		sale = Sale{
			SaleID:       id,
			ProductID:    p.ID,
			ProductName:  p.Name,
			QuantitySold: quantitySold,
			Date:         s.today(),
			Amount:       roundCents(p.Price * float64(quantitySold)),
		}
		doc.Sales = append(doc.Sales, sale)
		product = *p
		return nil
	})
	if err != nil {
		return Product{}, Sale{}, err
	}
	return product, sale, nil
}

func (s *Service) Rent(ctx context.Context, req RentRequest) (Rental, Product, error) {
	req.RenterName = strings.TrimSpace(req.RenterName)
	req.ReturnDate = strings.TrimSpace(req.ReturnDate)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Address = strings.TrimSpace(req.Address)
	if err := validateRent(req); err != nil {
		return Rental{}, Product{}, err
	}

	var (
		rental  Rental
		product Product
	)
	err := s.update(ctx, "rent", func(doc *Document) error {
		i := doc.productIndex(req.ProductID)
		if i < 0 {
			return ErrProductNotFound
		}
		p := &doc.Products[i]
		if p.Quantity <= 0 {
			return ErrNotAvailable
		}

		p.Quantity = max(0, p.Quantity-1)

		id := s.IDs.Next()
		for doc.rentalIndex(id) >= 0 {
			id = s.IDs.Next()
		}
		rental = Rental{
			RentalID:    id,
			ProductID:   p.ID,
			ProductName: p.Name,
			RenterName:  req.RenterName,
			RentDate:    s.today(),
			ReturnDate:  req.ReturnDate,
			PhoneNumber: req.PhoneNumber,
			Address:     req.Address,
			AmountPaid:  req.AmountPaid,
			Status:      RentalActive,
		}
		doc.Rentals = append(doc.Rentals, rental)
		product = *p
		return nil
	})
	if err != nil {
		return Rental{}, Product{}, err
	}
	return rental, product, nil
}

func (s *Service) ListRentals(ctx context.Context) ([]Rental, error) {
	doc, err := s.Store.View(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Rentals, nil
}

func (s *Service) ListSales(ctx context.Context) ([]Sale, error) {
	doc, err := s.Store.View(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Sales, nil
}

// ReturnRental closes an active rental and puts its unit back in stock.
// Returning an already returned rental succeeds without writing; the second
// result reports that case.
func (s *Service) ReturnRental(ctx context.Context, rentalID int64) (Rental, bool, error) {
	var rental Rental

	err := s.update(ctx, "return_rental", func(doc *Document) error {
		i := doc.rentalIndex(rentalID)
		if i < 0 {
			return ErrRentalNotFound
		}
		r := &doc.Rentals[i]
		if r.Status == RentalReturned {
			rental = *r
			return errAlreadyReturned
		}

		r.Status = RentalReturned
		r.ReturnedDate = s.today()
		if j := doc.productIndex(r.ProductID); j >= 0 {
			doc.Products[j].Quantity++
		}
		rental = *r
		return nil
	})
	if errors.Is(err, errAlreadyReturned) {
		return rental, true, nil
	}
	if err != nil {
		return Rental{}, false, err
	}
	return rental, false, nil
}

// RefreshMetrics sets the inventory gauges from the stored Document.
func (s *Service) RefreshMetrics(ctx context.Context) error {
	doc, err := s.Store.View(ctx)
	if err != nil {
		return err
	}
	s.Metrics.observe(doc)
	return nil
}

func (s *Service) update(ctx context.Context, op string, fn func(doc *Document) error) error {
	var after Document
	err := s.Store.Update(ctx, func(doc *Document) error {
		if err := fn(doc); err != nil {
			return err
		}
		after = *doc
		return nil
	})

	if !errors.Is(err, errAlreadyReturned) {
		s.Metrics.operation(op, err)
	}
	if err == nil {
		s.Metrics.observe(after)
	}
	return err
}

func (s *Service) today() string {
	return s.Now().UTC().Format(dateLayout)
}

func validateProduct(p Product) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name required", ErrInvalidProduct)
	case p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0):
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	case p.Quantity < 0:
		return fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

func validateRent(req RentRequest) error {
	if req.RenterName == "" || req.ReturnDate == "" || req.PhoneNumber == "" || req.Address == "" {
		return fmt.Errorf("%w: all rental fields are required", ErrInvalidRental)
	}
	if req.AmountPaid < 0 || math.IsNaN(req.AmountPaid) || math.IsInf(req.AmountPaid, 0) {
		return fmt.Errorf("%w: amount paid must not be negative", ErrInvalidRental)
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
