package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"NexStock/pkg/kit"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(optionalValue, OptInt{}, OptFloat{})
	return v
}

// optionalValue lets "required" treat an unset optional number as missing
// while still accepting an explicit zero.
func optionalValue(f reflect.Value) any {
	switch o := f.Interface().(type) {
	case OptInt:
		if p := o.Ptr(); p != nil {
			return p
		}
	case OptFloat:
		if p := o.Ptr(); p != nil {
			return p
		}
	}
	return nil
}

type Server struct {
	Service *Service
	Log     *zap.Logger

	// Static serves every request no API route matches. Nil answers 404.
	Static http.Handler

	// WriteLimiter throttles mutating routes. Nil disables throttling.
	WriteLimiter *kit.IPRateLimiter
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Service.Store.Ping(ctx); err != nil {
			s.logger().Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	write := s.writeMiddleware()

	r.Route("/api", func(api chi.Router) {
		api.Get("/products", s.listProducts)
		api.With(write).Post("/products", s.addProduct)
		api.With(write).Put("/products", s.updateProduct)
		api.With(write).Delete("/products", s.deleteProduct)
		api.Get("/products/{id}", s.getProduct)

		api.With(write).Post("/sell", s.sell)
		api.Get("/sales", s.listSales)

		api.With(write).Post("/rent", s.rent)
		api.Get("/rentals", s.listRentals)
		api.With(write).Put("/rentals/return", s.returnRental)

		api.Get("/stats", s.stats)
	})

	r.Get("/backend/inventory.json", s.legacyInventory)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	})
	r.NotFound(s.notFound)

	return r
}

type addProductReq struct {
	ID       Int      `json:"id" validate:"required"`
	Name     string   `json:"name" validate:"required"`
	Price    OptFloat `json:"price" validate:"required"`
	Quantity OptInt   `json:"quantity" validate:"required"`
}

type updateProductReq struct {
	ID       Int      `json:"id" validate:"required"`
	Name     *string  `json:"name"`
	Price    OptFloat `json:"price"`
	Quantity OptInt   `json:"quantity"`
}

type deleteProductReq struct {
	ID Int `json:"id" validate:"required"`
}

type sellReq struct {
	ProductID    Int    `json:"productId" validate:"required"`
	QuantitySold OptInt `json:"quantitySold" validate:"required"`
}

type rentReq struct {
	ProductID   Int      `json:"productId" validate:"required"`
	RenterName  string   `json:"renterName" validate:"required"`
	ReturnDate  string   `json:"returnDate" validate:"required"`
	PhoneNumber string   `json:"phoneNumber" validate:"required"`
	Address     string   `json:"address" validate:"required"`
	AmountPaid  OptFloat `json:"amountPaid" validate:"required"`
}

type returnRentalReq struct {
	RentalID Int `json:"rentalId" validate:"required"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseProductQuery(r.URL.Query())
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	products, err := s.Service.SearchProducts(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err, "Failed to load products")
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusNotFound, "Product not found", nil)
		return
	}

	p, err := s.Service.GetProduct(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "Failed to load product")
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	var req addProductReq
	if !s.decodeValid(w, r, &req, "Missing required fields") {
		return
	}

	p, err := s.Service.AddProduct(r.Context(), NewProduct{
		ID:       int64(req.ID),
		Name:     req.Name,
		Price:    float64(req.Price.Value),
		Quantity: int64(req.Quantity.Value),
	})
	if err != nil {
		s.writeError(w, r, err, "Failed to save product")
		return
	}
	kit.WriteSuccess(w, http.StatusCreated, "Product added", map[string]any{"product": p})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductReq
	if !s.decodeValid(w, r, &req, "Product ID required") {
		return
	}

	p, err := s.Service.UpdateProduct(r.Context(), int64(req.ID), ProductPatch{
		Name:     req.Name,
		Price:    req.Price.Ptr(),
		Quantity: req.Quantity.Ptr(),
	})
	if err != nil {
		s.writeError(w, r, err, "Failed to update product")
		return
	}
	kit.WriteSuccess(w, http.StatusOK, "Product updated", map[string]any{"product": p})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	var req deleteProductReq
	if !s.decodeValid(w, r, &req, "Product ID required") {
		return
	}

	if err := s.Service.DeleteProduct(r.Context(), int64(req.ID)); err != nil {
		s.writeError(w, r, err, "Failed to delete product")
		return
	}
	kit.WriteSuccess(w, http.StatusOK, "Product deleted", nil)
}

func (s *Server) sell(w http.ResponseWriter, r *http.Request) {
	var req sellReq
	if !s.decodeValid(w, r, &req, "Product ID and valid quantity required") {
		return
	}

	p, sale, err := s.Service.Sell(r.Context(), int64(req.ProductID), int64(req.QuantitySold.Value))
	if err != nil {
		s.writeError(w, r, err, "Failed to save changes")
		return
	}
	kit.WriteSuccess(w, http.StatusOK, "Product sold successfully", map[string]any{
		"product": p,
		"sale":    sale,
	})
}

func (s *Server) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.Service.ListSales(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to load sales")
		return
	}
	kit.WriteJSON(w, http.StatusOK, sales)
}

func (s *Server) rent(w http.ResponseWriter, r *http.Request) {
	var req rentReq
	if !s.decodeValid(w, r, &req, "All rental fields are required") {
		return
	}

	rental, p, err := s.Service.Rent(r.Context(), RentRequest{
		ProductID:   int64(req.ProductID),
		RenterName:  req.RenterName,
		ReturnDate:  req.ReturnDate,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		AmountPaid:  float64(req.AmountPaid.Value),
	})
	if err != nil {
		s.writeError(w, r, err, "Failed to save rental")
		return
	}
	kit.WriteSuccess(w, http.StatusCreated, "Rental recorded successfully", map[string]any{
		"rental":  rental,
		"product": p,
	})
}

func (s *Server) listRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := s.Service.ListRentals(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to load rentals")
		return
	}
	kit.WriteJSON(w, http.StatusOK, rentals)
}

func (s *Server) returnRental(w http.ResponseWriter, r *http.Request) {
	var req returnRentalReq
	if !s.decodeValid(w, r, &req, "Rental ID required") {
		return
	}

	rental, already, err := s.Service.ReturnRental(r.Context(), int64(req.RentalID))
	if err != nil {
		s.writeError(w, r, err, "Failed to update rental")
		return
	}

	msg := "Rental marked as returned"
	if already {
		msg = "Rental already returned"
	}
	kit.WriteSuccess(w, http.StatusOK, msg, map[string]any{"rental": rental})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Service.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to load stats")
		return
	}
	kit.WriteJSON(w, http.StatusOK, st)
}

// legacyInventory keeps the old dashboard's direct file fetch working.
func (s *Server) legacyInventory(w http.ResponseWriter, r *http.Request) {
	products, err := s.Service.ListProducts(r.Context())
	if err != nil {
		s.writeError(w, r, err, "Failed to load products")
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	if s.Static == nil || strings.HasPrefix(r.URL.Path, "/api/") {
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	s.Static.ServeHTTP(w, r)
}

func (s *Server) writeMiddleware() func(http.Handler) http.Handler {
	if s.WriteLimiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.WriteLimiter.Middleware
}

// decodeValid decodes the JSON body into dst and checks its validate tags.
// An empty body decodes as {}. On failure it writes a 400 and returns false.
func (s *Server) decodeValid(w http.ResponseWriter, r *http.Request, dst any, missingMsg string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		kit.WriteError(w, r, http.StatusBadRequest, "Invalid JSON", map[string]any{"cause": err.Error()})
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		kit.WriteError(w, r, http.StatusBadRequest, "Invalid JSON", map[string]any{"cause": "extra data after json object"})
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			kit.WriteError(w, r, http.StatusBadRequest, missingMsg, map[string]any{"fields": fields})
			return false
		}
		kit.WriteError(w, r, http.StatusBadRequest, missingMsg, nil)
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, persistMsg string) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "Product not found", nil)
	case errors.Is(err, ErrRentalNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "Rental not found", nil)
	case errors.Is(err, ErrDuplicateID):
		kit.WriteError(w, r, http.StatusConflict, "Product ID already exists", nil)
	case errors.Is(err, ErrInvalidQuantity):
		kit.WriteError(w, r, http.StatusBadRequest, "Product ID and valid quantity required", nil)
	case errors.Is(err, ErrInsufficientStock):
		kit.WriteError(w, r, http.StatusBadRequest, "Insufficient quantity available", nil)
	case errors.Is(err, ErrNotAvailable):
		kit.WriteError(w, r, http.StatusBadRequest, "Product not available for rent", nil)
	case errors.Is(err, ErrInvalidProduct), errors.Is(err, ErrInvalidRental), errors.Is(err, ErrInvalidSort):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, ErrPersist):
		s.logger().Error("persist failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, persistMsg, nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.logger().Error("inventory request failed", zap.Error(err), zap.String("path", r.URL.Path))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func parseProductQuery(v url.Values) (ProductQuery, error) {
	q := ProductQuery{
		Name: v.Get("q"),
		Sort: strings.ToLower(strings.TrimSpace(v.Get("sort"))),
	}
	if q.Name == "" {
		q.Name = v.Get("name")
	}

	if raw := strings.TrimSpace(v.Get("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return ProductQuery{}, errors.New("price must be a number")
		}
		q.Price = &price
	}

	switch q.Sort {
	case "", SortByID, SortByName, SortByPrice:
	default:
		return ProductQuery{}, ErrInvalidSort
	}
	return q, nil
}
