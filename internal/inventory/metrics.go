package inventory

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes inventory state and store health. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Products      prometheus.Gauge
	StockUnits    prometheus.Gauge
	ActiveRentals prometheus.Gauge
	Operations    *prometheus.CounterVec
	ReadFailures  *prometheus.CounterVec
	WriteFailures prometheus.Counter
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Products: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_products",
			Help: "Products in the inventory after the last commit",
		}),
		StockUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_stock_units",
			Help: "Sum of product quantities after the last commit",
		}),
		ActiveRentals: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_active_rentals",
			Help: "Rentals not yet returned after the last commit",
		}),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_operations_total",
				Help: "Inventory mutations by operation and result",
			},
			[]string{"op", "result"},
		),
		ReadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_read_failures_total",
				Help: "Inventory loads that fell back to an empty document",
			},
			[]string{"reason"},
		),
		WriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_write_failures_total",
			Help: "Inventory commits that failed to persist",
		}),
	}

	reg.MustRegister(m.Products, m.StockUnits, m.ActiveRentals, m.Operations, m.ReadFailures, m.WriteFailures)
	return m
}

func (m *Metrics) observe(doc Document) {
	if m == nil {
		return
	}

	var units int64
	for _, p := range doc.Products {
		units += p.Quantity
	}
	active := 0
	for _, r := range doc.Rentals {
		if r.Status == RentalActive {
			active++
		}
	}

	m.Products.Set(float64(len(doc.Products)))
	m.StockUnits.Set(float64(units))
	m.ActiveRentals.Set(float64(active))
}

func (m *Metrics) operation(op string, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) readFailed(reason string) {
	if m == nil {
		return
	}
	m.ReadFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) writeFailed() {
	if m == nil {
		return
	}
	m.WriteFailures.Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPersist):
		return "persist_error"
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrRentalNotFound):
		return "not_found"
	default:
		return "rejected"
	}
}
