package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bazaarsetu"

// OrderMetrics tracks checkout, transition and cart activity. A nil receiver
// or one built without a registerer is a no-op.
type OrderMetrics struct {
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram
	ordersCreated    prometheus.Counter
	transitions      *prometheus.CounterVec
	stockRestored    prometheus.Counter
	cartOps          *prometheus.CounterVec
}

// NewOrderMetrics registers the order lifecycle metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome code.",
	}, []string{"result"})
	checkoutDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Duration of checkout transactions in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Supplier orders created by checkout.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Committed order status transitions.",
	}, []string{"from", "to"})
	stockRestored := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stock_units_restored_total",
		Help:      "Units returned to availability by rejection or cancellation.",
	})
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_operations_total",
		Help:      "Cart mutations by operation and outcome.",
	}, []string{"op", "result"})
	reg.MustRegister(checkouts, checkoutDuration, ordersCreated, transitions, stockRestored, cartOps)
	return &OrderMetrics{
		checkouts:        checkouts,
		checkoutDuration: checkoutDuration,
		ordersCreated:    ordersCreated,
		transitions:      transitions,
		stockRestored:    stockRestored,
		cartOps:          cartOps,
	}
}

// ObserveCheckout records one checkout attempt. result is "ok" or an error code.
func (m *OrderMetrics) ObserveCheckout(result string, orders int, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(result)).Inc()
	m.checkoutDuration.Observe(duration.Seconds())
	if orders > 0 {
		m.ordersCreated.Add(float64(orders))
	}
}

// IncTransition counts a committed status change.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// AddStockRestored counts units given back to products.
func (m *OrderMetrics) AddStockRestored(units int) {
	if m == nil || m.stockRestored == nil || units <= 0 {
		return
	}
	m.stockRestored.Add(float64(units))
}

// IncCartOp counts a cart mutation.
func (m *OrderMetrics) IncCartOp(op, result string) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
