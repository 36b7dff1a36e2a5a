package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tradeflow"

// ReconcileMetrics tracks payment reconciliation and fulfillment side effects.
type ReconcileMetrics struct {
	reconciliations *prometheus.CounterVec
	gatewayLatency  *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	stockUnits      *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation collectors on reg.
// A nil registerer yields a no-op recorder.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "payments",
		Name:      "reconciliations_total",
		Help:      "Payment reconciliations by channel and outcome.",
	}, []string{"channel", "outcome"})
	gatewayLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Latency of payment gateway calls.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation", "result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fulfillment",
		Name:      "transitions_total",
		Help:      "Order status transitions.",
	}, []string{"from", "to"})
	stockUnits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "inventory",
		Name:      "stock_units_total",
		Help:      "Units added to warehouse stock.",
	}, []string{"reason"})
	reg.MustRegister(reconciliations, gatewayLatency, transitions, stockUnits)
	return &ReconcileMetrics{
		reconciliations: reconciliations,
		gatewayLatency:  gatewayLatency,
		transitions:     transitions,
		stockUnits:      stockUnits,
	}
}

func (m *ReconcileMetrics) IncReconciliation(channel, outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(channel), normalizeLabel(outcome)).Inc()
}

// ObserveGateway records one gateway round trip.
func (m *ReconcileMetrics) ObserveGateway(operation string, duration time.Duration, err error) {
	if m == nil || m.gatewayLatency == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.gatewayLatency.WithLabelValues(normalizeLabel(operation), result).Observe(duration.Seconds())
}

func (m *ReconcileMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

func (m *ReconcileMetrics) AddStockUnits(reason string, units int) {
	if m == nil || m.stockUnits == nil || units <= 0 {
		return
	}
	m.stockUnits.WithLabelValues(normalizeLabel(reason)).Add(float64(units))
}
