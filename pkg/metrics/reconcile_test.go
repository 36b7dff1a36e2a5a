package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReconcileMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReconcileMetrics(reg)

	m.IncReconciliation("webhook", "applied")
	m.IncReconciliation("webhook", "applied")
	m.IncReconciliation("return", "pending")
	m.ObserveGateway("verify", 120*time.Millisecond, nil)
	m.ObserveGateway("create", 50*time.Millisecond, errors.New("boom"))
	m.IncTransition("", "awaiting_payment")
	m.AddStockUnits("purchase_delivery", 12)
	m.AddStockUnits("purchase_delivery", 0)

	counters := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"tradeflow_payments_reconciliations_total", map[string]string{"channel": "webhook", "outcome": "applied"}, 2},
		{"tradeflow_payments_reconciliations_total", map[string]string{"channel": "return", "outcome": "pending"}, 1},
		{"tradeflow_fulfillment_transitions_total", map[string]string{"from": "unknown", "to": "awaiting_payment"}, 1},
		{"tradeflow_inventory_stock_units_total", map[string]string{"reason": "purchase_delivery"}, 12},
	}
	for _, c := range counters {
		if got := sample(t, reg, c.name, c.labels).GetCounter().GetValue(); got != c.want {
			t.Fatalf("%s%v = %v, want %v", c.name, c.labels, got, c.want)
		}
	}
	latency := sample(t, reg, "tradeflow_gateway_request_duration_seconds", map[string]string{"result": "error"}).GetHistogram()
	if latency.GetSampleCount() != 1 || latency.GetSampleSum() <= 0 {
		t.Fatalf("expected one error latency sample, got %d", latency.GetSampleCount())
	}
}

func TestNilReconcileMetricsIsSafe(t *testing.T) {
	var m *ReconcileMetrics
	m.IncReconciliation("webhook", "applied")
	m.ObserveGateway("verify", time.Second, nil)
	m.IncTransition("a", "b")
	m.AddStockUnits("x", 1)

	NewReconcileMetrics(nil).IncReconciliation("poll", "pending")
}
