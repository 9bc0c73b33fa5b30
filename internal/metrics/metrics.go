package metrics

import (
	"math/big"
	"net/http"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eigerco/tollbridge/internal/common"
)

var operationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1}

// Metrics holds the bridge collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Operations         *prometheus.CounterVec
	OperationTime      *prometheus.HistogramVec
	Completions        *prometheus.CounterVec
	Deferred           prometheus.Counter
	Remediations       *prometheus.CounterVec
	SettlementFailures prometheus.Counter
	OutOfLimit         prometheus.Gauge
	Spent              *prometheus.GaugeVec
	Events             prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tollbridge_operations_total",
			Help: "Settlement operations by result",
		}, []string{"operation", "result"}),
		OperationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tollbridge_operation_duration_seconds",
			Help:    "Time spent in a settlement operation, lock wait included",
			Buckets: operationBuckets,
		}, []string{"operation"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tollbridge_completions_total",
			Help: "Keys that reached the validator threshold",
		}, []string{"namespace"}),
		Deferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tollbridge_deferred_deposits_total",
			Help: "Completed deposits deferred by the daily limit",
		}),
		Remediations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tollbridge_remediations_total",
			Help: "Deferred deposits released by the administrator",
		}, []string{"forwarded"}),
		SettlementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tollbridge_settlement_failures_total",
			Help: "Ledger credits that failed after the bookkeeping committed",
		}),
		OutOfLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tollbridge_out_of_limit_amount",
			Help: "Deferred value awaiting remediation",
		}),
		Spent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tollbridge_daily_spent",
			Help: "Value admitted in the current accounting window",
		}, []string{"direction"}),
		Events: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tollbridge_events_total",
			Help: "Events appended to the event log",
		}),
	}
	m.registry.MustRegister(
		m.Operations,
		m.OperationTime,
		m.Completions,
		m.Deferred,
		m.Remediations,
		m.SettlementFailures,
		m.OutOfLimit,
		m.Spent,
		m.Events,
	)
	return m
}

// Registry exposes the registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation counts one operation by its error code and records its duration.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, common.Code(err)).Inc()
	m.OperationTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) Completed(namespace string) {
	if m == nil {
		return
	}
	m.Completions.WithLabelValues(namespace).Inc()
}

func (m *Metrics) DeferredDeposit() {
	if m == nil {
		return
	}
	m.Deferred.Inc()
}

func (m *Metrics) Remediated(forwarded bool) {
	if m == nil {
		return
	}
	label := "false"
	if forwarded {
		label = "true"
	}
	m.Remediations.WithLabelValues(label).Inc()
}

func (m *Metrics) SettlementFailed() {
	if m == nil {
		return
	}
	m.SettlementFailures.Inc()
}

func (m *Metrics) EventsAppended(n int) {
	if m == nil {
		return
	}
	m.Events.Add(float64(n))
}

func (m *Metrics) SetOutOfLimit(v *uint256.Int) {
	if m == nil {
		return
	}
	m.OutOfLimit.Set(toFloat(v))
}

func (m *Metrics) SetSpent(direction string, v *uint256.Int) {
	if m == nil {
		return
	}
	m.Spent.WithLabelValues(direction).Set(toFloat(v))
}

// toFloat converts to float64. Precision loss is acceptable for gauges.
func toFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
