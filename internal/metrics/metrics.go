// Package metrics defines the Prometheus metrics the server exports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for ledger and allocation work.
type Metrics struct {
	BalanceComputations *prometheus.CounterVec
	BalanceDuration     *prometheus.HistogramVec
	SkippedParts        *prometheus.CounterVec
	ExpensesScanned     prometheus.Histogram

	AllocationEvents *prometheus.CounterVec
	AllocationErrors *prometheus.CounterVec

	SplitsFilled  prometheus.Counter
	ExpenseWrites *prometheus.CounterVec

	RPCRequests *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg. A nil reg leaves
// them unregistered, which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BalanceComputations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_balance_computations_total",
			Help: "Balance computations by kind (user, friend, group)",
		}, []string{"kind"}),

		BalanceDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "splitledger_balance_duration_seconds",
			Help:    "Time to reduce expenses to balances",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"kind"}),

		SkippedParts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_skipped_parts_total",
			Help: "Malformed expense parts left out of a balance",
		}, []string{"part"}),

		ExpensesScanned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "splitledger_expenses_scanned",
			Help:    "Expenses read per balance computation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),

		AllocationEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_allocation_events_total",
			Help: "Allocation events applied by kind",
		}, []string{"kind"}),

		AllocationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_allocation_errors_total",
			Help: "Allocation states left unbalanced (over, under)",
		}, []string{"reason"}),

		SplitsFilled: factory.NewCounter(prometheus.CounterOpts{
			Name: "splitledger_splits_filled_total",
			Help: "Split arrays recomputed on write",
		}),

		ExpenseWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_expense_writes_total",
			Help: "Expense writes by operation",
		}, []string{"op"}),

		RPCRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "splitledger_rpc_requests_total",
			Help: "RPC calls by procedure and result code",
		}, []string{"procedure", "code"}),

		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "splitledger_rpc_duration_seconds",
			Help:    "RPC handling time",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
	}
}

// ObserveBalance records one balance computation.
func (m *Metrics) ObserveBalance(kind string, expenses int, start time.Time) {
	m.BalanceComputations.WithLabelValues(kind).Inc()
	m.BalanceDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	m.ExpensesScanned.Observe(float64(expenses))
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	m.RPCRequests.WithLabelValues(procedure, code).Inc()
	m.RPCDuration.WithLabelValues(procedure).Observe(d.Seconds())
}
