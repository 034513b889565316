// Package metrics instruments the transaction controller with Prometheus
// counters and gauges.
//
// Every method is safe on a nil *Engine, so the controller calls them
// unconditionally and an uninstrumented controller pays nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine holds the controller's metrics.
type Engine struct {
	started        *prometheus.CounterVec
	finalized      *prometheus.CounterVec
	suspensions    *prometheus.CounterVec
	resumeFailures prometheus.Counter
	parked         prometheus.Gauge
	undoDepth      prometheus.Gauge
	codeRuns       *prometheus.CounterVec
}

// New registers the controller metrics with reg. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Engine {
	f := promauto.With(reg)
	return &Engine{
		started: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridcore_transactions_started_total",
			Help: "Transactions started, by origin",
		}, []string{"origin"}),

		finalized: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridcore_transactions_finalized_total",
			Help: "Transactions finalized, by origin",
		}, []string{"origin"}),

		suspensions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridcore_suspensions_total",
			Help: "Transactions parked on an external reply, by kind",
		}, []string{"kind"}),

		resumeFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gridcore_resume_failures_total",
			Help: "Replies discarded because their transaction was not parked",
		}),

		parked: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridcore_parked_transactions",
			Help: "Transactions currently parked in the async registry",
		}),

		undoDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridcore_undo_depth",
			Help: "Entries on the undo stack",
		}),

		codeRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridcore_code_runs_total",
			Help: "Code cell run state transitions, by language and state",
		}, []string{"language", "state"}),
	}
}

// TransactionStarted counts a started transaction.
func (m *Engine) TransactionStarted(origin string) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(origin).Inc()
}

// TransactionFinalized counts a finalized transaction.
func (m *Engine) TransactionFinalized(origin string) {
	if m == nil {
		return
	}
	m.finalized.WithLabelValues(origin).Inc()
}

// Suspended counts a transaction parked on kind.
func (m *Engine) Suspended(kind string) {
	if m == nil {
		return
	}
	m.suspensions.WithLabelValues(kind).Inc()
}

// ResumeFailed counts a discarded reply.
func (m *Engine) ResumeFailed() {
	if m == nil {
		return
	}
	m.resumeFailures.Inc()
}

// SetParked records the registry size.
func (m *Engine) SetParked(n int) {
	if m == nil {
		return
	}
	m.parked.Set(float64(n))
}

// SetUndoDepth records the undo stack depth.
func (m *Engine) SetUndoDepth(n int) {
	if m == nil {
		return
	}
	m.undoDepth.Set(float64(n))
}

// CodeRun counts a code cell entering state.
func (m *Engine) CodeRun(language, state string) {
	if m == nil {
		return
	}
	m.codeRuns.WithLabelValues(language, state).Inc()
}
