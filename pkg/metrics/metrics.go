package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kidwatch"

// Label names.
const (
	LabelReason  = "reason"
	LabelOutcome = "outcome"
	LabelOp      = "operation"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Eviction reasons.
const (
	ReasonDead     = "dead"
	ReasonVerify   = "verify_failed"
	ReasonShutdown = "shutdown"
)

// Metrics holds every collector the tool exports.
type Metrics struct {
	// Session pool
	sessionsActive   prometheus.Gauge
	sessionsIdle     prometheus.Gauge
	sessionsWaiting  prometheus.Gauge
	sessionsCreated  prometheus.Counter
	sessionsEvicted  *prometheus.CounterVec
	sessionOpenFails prometheus.Counter
	acquireWait      prometheus.Histogram

	// Reader
	readAttempts *prometheus.CounterVec
	readBytes    prometheus.Counter
	readDuration prometheus.Histogram

	// Walker
	listErrors  prometheus.Counter
	filesListed prometheus.Counter

	// Dispatcher
	itemsTotal    *prometheus.CounterVec
	itemDuration  *prometheus.HistogramVec
	batchDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg creates unregistered collectors, which is handy in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "sessions_active",
			Help: "Sessions currently owned by the pool (idle and on loan)",
		}),
		sessionsIdle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "sessions_idle",
			Help: "Sessions waiting in the idle set",
		}),
		sessionsWaiting: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pool", Name: "acquire_waiting",
			Help: "Callers blocked in Acquire",
		}),
		sessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pool", Name: "sessions_created_total",
			Help: "Sessions authenticated by the pool",
		}),
		sessionsEvicted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pool", Name: "sessions_evicted_total",
			Help: "Sessions closed by the pool, by reason",
		}, []string{LabelReason}),
		sessionOpenFails: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pool", Name: "session_open_failures_total",
			Help: "Failed attempts to authenticate a new session",
		}),
		acquireWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pool", Name: "acquire_wait_seconds",
			Help:    "Time spent in Acquire",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),

		readAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reader", Name: "attempts_total",
			Help: "Remote read attempts by outcome",
		}, []string{LabelOutcome}),
		readBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "reader", Name: "bytes_total",
			Help: "Bytes read from the remote share",
		}),
		readDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "reader", Name: "read_duration_seconds",
			Help:    "Duration of a complete read including retries",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		listErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "walker", Name: "list_errors_total",
			Help: "Subdirectories skipped because listing failed",
		}),
		filesListed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "walker", Name: "files_total",
			Help: "Video files found by directory walks",
		}),

		itemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "dispatch", Name: "items_total",
			Help: "Work items processed by operation and outcome",
		}, []string{LabelOp, LabelOutcome}),
		itemDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "dispatch", Name: "item_duration_seconds",
			Help:    "Duration of one work item",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{LabelOp}),
		batchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "dispatch", Name: "batch_duration_seconds",
			Help:    "Duration of one batch",
			Buckets: []float64{1, 5, 10, 30, 60, 300, 600, 1800},
		}),
	}
}

// ============================================================================
// Pool
// ============================================================================

// SetPoolState records the pool's active, idle and waiting counts.
func (m *Metrics) SetPoolState(active, idle, waiting int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(active))
	m.sessionsIdle.Set(float64(idle))
	m.sessionsWaiting.Set(float64(waiting))
}

// SessionCreated counts a newly authenticated session.
func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

// SessionOpenFailed counts a failed session establishment.
func (m *Metrics) SessionOpenFailed() {
	if m == nil {
		return
	}
	m.sessionOpenFails.Inc()
}

// SessionEvicted counts a session closed by the pool.
func (m *Metrics) SessionEvicted(reason string) {
	if m == nil {
		return
	}
	m.sessionsEvicted.WithLabelValues(reason).Inc()
}

// ObserveAcquire records how long Acquire took.
func (m *Metrics) ObserveAcquire(wait time.Duration) {
	if m == nil {
		return
	}
	m.acquireWait.Observe(wait.Seconds())
}

// ============================================================================
// Reader and walker
// ============================================================================

// ReadAttempt counts one read attempt.
func (m *Metrics) ReadAttempt(success bool) {
	if m == nil {
		return
	}
	m.readAttempts.WithLabelValues(outcome(success)).Inc()
}

// ObserveRead records a completed read.
func (m *Metrics) ObserveRead(bytes int, d time.Duration) {
	if m == nil {
		return
	}
	m.readBytes.Add(float64(bytes))
	m.readDuration.Observe(d.Seconds())
}

// ListError counts a skipped subtree.
func (m *Metrics) ListError() {
	if m == nil {
		return
	}
	m.listErrors.Inc()
}

// FilesListed counts video files returned by a walk.
func (m *Metrics) FilesListed(n int) {
	if m == nil {
		return
	}
	m.filesListed.Add(float64(n))
}

// ============================================================================
// Dispatcher
// ============================================================================

// ObserveItem records the outcome and duration of one work item.
func (m *Metrics) ObserveItem(op string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.itemsTotal.WithLabelValues(op, outcome(success)).Inc()
	m.itemDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveBatch records how long one batch took.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
