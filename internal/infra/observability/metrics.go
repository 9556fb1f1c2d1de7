package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	droppedRecords  *prometheus.CounterVec
	recordsInserted *prometheus.CounterVec
	authAttempts    *prometheus.CounterVec
	viewState       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. A private registry keeps NewMetrics safe to
// call more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chalet_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chalet_external_errors_total",
				Help: "Total errors from the backing services.",
			},
			[]string{"service"},
		),
		droppedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chalet_dropped_bucket_records_total",
				Help: "Records whose month had no bucket in the requested range.",
			},
			[]string{"kind"},
		),
		recordsInserted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chalet_records_inserted_total",
				Help: "Total income and expense records inserted.",
			},
			[]string{"kind"},
		),
		authAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chalet_auth_attempts_total",
				Help: "Sign-in and sign-up attempts by outcome.",
			},
			[]string{"action", "outcome"},
		),
		viewState: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chalet_view_state_lookups_total",
				Help: "Dashboard view state lookups by result.",
			},
			[]string{"result"},
		),
	}
}

// RecordDuration records the duration of an operation.
func (m *Metrics) RecordDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// AddDroppedRecords counts records that fell outside every month bucket.
func (m *Metrics) AddDroppedRecords(kind string, n int) {
	if n > 0 {
		m.droppedRecords.WithLabelValues(kind).Add(float64(n))
	}
}

// IncrInserted counts inserted records.
func (m *Metrics) IncrInserted(kind string) {
	m.recordsInserted.WithLabelValues(kind).Inc()
}

// IncrAuth counts an auth attempt.
func (m *Metrics) IncrAuth(action, outcome string) {
	m.authAttempts.WithLabelValues(action, outcome).Inc()
}

// IncrViewState counts a view state hit or miss.
func (m *Metrics) IncrViewState(hit bool) {
	if hit {
		m.viewState.WithLabelValues("hit").Inc()
		return
	}
	m.viewState.WithLabelValues("miss").Inc()
}

// DroppedRecords returns the cumulative dropped count for a kind.
func (m *Metrics) DroppedRecords(kind string) float64 {
	return getCounterValue(m.droppedRecords, kind)
}

// ExternalErrors returns the cumulative error count for a service.
func (m *Metrics) ExternalErrors(service string) float64 {
	return getCounterValue(m.externalErrors, service)
}

// Inserted returns the cumulative insert count for a kind.
func (m *Metrics) Inserted(kind string) float64 {
	return getCounterValue(m.recordsInserted, kind)
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	counter := cv.WithLabelValues(labels...)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
