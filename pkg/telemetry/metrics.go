package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics provides Prometheus metrics for parameter tuning operations.
// All methods are no-ops on a nil or disabled Metrics.
type Metrics struct {
	config MetricsConfig

	// Config bridge metrics
	configReads  *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec
	loadFailures *prometheus.CounterVec

	// Conversion engine metrics
	paramWrites *prometheus.CounterVec

	// Registry metrics
	tunables *prometheus.GaugeVec

	// Exporter metrics
	quantitiesExported *prometheus.CounterVec

	// Snapshot and policy metrics
	snapshotOps      *prometheus.CounterVec
	policyViolations *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		configReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reads_total",
				Help:      "Config entries read into parameters, by source and result",
			},
			[]string{"source", "status"},
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "config_load_duration_seconds",
				Help:      "Duration of bulk parameter loads in seconds",
				Buckets:   buckets,
			},
			[]string{"mode"},
		),
		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_load_failures_total",
				Help:      "Leaves that could not be read during bulk loads",
			},
			[]string{"mode"},
		),
		paramWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "param_writes_total",
				Help:      "Parameter writes by operation and result",
			},
			[]string{"operation", "status"},
		),
		tunables: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tunables",
				Help:      "Number of leaf tunable parameters per model instance",
			},
			[]string{"model"},
		),
		quantitiesExported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quantities_exported_total",
				Help:      "Quantities registered with a dictionary, by access point",
			},
			[]string{"access"},
		),
		snapshotOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_operations_total",
				Help:      "Snapshot store operations by operation and result",
			},
			[]string{"operation", "status"},
		),
		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Parameter writes rejected by policy",
			},
			[]string{"policy"},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		m.configReads,
		m.loadDuration,
		m.loadFailures,
		m.paramWrites,
		m.tunables,
		m.quantitiesExported,
		m.snapshotOps,
		m.policyViolations,
		m.errorsByClass,
	)

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordConfigRead records one config entry read for a leaf. Status is one
// of ok, missing, default, malformed, rejected or failed.
func (m *Metrics) RecordConfigRead(source, status string) {
	if !m.enabled() {
		return
	}
	m.configReads.WithLabelValues(source, status).Inc()
}

// RecordLoad records a bulk load in the given mode with its failure count.
func (m *Metrics) RecordLoad(mode string, failures int, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.loadDuration.WithLabelValues(mode).Observe(duration.Seconds())
	m.loadFailures.WithLabelValues(mode).Add(float64(failures))
}

// RecordParamWrite records a parameter write.
func (m *Metrics) RecordParamWrite(operation, status string) {
	if !m.enabled() {
		return
	}
	m.paramWrites.WithLabelValues(operation, status).Inc()
}

// SetTunables sets the number of leaf parameters of a model instance.
func (m *Metrics) SetTunables(model string, count int) {
	if !m.enabled() {
		return
	}
	m.tunables.WithLabelValues(model).Set(float64(count))
}

// RecordExport records a quantity registration.
func (m *Metrics) RecordExport(access string) {
	if !m.enabled() {
		return
	}
	m.quantitiesExported.WithLabelValues(access).Inc()
}

// RecordSnapshot records a snapshot store operation.
func (m *Metrics) RecordSnapshot(operation, status string) {
	if !m.enabled() {
		return
	}
	m.snapshotOps.WithLabelValues(operation, status).Inc()
}

// RecordPolicyViolation records a write rejected by the named policy.
func (m *Metrics) RecordPolicyViolation(policy string) {
	if !m.enabled() {
		return
	}
	m.policyViolations.WithLabelValues(policy).Inc()
}

// RecordError records an error by class.
func (m *Metrics) RecordError(class string) {
	if !m.enabled() || class == "" {
		return
	}
	m.errorsByClass.WithLabelValues(class).Inc()
}

// Registerer returns the registry collectors are registered with, or nil
// when metrics are disabled.
func (m *Metrics) Registerer() prometheus.Registerer {
	if !m.enabled() {
		return nil
	}
	return m.registry
}

// Gatherer returns the registry metrics are gathered from, or nil when
// metrics are disabled.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if !m.enabled() {
		return nil
	}
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves Handler on the configured address in the
// background. It returns nil when metrics are disabled.
func (m *Metrics) StartMetricsServer(logger zerolog.Logger) *http.Server {
	if !m.enabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", server.Addr).Msg("Metrics server stopped")
		}
	}()

	return server
}
