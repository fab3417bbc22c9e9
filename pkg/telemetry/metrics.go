package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the object lifecycle engine.
type Metrics struct {
	config MetricsConfig

	// Commit metrics
	itemsCommitted *prometheus.CounterVec
	itemsIgnored   *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec

	// Activation metrics
	objectsActivated   *prometheus.CounterVec
	activationDuration *prometheus.HistogramVec

	// Reload metrics
	reloads *prometheus.CounterVec

	// Registry metrics
	registeredItems *prometheus.GaugeVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
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

		itemsCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_committed_total",
				Help:      "Total number of config items committed",
			},
			[]string{"type"},
		),
		itemsIgnored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_ignored_total",
				Help:      "Total number of config items ignored due to errors",
			},
			[]string{"type"},
		),
		commitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "commit_duration_seconds",
				Help:      "Duration of commit batches in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		objectsActivated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_activated_total",
				Help:      "Total number of config objects activated",
			},
			[]string{"type"},
		),
		activationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "activation_duration_seconds",
				Help:      "Duration of activation batches in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "object_reloads_total",
				Help:      "Total number of object reloads",
			},
			[]string{"status"},
		),
		registeredItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registered_items",
				Help:      "Current number of registered config items",
			},
			[]string{"type"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_kind_total",
				Help:      "Total number of lifecycle errors by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.itemsCommitted,
		m.itemsIgnored,
		m.commitDuration,
		m.objectsActivated,
		m.activationDuration,
		m.reloads,
		m.registeredItems,
		m.errorsByKind,
	)

	return m, nil
}

// RecordItemCommitted increments the committed-items counter for a type.
func (m *Metrics) RecordItemCommitted(typeName string) {
	if m.itemsCommitted == nil {
		return
	}
	m.itemsCommitted.WithLabelValues(typeName).Inc()
}

// RecordItemIgnored increments the ignored-items counter for a type.
func (m *Metrics) RecordItemIgnored(typeName string) {
	if m.itemsIgnored == nil {
		return
	}
	m.itemsIgnored.WithLabelValues(typeName).Inc()
}

// RecordCommit records a commit batch with its status and duration.
func (m *Metrics) RecordCommit(status string, duration time.Duration) {
	if m.commitDuration == nil {
		return
	}
	m.commitDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordObjectActivated increments the activated-objects counter for a type.
func (m *Metrics) RecordObjectActivated(typeName string) {
	if m.objectsActivated == nil {
		return
	}
	m.objectsActivated.WithLabelValues(typeName).Inc()
}

// RecordActivation records an activation batch with its status and duration.
func (m *Metrics) RecordActivation(status string, duration time.Duration) {
	if m.activationDuration == nil {
		return
	}
	m.activationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordReload records the outcome of an object reload.
func (m *Metrics) RecordReload(status string) {
	if m.reloads == nil {
		return
	}
	m.reloads.WithLabelValues(status).Inc()
}

// SetRegisteredItems sets the current number of registered items for a type.
func (m *Metrics) SetRegisteredItems(typeName string, count float64) {
	if m.registeredItems == nil {
		return
	}
	m.registeredItems.WithLabelValues(typeName).Set(count)
}

// RecordError records a lifecycle error by kind.
func (m *Metrics) RecordError(kind string) {
	if m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
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
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
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
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
