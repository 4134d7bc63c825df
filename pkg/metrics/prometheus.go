// Package metrics provides Prometheus metrics for the Ech0 API client.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeOK              = "ok"
	OutcomeUnauthorized    = "unauthorized"
	OutcomeBusinessFailure = "business_failure"
	OutcomeTransportError  = "transport_error"
)

// Notification results used as the "result" label.
const (
	NotificationQueued    = "queued"
	NotificationDropped   = "dropped"
	NotificationDelivered = "delivered"
)

// Manager manages all Prometheus metrics for the client.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Request metrics
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	unauthorized     prometheus.Counter
	businessFailures *prometheus.CounterVec
	transportErrors  *prometheus.CounterVec

	// Notification queue metrics
	notifications       *prometheus.CounterVec
	notifyQueueSize     prometheus.Gauge
	notifyQueueCapacity prometheus.Gauge

	// Session metrics
	sessionChanges *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "ech0",
		subsystem:        "client",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		enabled:          true,
		constLabels:      make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.requests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "requests_total",
			Help:        "Total number of API requests by method, endpoint and outcome",
			ConstLabels: m.constLabels,
		},
		[]string{"method", "endpoint", "outcome"},
	)

	m.requestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "request_duration_milliseconds",
			Help:        "API round trip duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"method", "endpoint"},
	)

	m.unauthorized = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "unauthorized_total",
		Help:        "Total number of requests answered with HTTP 401",
		ConstLabels: m.constLabels,
	})

	m.businessFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "business_failures_total",
			Help:        "Total number of envelopes with a failure code",
			ConstLabels: m.constLabels,
		},
		[]string{"method"},
	)

	m.transportErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "transport_errors_total",
			Help:        "Total number of transport level failures",
			ConstLabels: m.constLabels,
		},
		[]string{"method", "error_type"},
	)

	m.notifications = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "notifications_total",
			Help:        "Total number of user notifications by result",
			ConstLabels: m.constLabels,
		},
		[]string{"result"},
	)

	m.notifyQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notify_queue_size",
		Help:        "Current number of pending notifications",
		ConstLabels: m.constLabels,
	})

	m.notifyQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notify_queue_capacity",
		Help:        "Maximum number of pending notifications",
		ConstLabels: m.constLabels,
	})

	m.sessionChanges = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "session_changes_total",
			Help:        "Total number of session store changes by action",
			ConstLabels: m.constLabels,
		},
		[]string{"action"},
	)
}

// RecordRequest counts one finished request and observes its duration.
func (m *Manager) RecordRequest(method, endpoint, outcome string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.requests.WithLabelValues(method, endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(method, endpoint).Observe(durationMs)
	switch outcome {
	case OutcomeUnauthorized:
		m.unauthorized.Inc()
	case OutcomeBusinessFailure:
		m.businessFailures.WithLabelValues(method).Inc()
	}
}

// RecordTransportError counts a transport failure by error type.
func (m *Manager) RecordTransportError(method, errorType string) {
	if !m.enabled {
		return
	}
	m.transportErrors.WithLabelValues(method, errorType).Inc()
}

// RecordNotification counts a notification with the given result.
func (m *Manager) RecordNotification(result string) {
	if !m.enabled {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

// UpdateNotifyQueue sets the notification queue size and capacity.
func (m *Manager) UpdateNotifyQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.notifyQueueSize.Set(float64(size))
	m.notifyQueueCapacity.Set(float64(capacity))
}

// RecordSessionChange counts a session store change such as "login" or "logout".
func (m *Manager) RecordSessionChange(action string) {
	if !m.enabled {
		return
	}
	m.sessionChanges.WithLabelValues(action).Inc()
}

// RecordRequest records a finished request on the global manager.
func RecordRequest(method, endpoint, outcome string, durationMs float64) {
	globalManager.RecordRequest(method, endpoint, outcome, durationMs)
}

// RecordTransportError records a transport failure on the global manager.
func RecordTransportError(method, errorType string) {
	globalManager.RecordTransportError(method, errorType)
}

// RecordNotification records a notification on the global manager.
func RecordNotification(result string) {
	globalManager.RecordNotification(result)
}

// UpdateNotifyQueue updates the notification queue gauges on the global manager.
func UpdateNotifyQueue(size, capacity int) {
	globalManager.UpdateNotifyQueue(size, capacity)
}

// RecordSessionChange records a session change on the global manager.
func RecordSessionChange(action string) {
	globalManager.RecordSessionChange(action)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrServe, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%w: %w", ErrServe, err)
		}
		return nil
	}
}
