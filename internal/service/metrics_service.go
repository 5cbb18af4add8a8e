package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates the Prometheus instrumentation for the HTTP
// surface and the import pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	importsTotal    *prometheus.CounterVec
	importDuration  prometheus.Histogram
	entitiesWritten *prometheus.CounterVec
	shortCircuits   prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	importsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_imports_total",
		Help: "Total snapshot imports by outcome",
	}, []string{"outcome"})

	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_import_duration_seconds",
		Help:    "End-to-end duration of snapshot imports",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	entitiesWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_entities_written_total",
		Help: "Entities written during imports, by entity type",
	}, []string{"entity"})

	shortCircuits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapshot_import_short_circuits_total",
		Help: "Imports skipped because the diff against the archive was empty",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importsTotal, importDuration,
		entitiesWritten, shortCircuits, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importsTotal:    importsTotal,
		importDuration:  importDuration,
		entitiesWritten: entitiesWritten,
		shortCircuits:   shortCircuits,
	}
}

// Handler serves the metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one finished HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveImport records one finished import run.
func (s *MetricsService) ObserveImport(outcome string, duration time.Duration) {
	s.importsTotal.WithLabelValues(outcome).Inc()
	s.importDuration.Observe(duration.Seconds())
}

// AddEntitiesWritten accumulates entity write counts per type.
func (s *MetricsService) AddEntitiesWritten(entity string, n int) {
	if n > 0 {
		s.entitiesWritten.WithLabelValues(entity).Add(float64(n))
	}
}

// IncShortCircuit counts an import skipped on an empty diff.
func (s *MetricsService) IncShortCircuit() {
	s.shortCircuits.Inc()
}
