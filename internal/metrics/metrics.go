// TrustLens - Domain Risk and Abuse Intelligence Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trustlens

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the risk engine, the anomaly detector,
// the event bus and the HTTP surface. All collectors are registered on
// the default registry and exposed at /metrics.

var (
	// Risk Engine Metrics
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_checks_total",
			Help: "Total number of domain risk checks",
		},
		[]string{"risk_level"},
	)

	CheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risk_check_duration_seconds",
			Help:    "Duration of domain risk checks in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	// Anomaly Engine Metrics
	DetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anomaly_detections_total",
			Help: "Total number of anomaly detections emitted",
		},
		[]string{"kind", "severity"},
	)

	AnomalyIngestDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anomaly_ingest_drops_total",
			Help: "Total number of observations dropped on ingest buffer overflow",
		},
	)

	AnomalyEntitiesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "anomaly_entities_tracked",
			Help: "Current number of entities with anomaly baselines",
		},
	)

	AnomalyPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "anomaly_pass_duration_seconds",
			Help:    "Duration of full anomaly detection passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published to the bus",
		},
		[]string{"type"},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_subscribers",
			Help: "Current number of event bus subscribers",
		},
	)

	EventSubscriberPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "event_subscriber_panics_total",
			Help: "Total number of subscriber panics isolated during dispatch",
		},
	)

	// Reputation Metrics
	ReputationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reputation_cache_hits_total",
			Help: "Total number of reputation cache hits",
		},
	)

	ReputationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reputation_cache_misses_total",
			Help: "Total number of reputation cache misses",
		},
	)

	ReputationRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reputation_recomputes_total",
			Help: "Total number of reputation recomputations",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	// Cache Metrics (General)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	// Store Metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"store", "operation"},
	)

	StoreOpErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"store", "operation"},
	)

	// Graph / Export Metrics
	GraphBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graph_build_duration_seconds",
			Help:    "Duration of threat graph builds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ExportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_rows_total",
			Help: "Total number of rows written by intel exports",
		},
		[]string{"format"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	SSEConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections",
			Help: "Current number of active event stream connections",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordCheck records one domain risk check.
func RecordCheck(riskLevel string, duration time.Duration) {
	ChecksTotal.WithLabelValues(riskLevel).Inc()
	CheckDuration.Observe(duration.Seconds())
}

// RecordDetection records one emitted anomaly detection.
func RecordDetection(kind, severity string) {
	DetectionsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordStoreOp records a store operation metric.
func RecordStoreOp(store, operation string, duration time.Duration, err error) {
	StoreOpDuration.WithLabelValues(store, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOpErrors.WithLabelValues(store, operation).Inc()
	}
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
