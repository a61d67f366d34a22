// Auditus - Audit Event Store and Query Engine for EduAnalytics
// Copyright 2026 EduAnalytics
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eduanalytics/auditus

// Package metrics provides Prometheus instrumentation for the audit service:
// store occupancy and churn, API endpoint latency and throughput, and the
// health of the optional external forwarder.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event store metrics

	EventsAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_appended_total",
			Help: "Total number of audit events accepted by the store",
		},
		[]string{"category", "severity"},
	)

	EventsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_rejected_total",
			Help: "Total number of appends rejected for missing required fields",
		},
	)

	// Eviction is silent, by-design data loss under capacity pressure. This
	// counter is the operator-facing signal that it is happening.
	EventsEvictedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_evicted_total",
			Help: "Total number of audit events evicted under capacity pressure",
		},
	)

	EventsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_events_pruned_total",
			Help: "Total number of audit events removed by retention pruning",
		},
	)

	StoreSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_store_events",
			Help: "Current number of events held by the store",
		},
	)

	// API endpoint metrics

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

	// Forwarder metrics

	ForwarderSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_forwarder_sent_total",
			Help: "Total number of events delivered to the external collector",
		},
	)

	ForwarderDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_forwarder_dropped_total",
			Help: "Total number of events dropped by the forwarder",
		},
		[]string{"reason"}, // "buffer_full", "breaker_open", "send_failed"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordAppend records one accepted event.
func RecordAppend(category, severity string, storeLen int) {
	EventsAppendedTotal.WithLabelValues(category, severity).Inc()
	StoreSize.Set(float64(storeLen))
}

// RecordEviction records n silently evicted events.
func RecordEviction(n int) {
	if n > 0 {
		EventsEvictedTotal.Add(float64(n))
	}
}

// RecordPrune records the outcome of a retention pruning pass.
func RecordPrune(removed, storeLen int) {
	if removed > 0 {
		EventsPrunedTotal.Add(float64(removed))
	}
	StoreSize.Set(float64(storeLen))
}

// FormatStatusCode renders an HTTP status for use as a metric label.
func FormatStatusCode(code int) string {
	return strconv.Itoa(code)
}
