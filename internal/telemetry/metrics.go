/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quietd_api_requests_total",
		Help: "Total number of HTTP API requests.",
	}, []string{"method", "endpoint", "status"})

	// APIRequestDuration observes HTTP request latency.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quietd_api_request_duration_seconds",
		Help:    "HTTP API request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quietd_api_active_connections",
		Help: "Number of in-flight HTTP API requests.",
	})

	// RulesDroppedTotal counts automatic rules discarded during parsing.
	RulesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quietd_rules_dropped_total",
		Help: "Automatic rules dropped while reading configuration documents.",
	}, []string{"reason"})

	// ActiveRules gauges automatic rules currently in the true state.
	ActiveRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quietd_active_rules",
		Help: "Automatic rules whose condition is currently true.",
	})

	// EvaluatorRunsTotal counts evaluator sweeps.
	EvaluatorRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quietd_evaluator_runs_total",
		Help: "Total number of condition evaluator sweeps.",
	})

	// CountdownExpiredTotal counts expired countdown conditions.
	CountdownExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quietd_countdown_expired_total",
		Help: "Countdown conditions that reached their deadline.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
