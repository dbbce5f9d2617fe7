// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names used as metric labels and span names.
const (
	OperationRegister     = "register"
	OperationAuthenticate = "authenticate"
	OperationLogin        = "login"
	OperationResolveToken = "resolve_token"
	OperationLogout       = "logout"
)

// Result constants for auth operation metrics.
const (
	ResultSuccess      = "success"
	ResultInvalidInput = "invalid_input"
	ResultDuplicate    = "duplicate"
	ResultRejected     = "rejected"
	ResultError        = "error"
)

// AuthOperations is the counter for auth operations.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "safevault_auth_operations_total",
		Help: "Total number of authentication operations",
	},
	[]string{"operation", "result"},
)

// AuthOperationDuration is the histogram for auth operation duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthOperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "safevault_auth_operation_duration_seconds",
		Help:    "Authentication operation duration in seconds",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(AuthOperationDuration)
}

// RecordOperation increments the operation counter and observes its duration.
func RecordOperation(operation, result string, duration time.Duration) {
	AuthOperations.WithLabelValues(operation, result).Inc()
	AuthOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
