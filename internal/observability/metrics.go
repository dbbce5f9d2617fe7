// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package observability

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the collectors the web middleware records into.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the HTTP request collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safevault_http_requests_total",
			Help: "HTTP requests served, by method, matched route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safevault_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests, by method and matched route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.RequestsTotal, m.RequestDuration)
	return m
}
