// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

// Package observability exposes Prometheus metrics and health checks.
//
// Endpoints is a plain http.Handler; the caller decides which listener it
// runs on. SafeVault mounts it on its own address next to the API.
package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Endpoint paths.
const (
	PathMetrics   = "/metrics"
	PathLiveness  = "/healthz/liveness"
	PathReadiness = "/healthz/readiness"
)

// DefaultReadinessTimeout bounds a readiness check unless WithReadinessTimeout
// overrides it.
const DefaultReadinessTimeout = 2 * time.Second

// ReadinessChecker reports whether dependencies are reachable. ctx carries
// the check deadline.
type ReadinessChecker func(ctx context.Context) bool

// Option configures Endpoints.
type Option func(*Endpoints)

// WithReadiness sets the readiness check. Without one the service is
// always ready.
func WithReadiness(check ReadinessChecker) Option {
	return func(e *Endpoints) { e.ready = check }
}

// WithReadinessTimeout sets how long a readiness check may run.
func WithReadinessTimeout(d time.Duration) Option {
	return func(e *Endpoints) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// Endpoints serves /metrics from a private registry plus the liveness and
// readiness checks.
type Endpoints struct {
	registry *prometheus.Registry
	metrics  *Metrics
	ready    ReadinessChecker
	timeout  time.Duration
	engine   *gin.Engine
}

// New builds the endpoints with Go runtime, process and HTTP collectors
// already registered.
func New(opts ...Option) *Endpoints {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e := &Endpoints{
		registry: registry,
		metrics:  NewMetrics(registry),
		timeout:  DefaultReadinessTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}

	engine := gin.New()
	engine.GET(PathMetrics, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))
	engine.GET(PathLiveness, func(c *gin.Context) {
		c.String(http.StatusOK, "ok\n")
	})
	engine.GET(PathReadiness, e.readiness)
	e.engine = engine

	return e
}

// Metrics returns the HTTP collectors for the web middleware.
func (e *Endpoints) Metrics() *Metrics {
	return e.metrics
}

// Registry lets other packages add collectors to the exported set.
func (e *Endpoints) Registry() prometheus.Registerer {
	return e.registry
}

// ServeHTTP implements http.Handler.
func (e *Endpoints) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.engine.ServeHTTP(w, r)
}

func (e *Endpoints) readiness(c *gin.Context) {
	if e.ready == nil {
		c.String(http.StatusOK, "ok\n")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), e.timeout)
	defer cancel()

	if e.ready(ctx) && ctx.Err() == nil {
		c.String(http.StatusOK, "ok\n")
		return
	}
	c.String(http.StatusServiceUnavailable, "not ready\n")
}
