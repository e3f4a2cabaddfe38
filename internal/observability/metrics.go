// Package observability exposes Prometheus metrics for agent and HTTP
// request timing, grounded on pkg/observability/metrics.go's
// Counter/HistogramVec field layout and pkg/observability/recorder.go's
// otel/metric-instrument-backed Record* method shape, completing the
// otel/sdk/metric -> otel/exporters/prometheus -> promhttp wiring the
// teacher's go.mod commits to but never assembles into a MeterProvider.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records agent and HTTP request timings through an OpenTelemetry
// MeterProvider backed by a Prometheus exporter, exposed for scraping via
// Handler. A nil *Metrics is valid: its Record* methods and Shutdown are
// no-ops and its Handler answers 503, so callers can wire it
// unconditionally whether or not metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	agentDuration metric.Float64Histogram
	agentCalls    metric.Int64Counter
	agentErrors   metric.Int64Counter
	httpDuration  metric.Float64Histogram
	httpRequests  metric.Int64Counter
}

// New builds a Metrics collector under namespace, registered against its
// own private prometheus.Registry (not the global one), matching
// pkg/observability/metrics.go's per-instance registry.
func New(namespace string) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithNamespace(namespace), otelprometheus.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("observability: prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("stockagent")

	agentDuration, err := meter.Float64Histogram("agent_call_duration_seconds",
		metric.WithDescription("Agent invocation duration in seconds"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80))
	if err != nil {
		return nil, err
	}
	agentCalls, err := meter.Int64Counter("agent_calls_total", metric.WithDescription("Total agent invocations"))
	if err != nil {
		return nil, err
	}
	agentErrors, err := meter.Int64Counter("agent_errors_total", metric.WithDescription("Total agent invocation errors"))
	if err != nil {
		return nil, err
	}
	httpDuration, err := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"))
	if err != nil {
		return nil, err
	}
	httpRequests, err := meter.Int64Counter("http_requests_total", metric.WithDescription("Total HTTP requests"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		registry:      reg,
		provider:      provider,
		agentDuration: agentDuration,
		agentCalls:    agentCalls,
		agentErrors:   agentErrors,
		httpDuration:  httpDuration,
		httpRequests:  httpRequests,
	}, nil
}

// RecordAgent is called once per agent invocation with its name, wall-clock
// duration, and the error it returned (nil on success).
func (m *Metrics) RecordAgent(ctx context.Context, agent string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("agent", agent))
	m.agentCalls.Add(ctx, 1, attrs)
	m.agentDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.agentErrors.Add(ctx, 1, attrs)
	}
}

// RecordHTTPRequest is called once per completed query-stream request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("path", path), attribute.Int("status", status))
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// Handler serves the scrape endpoint over the metrics' private registry,
// grounded on pkg/observability/metrics.go's Handler using
// promhttp.HandlerFor rather than the global promhttp.Handler().
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "metrics not enabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the underlying MeterProvider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
