// Package telemetry wraps the OpenTelemetry metric API with the handful of
// counters the supervisor and health monitor emit (§11 domain stack: the
// teacher instruments its gateway with go.opentelemetry.io/otel, this
// carries the same approach into the reconciler).
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry holds every counter/histogram the supervisor emits. A nil
// *Telemetry is valid and every method on it is a no-op, so callers never
// need to branch on whether telemetry was configured.
type Telemetry struct {
	provider *sdkmetric.MeterProvider

	reconciles     metric.Int64Counter
	probeOutcomes  metric.Int64Counter
	restarts       metric.Int64Counter
	fallbackUsed   metric.Int64Counter
	probeLatencyMs metric.Float64Histogram
}

// New builds a Telemetry backed by an in-process MeterProvider. Readers
// (OTLP exporters, Prometheus, etc.) attach via opts; with none given the
// provider still aggregates internally but nothing is exported off-process,
// which keeps telemetry available for anything querying it in-process
// (tests, a future /metrics handler) without forcing a collector dependency
// the teacher's own gateway doesn't pull in either.
func New(opts ...sdkmetric.Option) (*Telemetry, error) {
	provider := sdkmetric.NewMeterProvider(opts...)
	meter := provider.Meter("github.com/mcp-supervisor/mcp-supervisor")

	reconciles, err := meter.Int64Counter("supervisor.reconcile.count",
		metric.WithDescription("number of reconciliation passes run"))
	if err != nil {
		return nil, err
	}
	probeOutcomes, err := meter.Int64Counter("supervisor.probe.count",
		metric.WithDescription("health probe outcomes, labeled healthy/unhealthy/auth_error"))
	if err != nil {
		return nil, err
	}
	restarts, err := meter.Int64Counter("supervisor.restart.count",
		metric.WithDescription("child restarts, labeled by server id"))
	if err != nil {
		return nil, err
	}
	fallbackUsed, err := meter.Int64Counter("supervisor.fallback.count",
		metric.WithDescription("starts that fell back to a second proxy type"))
	if err != nil {
		return nil, err
	}
	probeLatencyMs, err := meter.Float64Histogram("supervisor.probe.latency_ms",
		metric.WithDescription("health probe round-trip time in milliseconds"))
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		provider:       provider,
		reconciles:     reconciles,
		probeOutcomes:  probeOutcomes,
		restarts:       restarts,
		fallbackUsed:   fallbackUsed,
		probeLatencyMs: probeLatencyMs,
	}, nil
}

// Shutdown flushes and releases the underlying MeterProvider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// RecordReconcile counts one reconciliation pass for mode.
func (t *Telemetry) RecordReconcile(ctx context.Context, mode string) {
	if t == nil {
		return
	}
	t.reconciles.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", mode)))
}

// RecordProbe counts one health probe outcome and its latency.
func (t *Telemetry) RecordProbe(ctx context.Context, serverID string, healthy, authError bool, latencyMs float64) {
	if t == nil {
		return
	}
	outcome := "unhealthy"
	switch {
	case authError:
		outcome = "auth_error"
	case healthy:
		outcome = "healthy"
	}
	attrs := metric.WithAttributes(attribute.String("server_id", serverID), attribute.String("outcome", outcome))
	t.probeOutcomes.Add(ctx, 1, attrs)
	t.probeLatencyMs.Record(ctx, latencyMs, metric.WithAttributes(attribute.String("server_id", serverID)))
}

// RecordRestart counts one restart attempt for serverID.
func (t *Telemetry) RecordRestart(ctx context.Context, serverID, reason string) {
	if t == nil {
		return
	}
	t.restarts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("server_id", serverID),
		attribute.String("reason", reason),
	))
}

// RecordFallback counts one start that used a non-default proxy type.
func (t *Telemetry) RecordFallback(ctx context.Context, serverID string, proxyType string) {
	if t == nil {
		return
	}
	t.fallbackUsed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("server_id", serverID),
		attribute.String("proxy_type", proxyType),
	))
}
