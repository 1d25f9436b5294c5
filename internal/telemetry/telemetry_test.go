package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestTelemetry(t *testing.T) (*Telemetry, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	tel, err := New(metric.WithReader(reader))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	return tel, reader
}

func collect(t *testing.T, reader *metric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func metricNames(rm metricdata.ResourceMetrics) []string {
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
		}
	}
	return names
}

func TestRecordReconcileEmitsCounter(t *testing.T) {
	tel, reader := newTestTelemetry(t)
	tel.RecordReconcile(context.Background(), "individual")

	rm := collect(t, reader)
	require.Contains(t, metricNames(rm), "supervisor.reconcile.count")
}

func TestRecordProbeEmitsCounterAndHistogram(t *testing.T) {
	tel, reader := newTestTelemetry(t)
	tel.RecordProbe(context.Background(), "server-a", true, false, 42.5)

	rm := collect(t, reader)
	names := metricNames(rm)
	require.Contains(t, names, "supervisor.probe.count")
	require.Contains(t, names, "supervisor.probe.latency_ms")
}

func TestRecordRestartAndFallback(t *testing.T) {
	tel, reader := newTestTelemetry(t)
	tel.RecordRestart(context.Background(), "server-a", "health_remediation")
	tel.RecordFallback(context.Background(), "server-a", "mcp-bridge")

	rm := collect(t, reader)
	names := metricNames(rm)
	require.Contains(t, names, "supervisor.restart.count")
	require.Contains(t, names, "supervisor.fallback.count")
}

func TestNilTelemetryIsNoop(t *testing.T) {
	var tel *Telemetry

	require.NotPanics(t, func() {
		tel.RecordReconcile(context.Background(), "individual")
		tel.RecordProbe(context.Background(), "server-a", true, false, 1.0)
		tel.RecordRestart(context.Background(), "server-a", "exit")
		tel.RecordFallback(context.Background(), "server-a", "mcpo")
		require.NoError(t, tel.Shutdown(context.Background()))
	})
}
