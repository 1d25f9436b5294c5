package healthmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics_Empty(t *testing.T) {
	m := computeMetrics(nil)
	assert.Equal(t, Metrics{}, m)
}

func TestComputeMetrics_UptimeAndFailureRate(t *testing.T) {
	records := []Record{
		{Healthy: true, ResponseTime: 10 * time.Millisecond},
		{Healthy: false},
		{Healthy: true, ResponseTime: 20 * time.Millisecond},
		{Healthy: false},
	}
	m := computeMetrics(records)
	assert.Equal(t, 50.0, m.UptimePercent)
	assert.Equal(t, 50.0, m.RecentFailureRate)
	assert.Equal(t, 1, m.ConsecutiveFailures)
	assert.Equal(t, 15*time.Millisecond, m.AverageResponseTime)
}

func TestComputeMetrics_ConsecutiveFailuresFromTail(t *testing.T) {
	records := []Record{
		{Healthy: true},
		{Healthy: false},
		{Healthy: false},
		{Healthy: false},
	}
	m := computeMetrics(records)
	assert.Equal(t, 3, m.ConsecutiveFailures)
}

func TestComputeMetrics_RecentWindowCapsAtTen(t *testing.T) {
	records := make([]Record, 0, 12)
	for i := 0; i < 12; i++ {
		records = append(records, Record{Healthy: i >= 2}) // first 2 fail, rest healthy
	}
	m := computeMetrics(records)
	// Only the last 10 count toward recent failure rate; both failures fall
	// outside that window.
	assert.Equal(t, 0.0, m.RecentFailureRate)
}

func TestEvaluateAlerts_Thresholds(t *testing.T) {
	now := time.Now()

	alerts := evaluateAlerts("srv1", Record{Healthy: false}, Metrics{ConsecutiveFailures: 3}, now)
	assert.Len(t, alerts, 1)
	assert.Equal(t, "consecutive_failures", alerts[0].Name)
	assert.Equal(t, SeverityHigh, alerts[0].Severity)

	alerts = evaluateAlerts("srv1", Record{Healthy: false}, Metrics{RecentFailureRate: 80}, now)
	assert.Len(t, alerts, 1)
	assert.Equal(t, "high_failure_rate", alerts[0].Name)

	alerts = evaluateAlerts("srv1", Record{Healthy: true, ResponseTime: 11 * time.Second}, Metrics{}, now)
	assert.Len(t, alerts, 1)
	assert.Equal(t, "slow_response", alerts[0].Name)
	assert.Equal(t, SeverityLow, alerts[0].Severity)
}

func TestShouldRemediate_SkipsAuthError(t *testing.T) {
	assert.False(t, shouldRemediate(Record{AuthError: true}, Metrics{ConsecutiveFailures: 10}))
}

func TestShouldRemediate_ConsecutiveFailures(t *testing.T) {
	assert.True(t, shouldRemediate(Record{}, Metrics{ConsecutiveFailures: 5}))
	assert.False(t, shouldRemediate(Record{}, Metrics{ConsecutiveFailures: 4}))
}

func TestShouldRemediate_FailureRate(t *testing.T) {
	assert.True(t, shouldRemediate(Record{}, Metrics{RecentFailureRate: 90}))
	assert.False(t, shouldRemediate(Record{}, Metrics{RecentFailureRate: 89}))
}

func TestShouldRemediate_NeverForSlowResponseAlone(t *testing.T) {
	assert.False(t, shouldRemediate(Record{Healthy: true, ResponseTime: time.Minute}, Metrics{}))
}
