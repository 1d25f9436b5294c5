package healthmonitor

import "time"

// computeMetrics derives uptime, recent failure rate, consecutive failures,
// and average response time from a server's history, oldest-first (§4.7).
func computeMetrics(records []Record) Metrics {
	if len(records) == 0 {
		return Metrics{}
	}

	healthyCount := 0
	var responseSum time.Duration
	for _, r := range records {
		if r.Healthy {
			healthyCount++
			responseSum += r.ResponseTime
		}
	}

	recent := records
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	recentFailures := 0
	for _, r := range recent {
		if !r.Healthy {
			recentFailures++
		}
	}

	consecutive := 0
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Healthy {
			break
		}
		consecutive++
	}

	var avgResponse time.Duration
	if healthyCount > 0 {
		avgResponse = responseSum / time.Duration(healthyCount)
	}

	return Metrics{
		UptimePercent:       100 * float64(healthyCount) / float64(len(records)),
		RecentFailureRate:   100 * float64(recentFailures) / float64(len(recent)),
		ConsecutiveFailures: consecutive,
		AverageResponseTime: avgResponse,
	}
}

// evaluateAlerts applies the §4.7 thresholds against the latest record and
// derived metrics.
func evaluateAlerts(serverID string, latest Record, m Metrics, now time.Time) []Alert {
	var alerts []Alert
	if m.ConsecutiveFailures >= 3 {
		alerts = append(alerts, Alert{ServerID: serverID, Name: "consecutive_failures", Severity: SeverityHigh, At: now})
	}
	if m.RecentFailureRate >= 80 {
		alerts = append(alerts, Alert{ServerID: serverID, Name: "high_failure_rate", Severity: SeverityMedium, At: now})
	}
	if latest.Healthy && latest.ResponseTime > 10*time.Second {
		alerts = append(alerts, Alert{ServerID: serverID, Name: "slow_response", Severity: SeverityLow, At: now})
	}
	return alerts
}

// shouldRemediate implements the §4.7 remediation rules: never act on an
// authError record, never remediate slow_response, and request a restart
// only once failures are frequent or consecutive enough to matter.
func shouldRemediate(latest Record, m Metrics) bool {
	if latest.AuthError {
		return false
	}
	return m.ConsecutiveFailures >= 5 || m.RecentFailureRate >= 90
}
