package healthmonitor

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// probeEndpoints are tried in order; the first 200 wins (§4.7).
var probeEndpoints = []string{"/openapi.json", "/docs", "/"}

func probeTimeout(transport string) time.Duration {
	if transport == "stdio" {
		return 5 * time.Second
	}
	return 10 * time.Second
}

// Probe runs the §4.7 probe algorithm against one target and returns the
// resulting Record. It never returns an error: every outcome, including a
// transport failure, is encoded in the Record itself. It is exported so the
// supervisor's own post-spawn probe can reuse the exact same algorithm.
func Probe(ctx context.Context, client *http.Client, target Target, now func() time.Time) Record {
	timeout := probeTimeout(target.Transport)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := now()
	var (
		lastStatus int
		sawAuth    bool
	)
	for _, endpoint := range probeEndpoints {
		status, err := getStatus(ctx, client, target.BaseURL+endpoint)
		if err != nil {
			continue
		}
		lastStatus = status
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			sawAuth = true
			continue
		}
		if status == http.StatusOK {
			return Record{
				At:           now(),
				Healthy:      true,
				StatusCode:   status,
				Endpoint:     endpoint,
				ResponseTime: now().Sub(start),
			}
		}
	}

	return Record{
		At:           now(),
		Healthy:      false,
		StatusCode:   lastStatus,
		AuthError:    sawAuth,
		ResponseTime: now().Sub(start),
	}
}

func getStatus(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// aliveEndpoints are the multi-transport probe targets from §4.8.3.
var aliveEndpoints = []string{"/", "/message", "/health", "/events", "/ws"}

// ProbeAlive implements the looser multi-transport "alive" check: any
// status below 500 counts, and for websocket targets a bare TCP connect or
// an HTTP 400 both count.
func ProbeAlive(ctx context.Context, client *http.Client, target Target, now func() time.Time) Record {
	timeout := probeTimeout(target.Transport)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := now()
	for _, endpoint := range aliveEndpoints {
		status, err := getStatus(ctx, client, target.BaseURL+endpoint)
		if err != nil {
			continue
		}
		if status < 500 {
			return Record{At: now(), Healthy: true, StatusCode: status, Endpoint: endpoint, ResponseTime: now().Sub(start)}
		}
	}

	if strings.HasSuffix(strings.ToLower(target.Transport), "websocket") {
		if websocketAlive(ctx, target.BaseURL) {
			return Record{At: now(), Healthy: true, Endpoint: "ws", ResponseTime: now().Sub(start)}
		}
	}

	return Record{At: now(), Healthy: false, ResponseTime: now().Sub(start)}
}
