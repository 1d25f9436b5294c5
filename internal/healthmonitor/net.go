package healthmonitor

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// websocketAlive attempts a real upgrade handshake against the target's
// "/ws" endpoint. Per §4.8.3 a successful upgrade or a 400 response from
// the bridge (meaning something is listening and speaking HTTP, just not
// granting this particular upgrade) both count as alive; anything else
// falls back to a bare TCP connect so a bridge that never implements the
// upgrade route at all is still detected as up.
func websocketAlive(ctx context.Context, baseURL string) bool {
	wsURL := toWebsocketURL(baseURL) + "/ws"

	dialer := websocket.Dialer{HandshakeTimeout: probeTimeout("websocket")}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err == nil {
		_ = conn.Close()
		return true
	}
	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return true
	}
	return tcpConnect(ctx, baseURL)
}

// toWebsocketURL rewrites an http(s) base URL to its ws(s) equivalent.
func toWebsocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}

// tcpConnect reports whether a bare TCP connection to baseURL's host:port
// succeeds, used as the websocket "alive" fallback of last resort (§4.8.3).
func tcpConnect(ctx context.Context, baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		switch u.Scheme {
		case "https", "wss":
			host = net.JoinHostPort(host, "443")
		default:
			host = net.JoinHostPort(host, "80")
		}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
