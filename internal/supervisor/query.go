package supervisor

import (
	"context"
	"fmt"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/healthmonitor"
	"github.com/mcp-supervisor/mcp-supervisor/internal/portpool"
)

// StatusSnapshot is the §6.3 status query result: one entry per configured
// server plus pool occupancy.
type StatusSnapshot struct {
	Mode    Mode             `json:"mode"`
	Entries []StatusEntry    `json:"entries"`
	Ports   portpool.Stats   `json:"ports"`
}

// Status reports one entry per server in desired, filled from that
// server's ProxyProcess in the registry when there is one; a server with no
// registry entry is reported as failed. Skipped servers (needsProxy=false)
// are reported as configured but not running.
func (s *Supervisor) Status(desired catalogconfig.DesiredSet) StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]StatusEntry, 0, len(desired))
	for _, id := range desired.IDs() {
		spec := desired[id]
		entry := StatusEntry{
			ServerID:   id,
			Configured: true,
			NeedsProxy: spec.NeedsProxy,
		}

		if !spec.NeedsProxy {
			entry.Status = "skipped"
			entries = append(entries, entry)
			continue
		}

		p, ok := s.reg.get(id)
		if !ok {
			entry.Status = "failed"
			entries = append(entries, entry)
			continue
		}

		entry.Healthy = p.Healthy
		entry.AuthError = p.AuthError
		entry.Port = p.Port
		entry.ProxyTypeUsed = p.ProxyTypeUsed
		entry.FallbackUsed = p.FallbackUsed
		entry.StartedAt = p.StartedAt
		if !p.StartedAt.IsZero() {
			entry.Uptime = s.now().Sub(p.StartedAt)
		}
		entry.RestartCount = p.RestartCount
		entry.Endpoint = baseURL(p.Port)

		switch p.State {
		case StateFailed:
			entry.Status = "failed"
		default:
			entry.Status = "running"
		}

		if rec, ok := s.errors.Get(id); ok {
			entry.LastError = rec.Message
			entry.ErrorType = rec.Type
		}

		entries = append(entries, entry)
	}

	var ports portpool.Stats
	if s.opts.Ports != nil {
		ports = s.opts.Ports.Stats()
	}

	return StatusSnapshot{Mode: s.opts.Mode, Entries: entries, Ports: ports}
}

// OpenAPIEndpoints lists every healthy server's OpenAPI surface (§6.3). In
// unified mode each server's base URL is the unified bridge's own base URL
// with an /<serverId> prefix.
func (s *Supervisor) OpenAPIEndpoints(desired catalogconfig.DesiredSet) []OpenAPIEndpoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	var unifiedBase string
	if s.opts.Mode == ModeUnified || s.opts.Mode == ModeMultiTransport {
		if up, ok := s.reg.get(unifiedServerID); ok && up.Healthy {
			unifiedBase = baseURL(up.Port)
		}
	}

	out := make([]OpenAPIEndpoint, 0, len(desired))
	for _, id := range desired.IDs() {
		spec := desired[id]
		if !spec.NeedsProxy {
			continue
		}

		if unifiedBase != "" {
			base := fmt.Sprintf("%s/%s", unifiedBase, id)
			out = append(out, OpenAPIEndpoint{
				ServerID:   id,
				BaseURL:    base,
				OpenAPIURL: base + "/openapi.json",
				DocsURL:    base + "/docs",
				ProxyType:  catalogconfig.ProxyMCPBridge,
			})
			continue
		}

		p, ok := s.reg.get(id)
		if !ok || !p.Healthy {
			continue
		}
		base := baseURL(p.Port)
		out = append(out, OpenAPIEndpoint{
			ServerID:   id,
			BaseURL:    base,
			OpenAPIURL: base + "/openapi.json",
			DocsURL:    base + "/docs",
			ProxyType:  p.ProxyTypeUsed,
		})
	}
	return out
}

// HealthMetrics exposes per-server derived probe metrics for the dashboard
// (§4.7, §6.3). It is a thin read-through since the history itself lives in
// the monitor, keyed by ServerID.
func (s *Supervisor) HealthMetrics(serverID string) (healthmonitor.Metrics, bool) {
	return s.health.Metrics(serverID)
}

// StartServer is the §6.3 start(id) mutation: start a configured server
// that is not currently live. Idempotent if it already is: the live
// ProxyProcess is returned unchanged. A server whose registry entry is
// Failed is restarted as Restart does.
func (s *Supervisor) StartServer(ctx context.Context, spec catalogconfig.ServerSpec) *ProxyProcess {
	s.mu.Lock()
	if p, ok := s.reg.get(spec.ID); ok {
		if p.State != StateFailed {
			s.mu.Unlock()
			return p
		}
		s.mu.Unlock()
		return s.Restart(ctx, spec)
	}
	s.mu.Unlock()

	proc := s.startServer(ctx, spec)
	s.mu.Lock()
	s.reg.put(proc)
	s.mu.Unlock()
	return proc
}

// StopServer is the §6.3 stop(id) mutation: stop a live server without
// restarting it.
func (s *Supervisor) StopServer(ctx context.Context, serverID string) {
	s.mu.Lock()
	p, ok := s.reg.get(serverID)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.stopProcess(ctx, p)
}

// Restart resets the server's restart counter and fallback state, then
// stops and restarts it (§6.3 mutation: restart(id)).
func (s *Supervisor) Restart(ctx context.Context, spec catalogconfig.ServerSpec) *ProxyProcess {
	s.mu.Lock()
	if p, ok := s.reg.get(spec.ID); ok {
		s.mu.Unlock()
		s.stopProcess(ctx, p)
	} else {
		s.mu.Unlock()
	}
	s.health.Reset(spec.ID)

	s.mu.Lock()
	delete(s.reg.fallback, spec.ID)
	s.mu.Unlock()

	proc := s.startServer(ctx, spec)
	s.mu.Lock()
	s.reg.put(proc)
	s.mu.Unlock()
	return proc
}
