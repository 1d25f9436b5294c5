package supervisor

import (
	"context"

	"github.com/mcp-supervisor/mcp-supervisor/internal/classifier"
	"github.com/mcp-supervisor/mcp-supervisor/internal/healthmonitor"
)

// handleHealthEvent folds one probe outcome into the registry (§4.7): it
// flips Healthy/Unhealthy, clears or records the error for the server, and
// restarts through the same machinery as an unexpected exit when the
// remediation rules ask for it.
func (s *Supervisor) handleHealthEvent(ev healthmonitor.Event) {
	s.mu.Lock()
	p, ok := s.reg.get(ev.ServerID)
	if !ok || p.State == StateStopping || p.State == StateStarting {
		s.mu.Unlock()
		return
	}

	if ev.Record.Healthy {
		p.State = StateHealthy
		p.Healthy = true
		p.AuthError = false
		s.reg.put(p)
		s.mu.Unlock()
		s.errors.Clear(ev.ServerID)
		return
	}

	if ev.Record.AuthError {
		p.State = StateAuthRequired
		p.AuthError = true
		p.Healthy = false
		s.reg.put(p)
		s.mu.Unlock()
		s.errors.ObserveRecord(ev.ServerID, classifier.Record{
			Type:    classifier.TypeAuth,
			Message: "unauthorized: authentication required",
			At:      s.now(),
		})
		return
	}

	p.State = StateUnhealthy
	p.Healthy = false
	s.mu.Unlock()
	s.errors.ObserveRecord(ev.ServerID, classifier.Record{
		Type:    classifier.TypeHealth,
		Message: "health probe failing",
		At:      s.now(),
	})

	if !ev.RemediateRestart {
		return
	}

	s.mu.Lock()
	restartCount := p.RestartCount
	s.mu.Unlock()

	if restartCount >= restartRetryCap {
		log(ev.ServerID, "health remediation skipped, restart cap reached")
		return
	}

	s.mu.Lock()
	fs := s.reg.fallbackFor(ev.ServerID)
	permitted := allowStart(fs, s.now())
	s.mu.Unlock()
	if !permitted {
		log(ev.ServerID, "crash-loop damper tripped during health remediation")
		return
	}

	log(ev.ServerID, "restarting due to health remediation")
	s.opts.Telemetry.RecordRestart(context.Background(), ev.ServerID, "health_remediation")
	nextRestartCount := restartCount + 1
	s.stopProcess(context.Background(), p)
	newProc := s.startServer(context.Background(), p.Spec)
	s.mu.Lock()
	newProc.RestartCount = nextRestartCount
	s.reg.put(newProc)
	s.mu.Unlock()
}
