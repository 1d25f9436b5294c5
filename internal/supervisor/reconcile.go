package supervisor

import (
	"context"
	"time"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
)

// reloadSafetyThreshold guards against a transient parse error that would
// otherwise cause a mass shutdown: an empty desired set is refused outright
// when more than this many servers are currently live (§4.1 reload safety).
const reloadSafetyThreshold = 2

// Reconcile drives the live registry toward desired (§4.5.2). Unified and
// multi-transport modes delegate to their own reconcilers; individual mode
// is implemented directly here.
func (s *Supervisor) Reconcile(ctx context.Context, desired catalogconfig.DesiredSet) {
	s.opts.Telemetry.RecordReconcile(ctx, string(s.opts.Mode))

	if len(desired) == 0 {
		s.mu.Lock()
		liveCount := len(s.reg.liveIDs())
		s.mu.Unlock()
		if liveCount > reloadSafetyThreshold {
			log("refusing reload: empty desired set would shut down", liveCount, "live servers")
			return
		}
	}

	switch s.opts.Mode {
	case ModeUnified, ModeMultiTransport:
		s.reconcileUnified(ctx, desired)
		return
	default:
		s.reconcileIndividual(ctx, desired)
	}
}

func (s *Supervisor) reconcileIndividual(ctx context.Context, desired catalogconfig.DesiredSet) {
	s.mu.Lock()
	live := make(map[string]*ProxyProcess, len(s.reg.processes))
	for id, p := range s.reg.processes {
		live[id] = p
	}
	s.mu.Unlock()

	removals, starts := diff(desired, live)

	for i, id := range removals {
		p, ok := live[id]
		if !ok {
			continue
		}
		s.stopProcess(ctx, p)
		if i < len(removals)-1 {
			time.Sleep(stopStaggerEvery)
		}
	}
	if len(removals) > stopBatchThreshold {
		time.Sleep(stopBatchPause)
	}

	for _, id := range starts {
		spec := desired[id]
		proc := s.startServer(ctx, spec)
		s.mu.Lock()
		s.reg.put(proc)
		s.mu.Unlock()
	}
}
