package supervisor

import (
	"sort"
	"time"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
)

// registry holds the live ProxyProcess set and FallbackState map. Per the
// single-writer invariant (§4.5), only Supervisor methods mutate these maps,
// and only while holding Supervisor.mu.
type registry struct {
	processes map[string]*ProxyProcess
	fallback  map[string]*FallbackState
}

func newRegistry() *registry {
	return &registry{
		processes: make(map[string]*ProxyProcess),
		fallback:  make(map[string]*FallbackState),
	}
}

func (r *registry) get(serverID string) (*ProxyProcess, bool) {
	p, ok := r.processes[serverID]
	return p, ok
}

func (r *registry) put(p *ProxyProcess) {
	r.processes[p.ServerID] = p
}

func (r *registry) remove(serverID string) {
	delete(r.processes, serverID)
}

func (r *registry) liveIDs() []string {
	ids := make([]string, 0, len(r.processes))
	for id := range r.processes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *registry) fallbackFor(serverID string) *FallbackState {
	fs, ok := r.fallback[serverID]
	if !ok {
		fs = newFallbackState()
		r.fallback[serverID] = fs
	}
	return fs
}

// allowStart applies the §4.5.3 crash-loop damper. It resets state once the
// window has elapsed and reports whether a start attempt may proceed.
func allowStart(fs *FallbackState, now time.Time) bool {
	if fs.TotalAttempts >= crashLoopMaxAttempts {
		if now.Sub(fs.LastAttemptAt) >= crashLoopWindow {
			fs.TotalAttempts = 0
			fs.AttemptedTypes = make(map[catalogconfig.ProxyType]bool)
			return true
		}
		return false
	}
	return true
}

// recordAttempt mutates fs to record one more proxy-type attempt.
func recordAttempt(fs *FallbackState, proxyType catalogconfig.ProxyType, now time.Time) {
	fs.AttemptedTypes[proxyType] = true
	fs.TotalAttempts++
	fs.LastAttemptAt = now
}

// tryOrder builds the §4.5.3 proxy-type try-order for one start attempt.
func tryOrder(spec catalogconfig.ServerSpec, defaultType catalogconfig.ProxyType, attempted map[catalogconfig.ProxyType]bool) []catalogconfig.ProxyType {
	if spec.ProxyTypeHint != "" {
		return []catalogconfig.ProxyType{spec.ProxyTypeHint}
	}

	other := catalogconfig.ProxyMCPBridge
	if defaultType == catalogconfig.ProxyMCPBridge {
		other = catalogconfig.ProxyMCPO
	}

	candidates := []catalogconfig.ProxyType{defaultType, other}
	order := make([]catalogconfig.ProxyType, 0, len(candidates))
	for _, c := range candidates {
		if !attempted[c] {
			order = append(order, c)
		}
	}
	return order
}

// diff computes removals (live, not desired) and additions/changes
// (desired entries with no live entry, or a live entry whose effective
// spec differs) per §4.5.2.
func diff(desired catalogconfig.DesiredSet, live map[string]*ProxyProcess) (removals []string, starts []string) {
	for id := range live {
		if _, ok := desired[id]; !ok {
			removals = append(removals, id)
		}
	}

	for _, id := range desired.IDs() {
		spec := desired[id]
		if !spec.NeedsProxy {
			continue
		}
		p, ok := live[id]
		if !ok {
			starts = append(starts, id)
			continue
		}
		if !p.Spec.Equal(spec) {
			removals = append(removals, id)
			starts = append(starts, id)
		}
	}
	sort.Strings(removals)
	return removals, starts
}
