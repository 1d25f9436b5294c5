package supervisor

import (
	"context"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/classifier"
	"github.com/mcp-supervisor/mcp-supervisor/internal/healthmonitor"
	"github.com/mcp-supervisor/mcp-supervisor/internal/launcher"
)

// unifiedServerID is the sentinel registry key for the single bridge child
// that fronts every server in unified/multi-transport mode (§4.8.2).
const unifiedServerID = "__unified__"

// unifiedStartupBudget bounds how long the unified child has to come up
// before its first probe (§4.8.2).
const unifiedStartupBudget = 30 * time.Second

// unifiedState is the Supervisor's memory across reconcile passes for
// unified and multi-transport mode: the set of specs the running bridge
// child was built from, and the auxiliary per-server-per-transport
// gateways multi-transport mode layers on top (§4.8.3).
type unifiedState struct {
	specs        catalogconfig.DesiredSet
	restartCount int
	aux          map[string]*ProxyProcess // keyed by auxKey(serverID, transport)
}

func auxKey(serverID, transport string) string {
	return serverID + "@" + transport
}

// reconcileUnified implements §4.8.2/§4.8.3: one multiplexing bridge child
// rebuilt whenever the desired set changes, plus (multi-transport only) an
// auxiliary gateway per server per enabled transport.
func (s *Supervisor) reconcileUnified(ctx context.Context, desired catalogconfig.DesiredSet) {
	s.mu.Lock()
	if s.unified == nil {
		s.unified = &unifiedState{aux: make(map[string]*ProxyProcess)}
	}
	u := s.unified
	current, hasChild := s.reg.get(unifiedServerID)
	needsRebuild := !hasChild || current.State == StateFailed || !desiredSetEqual(u.specs, desired)
	s.mu.Unlock()

	if needsRebuild {
		if hasChild {
			s.stopProcess(ctx, current)
		}
		s.startUnifiedChild(ctx, desired)
	}

	if s.opts.Mode == ModeMultiTransport {
		s.reconcileAuxGateways(ctx, desired)
	}
}

func desiredSetEqual(a, b catalogconfig.DesiredSet) bool {
	if len(a) != len(b) {
		return false
	}
	for id, spec := range a {
		other, ok := b[id]
		if !ok || !spec.Equal(other) {
			return false
		}
	}
	return true
}

// startUnifiedChild spawns the single mcp-bridge process multiplexing every
// desired server under /<id> route prefixes, registers it under the
// sentinel id, and probes it once (/openapi.json, /docs, then /) after the
// startup budget has elapsed.
func (s *Supervisor) startUnifiedChild(ctx context.Context, desired catalogconfig.DesiredSet) {
	ids := desired.IDs()
	specs := make([]catalogconfig.ServerSpec, 0, len(ids))
	secrets := make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		spec := desired[id]
		specs = append(specs, spec)
		if s.opts.Secrets != nil {
			if sec, err := s.opts.Secrets.Load(id); err == nil {
				secrets[id] = sec
			}
		}
	}

	port, ok := s.opts.Ports.Allocate(unifiedServerID)
	if !ok {
		log("no free port for unified bridge")
		s.markUnifiedFailed(desired)
		return
	}

	workDir := filepath.Join(s.opts.WorkDirRoot, unifiedServerID)
	plan, err := launcher.BuildUnifiedPlan(specs, secrets, port, workDir, s.opts.CacheDir)
	if err != nil {
		log("unified plan rejected:", err)
		s.opts.Ports.Release(unifiedServerID)
		s.markUnifiedFailed(desired)
		return
	}
	if err := stageUnifiedConfig(workDir, plan.ConfigFile); err != nil {
		log("unified config stage failed:", err)
		s.opts.Ports.Release(unifiedServerID)
		s.markUnifiedFailed(desired)
		return
	}

	cmd := exec.CommandContext(context.Background(), plan.Argv[0], plan.Argv[1:]...)
	cmd.Dir = plan.WorkDir
	cmd.Env = envSlice(plan.Env)

	stdout, err1 := cmd.StdoutPipe()
	stderr, err2 := cmd.StderrPipe()
	if err1 != nil || err2 != nil {
		s.opts.Ports.Release(unifiedServerID)
		s.markUnifiedFailed(desired)
		return
	}
	if err := cmd.Start(); err != nil {
		log("unified bridge spawn failed:", err)
		s.opts.Ports.Release(unifiedServerID)
		s.markUnifiedFailed(desired)
		return
	}

	proc := &ProxyProcess{
		ServerID:      unifiedServerID,
		Port:          port,
		ProxyTypeUsed: catalogconfig.ProxyMCPBridge,
		PID:           cmd.Process.Pid,
		StartedAt:     s.now(),
		WorkDir:       plan.WorkDir,
		State:         StateStarting,
		cmd:           cmd,
		exited:        make(chan struct{}),
	}

	s.mu.Lock()
	s.unified.specs = desired
	s.reg.put(proc)
	s.mu.Unlock()

	onRecord := func(rec classifier.Record) {
		logf("unified: %s error: %s", rec.Type, rec.Message)
	}
	go classifier.StreamLines(s.errors, unifiedServerID, stdout, onRecord)
	go classifier.StreamLines(s.errors, unifiedServerID, stderr, onRecord)
	go s.watchUnifiedExit(cmd)

	time.Sleep(unifiedStartupBudget)

	target := healthmonitor.Target{ServerID: unifiedServerID, BaseURL: baseURL(port), Transport: "streamable-http"}
	rec := healthmonitor.Probe(ctx, s.opts.HTTP, target, s.now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Healthy {
		proc.State = StateHealthy
		proc.Healthy = true
		s.unified.restartCount = 0
	} else {
		proc.State = StateUnhealthy
	}
	s.reg.put(proc)
}

func (s *Supervisor) markUnifiedFailed(desired catalogconfig.DesiredSet) {
	s.mu.Lock()
	s.unified.specs = desired
	s.reg.put(&ProxyProcess{ServerID: unifiedServerID, State: StateFailed})
	s.mu.Unlock()
}

// watchUnifiedExit restarts the unified child with backoff on unexpected
// exit, up to three consecutive attempts, then gives up (§4.8.2).
func (s *Supervisor) watchUnifiedExit(cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	p, ok := s.reg.get(unifiedServerID)
	if !ok || p.cmd != cmd {
		s.mu.Unlock()
		return
	}
	close(p.exited)
	expected := p.State == StateStopping
	desired := s.unified.specs
	restartCount := s.unified.restartCount
	s.mu.Unlock()

	if expected {
		return
	}
	if err == nil {
		log("unified bridge exited 0")
		s.mu.Lock()
		s.reg.remove(unifiedServerID)
		s.mu.Unlock()
		s.opts.Ports.Release(unifiedServerID)
		return
	}

	errType, msg := classifyExit(err)
	s.errors.ObserveRecord(unifiedServerID, classifier.Record{Type: errType, Message: msg, At: s.now()})

	s.mu.Lock()
	s.reg.remove(unifiedServerID)
	s.mu.Unlock()
	s.opts.Ports.Release(unifiedServerID)

	if restartCount >= restartRetryCap {
		log("unified bridge exceeded restart cap, marking Failed")
		s.mu.Lock()
		s.reg.put(&ProxyProcess{ServerID: unifiedServerID, State: StateFailed})
		s.mu.Unlock()
		return
	}

	time.Sleep(restartBackoff)

	s.mu.Lock()
	s.unified.restartCount = restartCount + 1
	s.mu.Unlock()
	s.startUnifiedChild(context.Background(), desired)
}

func stageUnifiedConfig(workDir string, f *launcher.GeneratedFile) error {
	return launcher.StageConfigFile(workDir, f)
}

// reconcileAuxGateways maintains one auxiliary gateway process per server
// per enabled transport (§4.8.3): these share individual-mode supervision
// (port from pool, warmup, probe, up to three restarts) but use the looser
// ProbeAlive check instead of the strict openapi/docs probe.
func (s *Supervisor) reconcileAuxGateways(ctx context.Context, desired catalogconfig.DesiredSet) {
	s.mu.Lock()
	u := s.unified
	wantKeys := make(map[string]bool)
	for _, id := range desired.IDs() {
		for _, transport := range s.opts.EnabledTransports {
			wantKeys[auxKey(id, transport)] = true
		}
	}
	var stale []string
	for key := range u.aux {
		if !wantKeys[key] {
			stale = append(stale, key)
		}
	}
	s.mu.Unlock()

	for _, key := range stale {
		s.mu.Lock()
		p := u.aux[key]
		delete(u.aux, key)
		s.mu.Unlock()
		if p != nil {
			s.stopProcess(ctx, p)
		}
	}

	for _, id := range desired.IDs() {
		spec := desired[id]
		for _, transport := range s.opts.EnabledTransports {
			key := auxKey(id, transport)
			s.mu.Lock()
			_, exists := u.aux[key]
			s.mu.Unlock()
			if exists {
				continue
			}
			s.startAuxGateway(ctx, spec, transport)
		}
	}
}

func (s *Supervisor) startAuxGateway(ctx context.Context, spec catalogconfig.ServerSpec, transport string) {
	key := auxKey(spec.ID, transport)
	auxID := key

	port, ok := s.opts.Ports.Allocate(auxID)
	if !ok {
		log("no free port for auxiliary gateway", auxID)
		return
	}

	var secrets map[string]string
	if s.opts.Secrets != nil {
		secrets, _ = s.opts.Secrets.Load(spec.ID)
	}

	proxyType := spec.ProxyTypeHint
	if proxyType == "" {
		proxyType = s.opts.DefaultProxyType
	}

	auxSpec := spec
	auxSpec.ID = auxID

	proc, outcome := s.attemptStart(ctx, auxSpec, port, proxyType, secrets, healthmonitor.ProbeAlive)
	// "aux-" prefixed so the generic health monitor sweep's transport
	// dispatch (strict Probe for stdio/sse/streamable-http) always falls
	// through to the loose ProbeAlive check for these gateways (§4.8.3).
	proc.MonitorTransport = "aux-" + transport

	s.mu.Lock()
	s.unified.aux[key] = proc
	s.mu.Unlock()

	if outcome == attemptFailed {
		log("auxiliary gateway failed to start:", auxID)
	}
}
