package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/classifier"
	"github.com/mcp-supervisor/mcp-supervisor/internal/healthmonitor"
	"github.com/mcp-supervisor/mcp-supervisor/internal/launcher"
	"github.com/mcp-supervisor/mcp-supervisor/internal/runtime"
)

// startServer implements §4.5.3: crash-loop damper, port allocation,
// try-order over proxy types, spawn, warmup, probe, and fallback. It
// returns the resulting ProxyProcess, which is already Healthy, Unhealthy,
// AuthRequired, or Failed by the time it returns — never Starting.
func (s *Supervisor) startServer(ctx context.Context, spec catalogconfig.ServerSpec) *ProxyProcess {
	s.mu.Lock()
	fs := s.reg.fallbackFor(spec.ID)
	if !allowStart(fs, s.now()) {
		s.mu.Unlock()
		log("crash-loop damper tripped for", spec.ID)
		return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}
	}
	s.mu.Unlock()

	port, ok := s.opts.Ports.Allocate(spec.ID)
	if !ok {
		log("no free port for", spec.ID)
		return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}
	}

	order := tryOrder(spec, s.opts.DefaultProxyType, fs.AttemptedTypes)
	fallbackDisabled := spec.ProxyTypeHint != ""

	var secrets map[string]string
	if s.opts.Secrets != nil {
		secrets, _ = s.opts.Secrets.Load(spec.ID)
	}

	for i, proxyType := range order {
		s.mu.Lock()
		recordAttempt(fs, proxyType, s.now())
		s.mu.Unlock()

		isLastTry := i == len(order)-1

		proc, outcome := s.attemptStart(ctx, spec, port, proxyType, secrets, healthmonitor.Probe)
		switch outcome {
		case attemptHealthy:
			s.errors.Clear(spec.ID)
			proc.FallbackUsed = i > 0
			if proc.FallbackUsed {
				s.opts.Telemetry.RecordFallback(ctx, spec.ID, string(proxyType))
			}
			return proc
		case attemptAuthRequired:
			proc.FallbackUsed = i > 0
			return proc
		case attemptUnhealthy:
			if isLastTry || fallbackDisabled {
				proc.FallbackUsed = i > 0
				return proc
			}
			s.stopProcess(ctx, proc)
			s.opts.Ports.Release(spec.ID)
			time.Sleep(portReleaseCooldown)
			newPort, ok := s.opts.Ports.Allocate(spec.ID)
			if !ok {
				return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}
			}
			port = newPort
			continue
		case attemptFailed:
			if fallbackDisabled {
				s.opts.Ports.Release(spec.ID)
				return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}
			}
			continue
		}
	}

	s.opts.Ports.Release(spec.ID)
	return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}
}

type startOutcome int

const (
	attemptHealthy startOutcome = iota
	attemptAuthRequired
	attemptUnhealthy
	attemptFailed
)

// probeFunc is the shape of both healthmonitor.Probe and healthmonitor.ProbeAlive,
// letting attemptStart serve both individual-mode children (strict openapi/docs
// probe) and multi-transport auxiliary gateways (loose alive probe, §4.8.3).
type probeFunc func(ctx context.Context, client *http.Client, target healthmonitor.Target, now func() time.Time) healthmonitor.Record

// attemptStart spawns one child for one proxy type and probes it once the
// warmup window elapses.
func (s *Supervisor) attemptStart(ctx context.Context, spec catalogconfig.ServerSpec, port int, proxyType catalogconfig.ProxyType, secrets map[string]string, probe probeFunc) (*ProxyProcess, startOutcome) {
	workDir := filepath.Join(s.opts.WorkDirRoot, spec.ID)

	plan, err := s.launcher.Build(launcher.Request{
		Spec:            spec,
		Port:            port,
		ProxyType:       proxyType,
		DecryptedSecret: secrets,
		WorkDir:         workDir,
	})
	if err != nil {
		log("launch plan rejected for", spec.ID, ":", err)
		s.errors.ObserveRecord(spec.ID, classifier.Record{Type: classifier.TypeConfig, Message: err.Error(), At: s.now()})
		return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}, attemptFailed
	}

	var proc *ProxyProcess
	if plan.Image != "" {
		if s.opts.Runtime == nil {
			msg := "launch=container requested but no container runtime is configured"
			log(spec.ID, ":", msg)
			s.errors.ObserveRecord(spec.ID, classifier.Record{Type: classifier.TypeConfig, Message: msg, At: s.now()})
			return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}, attemptFailed
		}
		p, err := s.spawnContainer(ctx, spec, port, proxyType, plan)
		if err != nil {
			log("container start failed for", spec.ID, ":", err)
			s.errors.ObserveRecord(spec.ID, classifier.Record{Type: classifier.TypeRuntime, Message: err.Error(), At: s.now()})
			return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}, attemptFailed
		}
		proc = p
	} else {
		p, err := s.spawnProcess(spec, port, proxyType, plan)
		if err != nil {
			log("spawn failed for", spec.ID, ":", err)
			s.errors.ObserveRecord(spec.ID, classifier.Record{Type: classifier.TypeRuntime, Message: err.Error(), At: s.now()})
			return &ProxyProcess{ServerID: spec.ID, Spec: spec, State: StateFailed}, attemptFailed
		}
		proc = p
	}

	s.mu.Lock()
	s.reg.put(proc)
	s.mu.Unlock()

	time.Sleep(warmupWindow(spec.Kind))

	target := healthmonitor.Target{ServerID: spec.ID, BaseURL: baseURL(port), Transport: string(spec.Kind)}
	rec := probe(ctx, s.opts.HTTP, target, s.now)
	s.opts.Telemetry.RecordProbe(ctx, spec.ID, rec.Healthy, rec.AuthError, float64(rec.ResponseTime.Milliseconds()))

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case rec.Healthy:
		proc.State = StateHealthy
		proc.Healthy = true
		s.reg.put(proc)
		return proc, attemptHealthy
	case rec.AuthError:
		proc.State = StateAuthRequired
		proc.AuthError = true
		s.errors.Observe(spec.ID, "unauthorized: authentication required")
		s.reg.put(proc)
		return proc, attemptAuthRequired
	default:
		proc.State = StateUnhealthy
		s.reg.put(proc)
		return proc, attemptUnhealthy
	}
}

// spawnProcess execs the plan as a direct child: the common path for both
// bridge proxy types.
func (s *Supervisor) spawnProcess(spec catalogconfig.ServerSpec, port int, proxyType catalogconfig.ProxyType, plan launcher.Plan) (*ProxyProcess, error) {
	cmd := exec.CommandContext(context.Background(), plan.Argv[0], plan.Argv[1:]...)
	cmd.Dir = plan.WorkDir
	cmd.Env = envSlice(plan.Env)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	corrID := correlationID()
	logf("%s: spawned pid %d as %s [%s]", spec.ID, cmd.Process.Pid, proxyType, corrID)

	proc := &ProxyProcess{
		ServerID:      spec.ID,
		CorrelationID: corrID,
		Port:          port,
		ProxyTypeUsed: proxyType,
		PID:           cmd.Process.Pid,
		StartedAt:     s.now(),
		Spec:          spec,
		WorkDir:       plan.WorkDir,
		State:         StateStarting,
		cmd:           cmd,
		exited:        make(chan struct{}),
	}

	onRecord := func(rec classifier.Record) {
		logf("%s: %s error: %s", spec.ID, rec.Type, rec.Message)
	}
	go classifier.StreamLines(s.errors, spec.ID, stdout, onRecord)
	go classifier.StreamLines(s.errors, spec.ID, stderr, onRecord)
	go s.watchExit(spec.ID, cmd)

	return proc, nil
}

// spawnContainer runs the plan as a container via the configured
// runtime.ContainerRuntime instead of a bare subprocess (SPEC_FULL §13).
// Container-launched children have no local *exec.Cmd to wait on, so their
// unexpected-exit detection is delegated entirely to the health monitor's
// remediation path (§4.7) rather than exit.go's watchExit.
func (s *Supervisor) spawnContainer(ctx context.Context, spec catalogconfig.ServerSpec, port int, proxyType catalogconfig.ProxyType, plan launcher.Plan) (*ProxyProcess, error) {
	handle, err := s.opts.Runtime.StartContainer(ctx, runtime.ContainerSpec{
		Name:          containerName(spec.ID),
		Image:         plan.Image,
		Command:       plan.Argv,
		Env:           plan.Env,
		Labels:        map[string]string{"mcp-supervisor/server-id": spec.ID},
		HostPort:      port,
		ContainerPort: port,
	})
	if err != nil {
		return nil, err
	}

	corrID := correlationID()
	logf("%s: started container %s as %s [%s]", spec.ID, handle.ID, proxyType, corrID)

	return &ProxyProcess{
		ServerID:      spec.ID,
		CorrelationID: corrID,
		Port:          port,
		ProxyTypeUsed: proxyType,
		StartedAt:     s.now(),
		Spec:          spec,
		WorkDir:       plan.WorkDir,
		State:         StateStarting,
		Container:     handle,
		exited:        make(chan struct{}),
	}, nil
}

func containerName(serverID string) string {
	return "mcp-supervisor-" + serverID
}

func warmupWindow(kind catalogconfig.Kind) time.Duration {
	if kind == catalogconfig.KindStdio {
		return warmupStdio
	}
	return warmupSSE
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}
