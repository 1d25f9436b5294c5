package supervisor

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/classifier"
	"github.com/mcp-supervisor/mcp-supervisor/internal/healthmonitor"
	"github.com/mcp-supervisor/mcp-supervisor/internal/launcher"
	"github.com/mcp-supervisor/mcp-supervisor/internal/portpool"
	"github.com/mcp-supervisor/mcp-supervisor/internal/runtime"
	"github.com/mcp-supervisor/mcp-supervisor/internal/secretstore"
	"github.com/mcp-supervisor/mcp-supervisor/internal/telemetry"
)

// Mode selects one of the §4.8 strategies.
type Mode string

const (
	ModeIndividual     Mode = "individual"
	ModeUnified        Mode = "unified"
	ModeMultiTransport Mode = "multi-transport"
)

// Options configures a Supervisor at construction time.
type Options struct {
	Mode             Mode
	DefaultProxyType catalogconfig.ProxyType
	WorkDirRoot      string
	CacheDir         string

	Ports   *portpool.Pool
	Secrets *secretstore.Store
	Runtime runtime.ContainerRuntime // nil if container launch mode is unused
	HTTP    *http.Client

	// Telemetry is optional; a nil value disables metrics entirely (every
	// method on *telemetry.Telemetry tolerates a nil receiver).
	Telemetry *telemetry.Telemetry

	// EnabledTransports is consulted only in ModeMultiTransport (§4.8.3).
	EnabledTransports []string
}

// Supervisor is the single-writer actor over the process registry and
// fallback state (§4.5). All mutation happens while holding mu; every
// suspension point (probe, spawn wait, warmup, cooldown) happens with the
// lock released, operating on a copied snapshot instead.
type Supervisor struct {
	opts Options

	mu  sync.Mutex
	reg *registry

	launcher   *launcher.Launcher
	errors     *classifier.Recorder
	health     *healthmonitor.Monitor
	now        func() time.Time

	unified *unifiedState

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Supervisor. Call Start to begin serving health events;
// Reconcile may be called before or after Start.
func New(opts Options) *Supervisor {
	if opts.WorkDirRoot == "" {
		opts.WorkDirRoot = filepath.Join(os.TempDir(), "mcp-supervisor")
	}
	if opts.DefaultProxyType == "" {
		opts.DefaultProxyType = catalogconfig.ProxyMCPO
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{}
	}

	s := &Supervisor{
		opts:     opts,
		reg:      newRegistry(),
		launcher: launcher.New(opts.CacheDir),
		errors:   classifier.NewRecorder(),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	s.health = healthmonitor.New(s.healthTargets, healthmonitor.Config{Client: opts.HTTP, Telemetry: opts.Telemetry})
	return s
}

// Start launches the health monitor and its event-consuming goroutine.
func (s *Supervisor) Start() {
	s.health.Start()
	s.wg.Add(1)
	go s.consumeHealthEvents()
}

// Shutdown stops the health monitor, then stops every live process in
// parallel, each bounded by the graceful/kill fallback (§5 Cancellation).
func (s *Supervisor) Shutdown(ctx context.Context) {
	close(s.stopCh)
	s.health.Stop()
	s.wg.Wait()

	s.mu.Lock()
	ids := s.reg.liveIDs()
	procs := make([]*ProxyProcess, 0, len(ids))
	for _, id := range ids {
		p, _ := s.reg.get(id)
		procs = append(procs, p)
	}
	s.mu.Unlock()

	var g errgroup.Group
	for _, p := range procs {
		p := p
		g.Go(func() error {
			s.stopProcess(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Supervisor) consumeHealthEvents() {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-s.health.Events():
			if !ok {
				return
			}
			s.handleHealthEvent(ev)
		case <-s.stopCh:
			return
		}
	}
}

// healthTargets is the TargetSource the health monitor polls each sweep.
// It takes a registry snapshot under lock, then builds targets lock-free.
func (s *Supervisor) healthTargets() []healthmonitor.Target {
	s.mu.Lock()
	ids := s.reg.liveIDs()
	targets := make([]healthmonitor.Target, 0, len(ids))
	for _, id := range ids {
		p, ok := s.reg.get(id)
		if !ok || p.State == StateStarting || p.State == StateStopping {
			continue
		}
		if id == unifiedServerID {
			// The unified bridge child is probed once by
			// startUnifiedChild and restarted on exit by
			// watchUnifiedExit, not by the generic health monitor sweep.
			continue
		}
		transport := p.MonitorTransport
		if transport == "" {
			transport = string(p.Spec.Kind)
		}
		targets = append(targets, healthmonitor.Target{
			ServerID:  id,
			BaseURL:   baseURL(p.Port),
			Transport: transport,
		})
	}
	s.mu.Unlock()
	return targets
}

func baseURL(port int) string {
	return "http://127.0.0.1:" + strconv.Itoa(port)
}
