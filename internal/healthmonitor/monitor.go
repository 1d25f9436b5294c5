package healthmonitor

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mcp-supervisor/mcp-supervisor/internal/telemetry"
)

// Config controls the monitor's cadence and fan-out.
type Config struct {
	Interval    time.Duration
	Concurrency int
	Client      *http.Client
	Telemetry   *telemetry.Telemetry
}

// TargetSource supplies the current set of live targets to probe on each
// sweep; the monitor never owns the registry, it only reads from it.
type TargetSource func() []Target

// Monitor runs the §4.7 probe loop and publishes an Event per probe onto a
// bounded channel. It never spawns or kills processes itself.
type Monitor struct {
	cfg     Config
	targets TargetSource
	events  chan Event

	mu        sync.Mutex
	histories map[string]*history

	now func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Monitor. Call Start to begin background probing.
func New(targets TargetSource, cfg Config) *Monitor {
	if cfg.Interval == 0 {
		cfg.Interval = ProbeInterval
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 10
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	return &Monitor{
		cfg:       cfg,
		targets:   targets,
		events:    make(chan Event, 256),
		histories: make(map[string]*history),
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

// Events exposes the bounded event stream the supervisor consumes.
func (m *Monitor) Events() <-chan Event { return m.events }

// Start launches the background sweep goroutine.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop halts the monitor and waits for the sweep goroutine to exit. It does
// not close the events channel, so a final in-flight sweep can still drain.
func (m *Monitor) Stop() {
	close(m.stop)
	m.wg.Wait()
}

// Reset drops history for serverID, e.g. after a manual restart resets the
// supervisor's own restart counter.
func (m *Monitor) Reset(serverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, serverID)
}

func (m *Monitor) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

// sweep probes every current target concurrently, bounded by Concurrency.
// The bound is a semaphore.Weighted rather than a raw channel so the cap
// reads as a resource limit, and the fan-out is an errgroup since probeOne
// never returns an error worth collecting but the group still gives us a
// single Wait point.
func (m *Monitor) sweep() {
	targets := m.targets()
	sem := semaphore.NewWeighted(int64(m.cfg.Concurrency))
	var g errgroup.Group

	for _, t := range targets {
		t := t
		if err := sem.Acquire(context.Background(), 1); err != nil {
			continue
		}
		g.Go(func() error {
			defer sem.Release(1)
			m.probeOne(t)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Monitor) probeOne(t Target) {
	var rec Record
	if t.Transport == "stdio" || t.Transport == "sse" || t.Transport == "streamable-http" {
		rec = Probe(context.Background(), m.cfg.Client, t, m.now)
	} else {
		rec = ProbeAlive(context.Background(), m.cfg.Client, t, m.now)
	}

	m.cfg.Telemetry.RecordProbe(context.Background(), t.ServerID, rec.Healthy, rec.AuthError, float64(rec.ResponseTime.Milliseconds()))

	h := m.historyFor(t.ServerID)
	h.append(rec)
	metrics := h.metrics()
	alerts := evaluateAlerts(t.ServerID, rec, metrics, m.now())

	event := Event{
		ServerID:         t.ServerID,
		Record:           rec,
		Metrics:          metrics,
		Alerts:           alerts,
		RemediateRestart: shouldRemediate(rec, metrics),
	}

	select {
	case m.events <- event:
	default:
		// Bounded queue: when it is full this event is dropped rather than
		// blocking the sweep; the next sweep supersedes it anyway.
	}
}

// Metrics returns the current derived metrics for serverID, and false if no
// probe has ever been recorded for it.
func (m *Monitor) Metrics(serverID string) (Metrics, bool) {
	m.mu.Lock()
	h, ok := m.histories[serverID]
	m.mu.Unlock()
	if !ok {
		return Metrics{}, false
	}
	return h.metrics(), true
}

func (m *Monitor) historyFor(serverID string) *history {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histories[serverID]
	if !ok {
		h = newHistory()
		m.histories[serverID] = h
	}
	return h
}
