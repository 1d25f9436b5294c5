package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/classifier"
	"github.com/mcp-supervisor/mcp-supervisor/internal/healthmonitor"
	"github.com/mcp-supervisor/mcp-supervisor/internal/launcher"
	"github.com/mcp-supervisor/mcp-supervisor/internal/portpool"
)

func newTestSupervisorNoRuntime(t *testing.T) *Supervisor {
	t.Helper()
	ports, err := portpool.New(4300, 4400)
	require.NoError(t, err)
	return New(Options{Ports: ports, WorkDirRoot: t.TempDir()})
}

func TestSpawnProcessAndStopViaSigterm(t *testing.T) {
	s := newTestSupervisorNoRuntime(t)

	spec := catalogconfig.ServerSpec{ID: "svc-exec", Kind: catalogconfig.KindStdio}
	plan := launcher.Plan{Argv: []string{"sleep", "30"}, WorkDir: t.TempDir()}

	proc, err := s.spawnProcess(spec, 4300, catalogconfig.ProxyMCPO, plan)
	require.NoError(t, err)
	require.Greater(t, proc.PID, 0)
	require.Equal(t, StateStarting, proc.State)
	require.NotEmpty(t, proc.CorrelationID)
	require.Nil(t, proc.Container)

	s.mu.Lock()
	s.reg.put(proc)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.stopProcess(context.Background(), proc)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stopProcess did not return after SIGTERM")
	}

	select {
	case <-proc.exited:
	default:
		t.Fatal("exited channel was not closed")
	}
}

// TestAttemptStart_DisallowedCommand_RecordsConfigError covers the boundary
// case from spec.md:321: a stdio command outside the launcher whitelist must
// be refused before spawn, with State=Failed and errorType=config visible
// through Status() (§7).
func TestAttemptStart_DisallowedCommand_RecordsConfigError(t *testing.T) {
	s := newTestSupervisorNoRuntime(t)

	spec := catalogconfig.ServerSpec{
		ID:      "evil",
		Kind:    catalogconfig.KindStdio,
		Command: "bash",
		Args:    []string{"-c", "rm -rf /"},
	}

	proc, outcome := s.attemptStart(context.Background(), spec, 4301, catalogconfig.ProxyMCPO, nil, healthmonitor.Probe)
	require.Equal(t, attemptFailed, outcome)
	require.Equal(t, StateFailed, proc.State)

	rec, ok := s.errors.Get(spec.ID)
	require.True(t, ok, "expected a recorded error for %s", spec.ID)
	require.Equal(t, classifier.TypeConfig, rec.Type)
}

func TestAttemptStart_NoContainerRuntimeConfigured_RecordsConfigError(t *testing.T) {
	s := newTestSupervisorNoRuntime(t)

	spec := catalogconfig.ServerSpec{
		ID:      "containerized",
		Kind:    catalogconfig.KindStdio,
		Command: "uvx",
		Args:    []string{"mcp-server-fetch"},
		Launch:  catalogconfig.LaunchContainer,
		Image:   "ghcr.io/example/mcp-server-fetch:latest",
	}

	proc, outcome := s.attemptStart(context.Background(), spec, 4302, catalogconfig.ProxyMCPO, nil, healthmonitor.Probe)
	require.Equal(t, attemptFailed, outcome)
	require.Equal(t, StateFailed, proc.State)

	rec, ok := s.errors.Get(spec.ID)
	require.True(t, ok, "expected a recorded error for %s", spec.ID)
	require.Equal(t, classifier.TypeConfig, rec.Type)
}
