package supervisor

import (
	"context"
	"os/exec"
	"time"

	"github.com/mcp-supervisor/mcp-supervisor/internal/classifier"
)

// watchExit is the sole owner of cmd.Wait() for a child: stopProcess only
// signals and waits on p.exited, never calling Wait itself, so the two
// never race on the same *exec.Cmd (§4.5.4, §4.5.5).
func (s *Supervisor) watchExit(serverID string, cmd *exec.Cmd) {
	err := cmd.Wait()

	s.mu.Lock()
	p, ok := s.reg.get(serverID)
	if !ok || p.cmd != cmd {
		s.mu.Unlock()
		return
	}
	close(p.exited)
	expected := p.State == StateStopping
	s.mu.Unlock()

	if expected {
		return
	}
	s.handleUnexpectedExit(serverID, p, err)
}

// handleUnexpectedExit classifies the exit and either restarts (below caps
// and damper) or transitions to Failed (§4.5.4). A clean exit code 0 is
// treated as expected even without an operator-initiated stop: no error is
// recorded and the child is not restarted.
func (s *Supervisor) handleUnexpectedExit(serverID string, p *ProxyProcess, exitErr error) {
	if exitErr == nil {
		log(serverID, "exited 0")
		s.mu.Lock()
		s.reg.remove(serverID)
		s.mu.Unlock()
		s.opts.Ports.Release(serverID)
		return
	}

	errType, msg := classifyExit(exitErr)
	s.errors.ObserveRecord(serverID, classifier.Record{Type: errType, Message: msg, At: s.now()})

	s.mu.Lock()
	s.reg.remove(serverID)
	s.mu.Unlock()

	s.opts.Ports.Release(serverID)

	s.mu.Lock()
	restartCount := p.RestartCount
	s.mu.Unlock()

	if restartCount >= restartRetryCap {
		log(serverID, "exceeded restart cap, marking Failed")
		s.mu.Lock()
		p.State = StateFailed
		s.reg.put(p)
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	fs := s.reg.fallbackFor(serverID)
	permitted := allowStart(fs, s.now())
	s.mu.Unlock()
	if !permitted {
		log(serverID, "crash-loop damper tripped after exit")
		return
	}

	time.Sleep(restartBackoff)

	s.opts.Telemetry.RecordRestart(context.Background(), serverID, "exit")
	nextRestartCount := restartCount + 1
	newProc := s.startServer(context.Background(), p.Spec)
	s.mu.Lock()
	newProc.RestartCount = nextRestartCount
	s.reg.put(newProc)
	s.mu.Unlock()
}

// classifyExit implements the §4.5.4 exit-code taxonomy.
func classifyExit(err error) (classifier.ErrorType, string) {
	if err == nil {
		return classifier.TypeRuntime, "child exited 0"
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return classifier.TypeRuntime, err.Error()
	}
	switch exitErr.ExitCode() {
	case 137:
		return classifier.TypeResource, "child killed (likely OOM)"
	case 126:
		return classifier.TypeConfig, "child found but not executable"
	case 127:
		return classifier.TypeDependency, "child command not found"
	default:
		return classifier.TypeRuntime, "child exited: " + exitErr.Error()
	}
}
