package supervisor

import (
	"context"
	"syscall"
	"time"

	"github.com/mcp-supervisor/mcp-supervisor/internal/launcher"
)

// stopProcess implements §4.5.5: SIGTERM, wait up to graceStopWait, SIGKILL
// if still alive, then remove from registry, release the port, and clean
// the generated working directory. FallbackState is left intact.
func (s *Supervisor) stopProcess(ctx context.Context, p *ProxyProcess) {
	s.mu.Lock()
	p.State = StateStopping
	s.reg.put(p)
	s.mu.Unlock()

	switch {
	case p.Container != nil:
		if err := s.opts.Runtime.StopContainer(ctx, p.Container); err != nil {
			log("container stop failed for", p.ServerID, ":", err)
		}
		close(p.exited)
	case p.cmd != nil && p.cmd.Process != nil:
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-p.exited:
		case <-time.After(graceStopWait):
			_ = p.cmd.Process.Kill()
			<-p.exited
		}
	}

	s.mu.Lock()
	s.reg.remove(p.ServerID)
	s.mu.Unlock()

	s.opts.Ports.Release(p.ServerID)
	if err := launcher.CleanWorkDir(p.WorkDir); err != nil {
		log("cleanup failed for", p.ServerID, ":", err)
	}
}
