package launcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
)

// Launcher turns a Request into a ready-to-spawn Plan, writing any generated
// config file into the request's working directory first.
type Launcher struct {
	CacheDir string
}

// New returns a Launcher that stages bridge caches under cacheDir.
func New(cacheDir string) *Launcher {
	return &Launcher{CacheDir: cacheDir}
}

// Build dispatches on the requested proxy type and launch mode, then
// materializes any generated config file onto disk (§4.4).
func (l *Launcher) Build(req Request) (Plan, error) {
	if req.Spec.Launch == catalogconfig.LaunchContainer {
		return l.buildContainerPlan(req)
	}

	var (
		plan Plan
		err  error
	)
	switch req.ProxyType {
	case catalogconfig.ProxyMCPO:
		plan, err = buildMCPOPlan(req, l.CacheDir)
	case catalogconfig.ProxyMCPBridge:
		plan, err = buildMCPBridgePlan(req, l.CacheDir)
	default:
		return Plan{}, fmt.Errorf("unknown proxy type %q", req.ProxyType)
	}
	if err != nil {
		return Plan{}, err
	}

	if err := l.stageConfigFile(req.WorkDir, plan.ConfigFile); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// buildContainerPlan builds a plan whose Image is launched by
// internal/runtime instead of exec'd directly. The argv/env still describe
// what must run inside the container.
func (l *Launcher) buildContainerPlan(req Request) (Plan, error) {
	plan, err := func() (Plan, error) {
		switch req.ProxyType {
		case catalogconfig.ProxyMCPO:
			return buildMCPOPlan(req, l.CacheDir)
		case catalogconfig.ProxyMCPBridge:
			return buildMCPBridgePlan(req, l.CacheDir)
		default:
			return Plan{}, fmt.Errorf("unknown proxy type %q", req.ProxyType)
		}
	}()
	if err != nil {
		return Plan{}, err
	}
	if req.Spec.Image == "" {
		return Plan{}, fmt.Errorf("server %s: launch=container requires an image", req.Spec.ID)
	}
	plan.Image = req.Spec.Image

	if err := l.stageConfigFile(req.WorkDir, plan.ConfigFile); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// stageConfigFile writes a generated config file to workDir, if the plan
// needed one. It is a no-op when the plan has none.
func (l *Launcher) stageConfigFile(workDir string, f *GeneratedFile) error {
	return StageConfigFile(workDir, f)
}

// StageConfigFile writes a generated config file to workDir, if f is
// non-nil. Exported so callers that build a Plan directly (the unified
// bridge child, which is not a Request-shaped launch) can stage it too.
func StageConfigFile(workDir string, f *GeneratedFile) error {
	if f == nil {
		return nil
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("create work dir %s: %w", workDir, err)
	}
	path := filepath.Join(workDir, f.RelPath)
	if err := os.WriteFile(path, f.Content, 0o644); err != nil {
		return fmt.Errorf("write generated config %s: %w", path, err)
	}
	return nil
}

// CleanWorkDir removes a server's generated working directory tree on
// stop, per §4.4.
func CleanWorkDir(workDir string) error {
	if workDir == "" {
		return nil
	}
	if err := os.RemoveAll(workDir); err != nil {
		return fmt.Errorf("clean work dir %s: %w", workDir, err)
	}
	return nil
}
