package runtime

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// DockerRuntime implements ContainerRuntime by shelling out to the docker
// CLI, the same way the rest of this codebase's proxy-launcher approach
// avoids linking a heavyweight SDK (§13).
type DockerRuntime struct {
	config Config
}

// NewDockerRuntime returns a DockerRuntime.
func NewDockerRuntime(config Config) *DockerRuntime {
	return &DockerRuntime{config: config}
}

// GetName returns the runtime identifier.
func (d *DockerRuntime) GetName() string { return "docker" }

func (d *DockerRuntime) command(ctx context.Context, args ...string) *exec.Cmd {
	full := []string{}
	if d.config.DockerContext != "" {
		full = append(full, "--context", d.config.DockerContext)
	}
	full = append(full, args...)
	return exec.CommandContext(ctx, "docker", full...)
}

// StartContainer runs the bridge image detached, publishing HostPort to
// ContainerPort, and returns its container ID.
func (d *DockerRuntime) StartContainer(ctx context.Context, spec ContainerSpec) (*ContainerHandle, error) {
	args := d.buildRunArgs(spec)
	d.debugLog("starting container", spec.Name, "image", spec.Image)

	cmd := d.command(ctx, args...)
	if d.config.Verbose {
		cmd.Stderr = os.Stderr
	}

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("docker run %s: %w", spec.Name, err)
	}

	id := firstLine(out)
	return &ContainerHandle{ID: id, Name: spec.Name}, nil
}

// StopContainer stops and removes the container, ignoring a not-found error
// since that means it is already gone.
func (d *DockerRuntime) StopContainer(ctx context.Context, handle *ContainerHandle) error {
	if handle == nil || handle.ID == "" {
		return nil
	}
	stop := d.command(ctx, "stop", "--time", "3", handle.ID)
	if err := stop.Run(); err != nil {
		d.debugLog("docker stop failed for", handle.Name, ":", err)
	}
	rm := d.command(ctx, "rm", "-f", handle.ID)
	if err := rm.Run(); err != nil {
		return fmt.Errorf("docker rm %s: %w", handle.Name, err)
	}
	return nil
}

// Shutdown is a no-op: this runtime holds no resources beyond individual
// containers, each cleaned up through its own StopContainer call.
func (d *DockerRuntime) Shutdown(_ context.Context) error { return nil }

func (d *DockerRuntime) buildRunArgs(spec ContainerSpec) []string {
	args := []string{"run", "-d", "--security-opt", "no-new-privileges"}

	if spec.HostPort != 0 && spec.ContainerPort != 0 {
		args = append(args, "-p", fmt.Sprintf("%d:%d", spec.HostPort, spec.ContainerPort))
	}

	for name, value := range spec.Env {
		args = append(args, "-e", fmt.Sprintf("%s=%s", name, value))
	}

	pullPolicy := d.config.PullPolicy
	if pullPolicy == "" {
		pullPolicy = "missing"
	}
	args = append(args, "--pull", pullPolicy)

	if spec.Name != "" {
		args = append(args,
			"--name", spec.Name,
			"-l", "mcp-supervisor=true",
			"-l", "mcp-supervisor-server="+spec.Name,
		)
	}
	for key, value := range spec.Labels {
		args = append(args, "-l", fmt.Sprintf("%s=%s", key, value))
	}

	args = append(args, spec.Image)
	args = append(args, spec.Command...)
	return args
}

func (d *DockerRuntime) debugLog(args ...any) {
	if d.config.Verbose {
		prefixed := append([]any{"[runtime:docker]"}, args...)
		fmt.Fprintln(os.Stderr, prefixed...)
	}
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
