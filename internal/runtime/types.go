// Package runtime launches a bridge process inside a container instead of as
// a direct child, for catalog entries with launch=container (SPEC_FULL §13).
// It is an extension point: no orchestration beyond single-node Docker is
// implemented.
package runtime

import "context"

// ContainerRuntime starts and stops one long-lived, port-publishing
// container per managed server.
type ContainerRuntime interface {
	// StartContainer launches spec detached and returns a handle carrying
	// its runtime-assigned ID.
	StartContainer(ctx context.Context, spec ContainerSpec) (*ContainerHandle, error)

	// StopContainer stops and removes a previously started container.
	StopContainer(ctx context.Context, handle *ContainerHandle) error

	// GetName identifies the runtime implementation.
	GetName() string

	// Shutdown releases any resources the runtime itself holds.
	Shutdown(ctx context.Context) error
}

// ContainerSpec describes one bridge container to run.
type ContainerSpec struct {
	Name    string
	Image   string
	Command []string
	Env     map[string]string
	Labels  map[string]string

	// HostPort/ContainerPort are published with -p HostPort:ContainerPort
	// so the supervisor's port pool allocation reaches the bridge inside.
	HostPort      int
	ContainerPort int
}

// ContainerHandle identifies a running container for later StopContainer
// calls.
type ContainerHandle struct {
	ID   string
	Name string
}

// Config holds runtime-wide options.
type Config struct {
	Verbose       bool
	PullPolicy    string // "missing" (default), "never", "always"
	DockerContext string
}
