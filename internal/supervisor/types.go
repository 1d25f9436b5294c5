// Package supervisor is the reconciliation engine: it diffs a desired set
// of ServerSpecs against a live registry of running bridge processes and
// drives each one through a per-server state machine (§4.5).
package supervisor

import (
	"os/exec"
	"time"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/classifier"
	"github.com/mcp-supervisor/mcp-supervisor/internal/runtime"
)

// State is a server's position in the §4.5.1 state machine.
type State string

const (
	StateDown         State = "down"
	StateStarting     State = "starting"
	StateHealthy      State = "healthy"
	StateUnhealthy    State = "unhealthy"
	StateAuthRequired State = "authRequired"
	StateStopping     State = "stopping"
	StateFailed       State = "failed"
)

// ProxyProcess is the runtime state of one managed child (§3.2).
type ProxyProcess struct {
	ServerID      string
	CorrelationID string
	Port          int
	ProxyTypeUsed catalogconfig.ProxyType
	PID           int
	StartedAt     time.Time

	RestartCount int
	FallbackUsed bool
	AuthError    bool
	Healthy      bool
	State        State

	Spec    catalogconfig.ServerSpec
	WorkDir string

	// Container is set instead of cmd when this process was launched via
	// runtime.ContainerRuntime (SPEC_FULL §13, launch=container).
	Container *runtime.ContainerHandle

	// MonitorTransport overrides Spec.Kind as the health monitor's probe
	// dispatch key (§4.7 vs §4.8.3). Empty means "use Spec.Kind" — the
	// individual-mode default.
	MonitorTransport string

	cmd    *exec.Cmd
	exited chan struct{}
}

// FallbackState is the crash-loop damper's memory for one server (§3.3,
// §4.5.3).
type FallbackState struct {
	AttemptedTypes map[catalogconfig.ProxyType]bool
	TotalAttempts  int
	LastAttemptAt  time.Time
}

func newFallbackState() *FallbackState {
	return &FallbackState{AttemptedTypes: make(map[catalogconfig.ProxyType]bool)}
}

// crashLoopWindow and crashLoopMaxAttempts implement the §4.5.3 damper.
const (
	crashLoopWindow      = 30 * time.Minute
	crashLoopMaxAttempts = 3
	restartRetryCap      = 3
	restartBackoff       = 5 * time.Second
	portReleaseCooldown  = 10 * time.Second
	stopStaggerEvery     = 2 * time.Second
	stopBatchPause       = 5 * time.Second
	stopBatchThreshold   = 3
	warmupSSE            = 15 * time.Second
	warmupStdio          = 8 * time.Second
	graceStopWait        = 3 * time.Second
)

// StatusEntry is the §6.3 status shape for one server.
type StatusEntry struct {
	ServerID      string                  `json:"serverId"`
	Configured    bool                    `json:"configured"`
	NeedsProxy    bool                    `json:"needsProxy"`
	Healthy       bool                    `json:"healthy"`
	AuthError     bool                    `json:"authError"`
	Port          int                     `json:"port,omitempty"`
	ProxyTypeUsed catalogconfig.ProxyType `json:"proxyTypeUsed,omitempty"`
	FallbackUsed  bool                    `json:"fallbackUsed"`
	StartedAt     time.Time               `json:"startedAt,omitzero"`
	Uptime        time.Duration           `json:"uptime"`
	RestartCount  int                     `json:"restartCount"`
	Endpoint      string                  `json:"endpoint,omitempty"`
	Status        string                  `json:"status"` // running, failed, skipped
	LastError     string                  `json:"lastError,omitempty"`
	ErrorType     classifier.ErrorType    `json:"errorType,omitempty"`
}

// OpenAPIEndpoint is the §6.3 openapi-endpoints shape for one healthy
// server.
type OpenAPIEndpoint struct {
	ServerID   string                  `json:"serverId"`
	BaseURL    string                  `json:"baseUrl"`
	OpenAPIURL string                  `json:"openapiUrl"`
	DocsURL    string                  `json:"docsUrl"`
	ProxyType  catalogconfig.ProxyType `json:"proxyType"`
}
