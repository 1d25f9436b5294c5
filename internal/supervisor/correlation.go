package supervisor

import (
	"fmt"

	"github.com/google/uuid"
)

// sessionIDPrefix matches the scheme the gateway itself used
// ("mcp-gateway-<random>"), generalized to this supervisor.
const sessionIDPrefix = "mcp-supervisor"

// GenerateSessionID returns a process-lifetime session identifier, used to
// correlate every log line and status query with one supervisor run.
func GenerateSessionID() string {
	return fmt.Sprintf("%s-%s", sessionIDPrefix, uuid.NewString())
}

// correlationID returns a short id for one restart/start attempt, attached
// to log lines so a crash-loop's successive attempts can be told apart in
// aggregated logs.
func correlationID() string {
	return uuid.NewString()[:8]
}
