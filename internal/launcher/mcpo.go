package launcher

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
)

// buildMCPOPlan implements the three mcpo shapes from §4.4: stdio, sse, and
// streamable-http.
func buildMCPOPlan(req Request, cacheDir string) (Plan, error) {
	spec := req.Spec
	port := portString(req.Port)

	envFile, err := loadEnvFile(spec.EnvFilePath)
	if err != nil {
		return Plan{}, err
	}

	switch spec.Kind {
	case catalogconfig.KindStdio:
		if err := ValidateCommand(spec.Command); err != nil {
			return Plan{}, err
		}
		if err := ValidateArgs(spec.Args); err != nil {
			return Plan{}, err
		}
		argv := append([]string{"uvx", "mcpo", "--host", "0.0.0.0", "--port", port, "--", spec.Command}, spec.Args...)
		return Plan{
			Argv:    argv,
			Env:     buildEnv(baseEnv(), spec.Env, envFile, req.DecryptedSecret, stdioBridgeRequiredVars(cacheDir)),
			WorkDir: workDirOrCwd(spec),
		}, nil

	case catalogconfig.KindSSE, catalogconfig.KindStreamableHTTP:
		serverType := "sse"
		if spec.Kind == catalogconfig.KindStreamableHTTP {
			serverType = "streamable-http"
		}
		argv := []string{"uvx", "mcpo", "--host", "0.0.0.0", "--port", port, "--server-type", serverType}
		if len(spec.Headers) > 0 {
			headerJSON, err := json.Marshal(spec.Headers)
			if err != nil {
				return Plan{}, fmt.Errorf("marshal headers: %w", err)
			}
			argv = append(argv, "--header", string(headerJSON))
		}
		argv = append(argv, "--", spec.URL)
		return Plan{
			Argv:    argv,
			Env:     buildEnv(baseEnv(), spec.Env, envFile, req.DecryptedSecret, remoteBridgeRequiredVars()),
			WorkDir: req.WorkDir,
		}, nil

	default:
		return Plan{}, fmt.Errorf("mcpo does not support kind %q", spec.Kind)
	}
}

func workDirOrCwd(spec catalogconfig.ServerSpec) string {
	if spec.Cwd != "" {
		return spec.Cwd
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
