package launcher

import (
	"encoding/json"
	"fmt"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
)

const mcpBridgeConfigRelPath = "config.json"

// bridgeConfig is the JSON document mcp-bridge reads from its working
// directory (§4.4). inferenceServer is a stub: this supervisor never routes
// model inference through the bridge, only tool calls.
type bridgeConfig struct {
	InferenceServer bridgeInferenceServer      `json:"inference_server"`
	MCPServers      map[string]bridgeMCPServer `json:"mcp_servers"`
	Network         bridgeNetwork              `json:"network"`
	Logging         bridgeLogging              `json:"logging"`
}

type bridgeInferenceServer struct {
	BaseURL string `json:"base_url"`
}

type bridgeMCPServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

type bridgeNetwork struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type bridgeLogging struct {
	LogLevel string `json:"log_level"`
}

// buildBridgeEntry maps one ServerSpec to its mcp_servers JSON entry,
// merging the server's own env with its decrypted secrets (§4.4).
func buildBridgeEntry(spec catalogconfig.ServerSpec, secrets map[string]string) (bridgeMCPServer, error) {
	var entry bridgeMCPServer
	switch spec.Kind {
	case catalogconfig.KindStdio:
		if err := ValidateCommand(spec.Command); err != nil {
			return bridgeMCPServer{}, err
		}
		if err := ValidateArgs(spec.Args); err != nil {
			return bridgeMCPServer{}, err
		}
		entry.Command = spec.Command
		entry.Args = spec.Args
	case catalogconfig.KindSSE, catalogconfig.KindStreamableHTTP:
		entry.URL = spec.URL
	default:
		return bridgeMCPServer{}, fmt.Errorf("mcp-bridge does not support kind %q", spec.Kind)
	}
	envFile, err := loadEnvFile(spec.EnvFilePath)
	if err != nil {
		return bridgeMCPServer{}, err
	}
	if len(spec.Env) > 0 || len(envFile) > 0 || len(secrets) > 0 {
		entry.Env = buildEnv(spec.Env, nil, envFile, secrets, nil)
	}
	return entry, nil
}

// buildMCPBridgePlan implements the mcp-bridge proxy type: a generated
// config.json in the server's working directory, fronted by a single
// "uvx mcp-bridge" process (§4.4).
func buildMCPBridgePlan(req Request, cacheDir string) (Plan, error) {
	spec := req.Spec

	entry, err := buildBridgeEntry(spec, req.DecryptedSecret)
	if err != nil {
		return Plan{}, err
	}

	cfg := bridgeConfig{
		MCPServers: map[string]bridgeMCPServer{spec.ID: entry},
		Network:    bridgeNetwork{Host: "0.0.0.0", Port: req.Port},
		Logging:    bridgeLogging{LogLevel: "INFO"},
	}

	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return Plan{}, fmt.Errorf("marshal mcp-bridge config: %w", err)
	}

	envFile, err := loadEnvFile(spec.EnvFilePath)
	if err != nil {
		return Plan{}, err
	}

	env := buildEnv(baseEnv(), spec.Env, envFile, req.DecryptedSecret, stdioBridgeRequiredVars(cacheDir))
	if spec.Kind != catalogconfig.KindStdio {
		env = buildEnv(baseEnv(), spec.Env, envFile, req.DecryptedSecret, remoteBridgeRequiredVars())
	}

	return Plan{
		Argv:       []string{"uvx", "mcp-bridge"},
		Env:        env,
		WorkDir:    req.WorkDir,
		ConfigFile: &GeneratedFile{RelPath: mcpBridgeConfigRelPath, Content: content},
	}, nil
}

// BuildUnifiedPlan multiplexes every given ServerSpec into one mcp-bridge
// config.json fronted by a single process (§4.8.2): the unified bridge
// child the supervisor manages instead of one child per server.
func BuildUnifiedPlan(specs []catalogconfig.ServerSpec, secrets map[string]map[string]string, port int, workDir, cacheDir string) (Plan, error) {
	servers := make(map[string]bridgeMCPServer, len(specs))
	hasStdio := false
	for _, spec := range specs {
		entry, err := buildBridgeEntry(spec, secrets[spec.ID])
		if err != nil {
			return Plan{}, fmt.Errorf("server %s: %w", spec.ID, err)
		}
		servers[spec.ID] = entry
		if spec.Kind == catalogconfig.KindStdio {
			hasStdio = true
		}
	}

	cfg := bridgeConfig{
		MCPServers: servers,
		Network:    bridgeNetwork{Host: "0.0.0.0", Port: port},
		Logging:    bridgeLogging{LogLevel: "INFO"},
	}

	content, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return Plan{}, fmt.Errorf("marshal unified mcp-bridge config: %w", err)
	}

	env := buildEnv(baseEnv(), nil, nil, nil, remoteBridgeRequiredVars())
	if hasStdio {
		for k, v := range stdioBridgeRequiredVars(cacheDir) {
			env[k] = v
		}
	}

	return Plan{
		Argv:       []string{"uvx", "mcp-bridge"},
		Env:        env,
		WorkDir:    workDir,
		ConfigFile: &GeneratedFile{RelPath: mcpBridgeConfigRelPath, Content: content},
	}, nil
}
