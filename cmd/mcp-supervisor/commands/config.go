package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/supervisor"
)

// daemonConfig is assembled from environment variables per §6.4, with
// flags on `serve` overriding the corresponding env var.
type daemonConfig struct {
	ConfigPath       string
	Mode             supervisor.Mode
	DefaultProxyType catalogconfig.ProxyType
	PortRangeStart   int
	PortRangeEnd     int
	ManagerPort      int
	EnabledTransports []string
}

const (
	envProxyMode        = "MCP_PROXY_MODE"
	envProxyType        = "MCP_PROXY_TYPE"
	envPortRangeStart   = "PORT_RANGE_START"
	envPortRangeEnd     = "PORT_RANGE_END"
	envConfigPath       = "CLAUDE_CONFIG_PATH"
	envManagerPort      = "MANAGER_PORT"
	envEnabledTransports = "MCP_ENABLED_TRANSPORTS"
)

func loadDaemonConfig() (daemonConfig, error) {
	cfg := daemonConfig{
		ConfigPath:       getenvDefault(envConfigPath, "mcp-servers.json"),
		Mode:             supervisor.Mode(getenvDefault(envProxyMode, string(supervisor.ModeIndividual))),
		DefaultProxyType: catalogconfig.ProxyType(getenvDefault(envProxyType, string(catalogconfig.ProxyMCPO))),
		PortRangeStart:   envInt(envPortRangeStart, 4000),
		PortRangeEnd:     envInt(envPortRangeEnd, 4100),
		ManagerPort:      envInt(envManagerPort, 8811),
	}
	if v := os.Getenv(envEnabledTransports); v != "" {
		cfg.EnabledTransports = strings.Split(v, ",")
	}

	if cfg.PortRangeStart < 1024 || cfg.PortRangeStart >= cfg.PortRangeEnd || cfg.PortRangeEnd > 65535 {
		return cfg, fmt.Errorf("invalid port range [%d, %d]: must satisfy 1024 <= start < end <= 65535", cfg.PortRangeStart, cfg.PortRangeEnd)
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
