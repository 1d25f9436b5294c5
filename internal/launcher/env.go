package launcher

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// buildEnv composes the final environment for a launch: base process env,
// then the server's own env, then its optional env file, then decrypted
// secrets, then bridge-required vars, each layer overriding the previous on
// key collision (§3.1 envFilePath, §4.4).
func buildEnv(base, serverEnv, envFile, secrets, bridgeRequired map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(serverEnv)+len(envFile)+len(secrets)+len(bridgeRequired))
	for _, layer := range []map[string]string{base, serverEnv, envFile, secrets, bridgeRequired} {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// loadEnvFile reads a simple KEY=VALUE env file, the format referenced by a
// ServerSpec's optional envFilePath (§3.1). Blank lines and lines starting
// with '#' are skipped; surrounding quotes on the value are stripped. An
// empty path is not an error — the layer is simply absent; a path that
// cannot be opened is an error.
func loadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return out, nil
}

// remoteBridgeRequiredVars returns the generous timeouts a bridge needs to
// keep a long-lived SSE/streamable-http event stream open (§4.4).
func remoteBridgeRequiredVars() map[string]string {
	return map[string]string{
		"MCP_PROXY_READ_TIMEOUT":    "3600",
		"MCP_PROXY_CONNECT_TIMEOUT": "30",
	}
}

func stdioBridgeRequiredVars(cacheDir string) map[string]string {
	return map[string]string{
		"UV_CACHE_DIR": cacheDir,
		"PIP_CACHE_DIR": cacheDir,
	}
}

func portString(port int) string {
	return strconv.Itoa(port)
}

// baseEnv snapshots the supervisor's own process environment as a map, the
// bottom layer of buildEnv's composition.
func baseEnv() map[string]string {
	environ := os.Environ()
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}
