package catalogconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadJSONStdioAndSSE(t *testing.T) {
	path := writeFile(t, "servers.json", `{
		"mcpServers": {
			"fs": {"command": "uvx", "args": ["mcp-server-filesystem"]},
			"remote": {"transport": "sse", "url": "http://localhost:9001/sse"}
		}
	}`)

	loader := NewLoader(path)
	desired, digest, warnings, err := loader.Load()
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.NotEmpty(t, digest)

	require.Contains(t, desired, "fs")
	require.Equal(t, KindStdio, desired["fs"].Kind)
	require.Equal(t, "uvx", desired["fs"].Command)
	require.True(t, desired["fs"].NeedsProxy)

	require.Contains(t, desired, "remote")
	require.Equal(t, KindSSE, desired["remote"].Kind)
	require.Equal(t, "http://localhost:9001/sse", desired["remote"].URL)
}

func TestLoadYAMLEquivalent(t *testing.T) {
	path := writeFile(t, "servers.yaml", "mcpServers:\n  fs:\n    command: uvx\n    args: [\"mcp-server-filesystem\"]\n")

	desired, _, _, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Contains(t, desired, "fs")
	require.Equal(t, KindStdio, desired["fs"].Kind)
}

func TestLoadSkipsEntryWithNoCommandOrURL(t *testing.T) {
	path := writeFile(t, "servers.json", `{"mcpServers": {"broken": {}}}`)

	desired, _, warnings, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Empty(t, desired)
	require.Len(t, warnings, 1)
}

func TestLoadContainerLaunchMode(t *testing.T) {
	path := writeFile(t, "servers.json", `{
		"mcpServers": {
			"boxed": {"command": "uvx", "launch": "container", "image": "example/bridge:latest"}
		}
	}`)

	desired, _, _, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, LaunchContainer, desired["boxed"].Launch)
	require.Equal(t, "example/bridge:latest", desired["boxed"].Image)
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	_, _, _, err := NewLoader(filepath.Join(t.TempDir(), "missing.json")).Load()
	require.Error(t, err)
}

func TestLoadDigestStableAcrossIdenticalContent(t *testing.T) {
	path := writeFile(t, "servers.json", `{"mcpServers": {"fs": {"command": "uvx"}}}`)

	_, digestA, _, err := NewLoader(path).Load()
	require.NoError(t, err)
	_, digestB, _, err := NewLoader(path).Load()
	require.NoError(t, err)
	require.Equal(t, digestA, digestB)
}
