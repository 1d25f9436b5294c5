package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
)

func TestBuild_MCPOStdio(t *testing.T) {
	l := New(t.TempDir())
	req := Request{
		Spec: catalogconfig.ServerSpec{
			ID:      "fetch",
			Kind:    catalogconfig.KindStdio,
			Command: "uvx",
			Args:    []string{"mcp-server-fetch"},
		},
		Port:      4100,
		ProxyType: catalogconfig.ProxyMCPO,
		WorkDir:   t.TempDir(),
	}

	plan, err := l.Build(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"uvx", "mcpo", "--host", "0.0.0.0", "--port", "4100", "--", "uvx", "mcp-server-fetch"}, plan.Argv)
	assert.Nil(t, plan.ConfigFile)
}

func TestBuild_MCPOStdio_RejectsDisallowedCommand(t *testing.T) {
	l := New(t.TempDir())
	req := Request{
		Spec: catalogconfig.ServerSpec{
			ID:      "evil",
			Kind:    catalogconfig.KindStdio,
			Command: "bash",
			Args:    []string{"-c", "rm -rf /"},
		},
		Port:      4100,
		ProxyType: catalogconfig.ProxyMCPO,
		WorkDir:   t.TempDir(),
	}

	_, err := l.Build(req)
	assert.Error(t, err)
}

func TestBuild_MCPOSSE_IncludesHeaders(t *testing.T) {
	l := New(t.TempDir())
	req := Request{
		Spec: catalogconfig.ServerSpec{
			ID:      "remote",
			Kind:    catalogconfig.KindSSE,
			URL:     "https://example.com/sse",
			Headers: map[string]string{"Authorization": "Bearer xyz"},
		},
		Port:      4101,
		ProxyType: catalogconfig.ProxyMCPO,
		WorkDir:   t.TempDir(),
	}

	plan, err := l.Build(req)
	require.NoError(t, err)
	assert.Contains(t, plan.Argv, "--header")
	assert.Contains(t, plan.Argv, "--server-type")
	assert.Contains(t, plan.Argv, "sse")
	assert.Equal(t, plan.Argv[len(plan.Argv)-1], "https://example.com/sse")
}

func TestBuild_MCPBridge_WritesConfigFile(t *testing.T) {
	workDir := t.TempDir()
	l := New(t.TempDir())
	req := Request{
		Spec: catalogconfig.ServerSpec{
			ID:      "fetch",
			Kind:    catalogconfig.KindStdio,
			Command: "uvx",
			Args:    []string{"mcp-server-fetch"},
		},
		Port:      4200,
		ProxyType: catalogconfig.ProxyMCPBridge,
		WorkDir:   workDir,
	}

	plan, err := l.Build(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"uvx", "mcp-bridge"}, plan.Argv)
	assert.FileExists(t, filepath.Join(workDir, "config.json"))
}

func TestBuild_ContainerLaunch_RequiresImage(t *testing.T) {
	l := New(t.TempDir())
	req := Request{
		Spec: catalogconfig.ServerSpec{
			ID:      "fetch",
			Kind:    catalogconfig.KindStdio,
			Command: "uvx",
			Args:    []string{"mcp-server-fetch"},
			Launch:  catalogconfig.LaunchContainer,
		},
		Port:      4300,
		ProxyType: catalogconfig.ProxyMCPO,
		WorkDir:   t.TempDir(),
	}

	_, err := l.Build(req)
	assert.Error(t, err)

	req.Spec.Image = "ghcr.io/example/mcp-server-fetch:latest"
	plan, err := l.Build(req)
	require.NoError(t, err)
	assert.Equal(t, "ghcr.io/example/mcp-server-fetch:latest", plan.Image)
}

func TestBuild_MCPOStdio_LoadsEnvFile(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "server.env")
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nAPI_TOKEN=from-file\n\nREGION=\"us-east-1\"\n"), 0o600))

	l := New(t.TempDir())
	req := Request{
		Spec: catalogconfig.ServerSpec{
			ID:          "fetch",
			Kind:        catalogconfig.KindStdio,
			Command:     "uvx",
			Args:        []string{"mcp-server-fetch"},
			EnvFilePath: envPath,
		},
		Port:      4100,
		ProxyType: catalogconfig.ProxyMCPO,
		WorkDir:   t.TempDir(),
	}

	plan, err := l.Build(req)
	require.NoError(t, err)
	assert.Equal(t, "from-file", plan.Env["API_TOKEN"])
	assert.Equal(t, "us-east-1", plan.Env["REGION"])
}

func TestBuild_MCPOStdio_EnvFileOverriddenBySecrets(t *testing.T) {
	envPath := filepath.Join(t.TempDir(), "server.env")
	require.NoError(t, os.WriteFile(envPath, []byte("API_TOKEN=from-file\n"), 0o600))

	l := New(t.TempDir())
	req := Request{
		Spec: catalogconfig.ServerSpec{
			ID:          "fetch",
			Kind:        catalogconfig.KindStdio,
			Command:     "uvx",
			Args:        []string{"mcp-server-fetch"},
			EnvFilePath: envPath,
		},
		Port:            4100,
		ProxyType:       catalogconfig.ProxyMCPO,
		WorkDir:         t.TempDir(),
		DecryptedSecret: map[string]string{"API_TOKEN": "from-secret"},
	}

	plan, err := l.Build(req)
	require.NoError(t, err)
	assert.Equal(t, "from-secret", plan.Env["API_TOKEN"])
}

func TestCleanWorkDir_RemovesTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, CleanWorkDir(dir))
	assert.NoDirExists(t, dir)
}
