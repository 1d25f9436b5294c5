package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildRunArgs_PublishesPort(t *testing.T) {
	d := NewDockerRuntime(Config{})
	args := d.buildRunArgs(ContainerSpec{
		Name:          "fetch",
		Image:         "ghcr.io/example/fetch:latest",
		HostPort:      4100,
		ContainerPort: 8000,
		Env:           map[string]string{"A": "1"},
	})

	assert.Contains(t, args, "4100:8000")
	assert.Contains(t, args, "ghcr.io/example/fetch:latest")
	assert.Contains(t, args, "A=1")
	assert.Contains(t, args, "--name")
}

func TestBuildRunArgs_DefaultsPullPolicyToMissing(t *testing.T) {
	d := NewDockerRuntime(Config{})
	args := d.buildRunArgs(ContainerSpec{Name: "x", Image: "img"})

	found := false
	for i, a := range args {
		if a == "--pull" && i+1 < len(args) && args[i+1] == "missing" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestGetName(t *testing.T) {
	assert.Equal(t, "docker", NewDockerRuntime(Config{}).GetName())
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "abc123", firstLine([]byte("abc123\n")))
	assert.Equal(t, "abc123", firstLine([]byte("abc123")))
}
