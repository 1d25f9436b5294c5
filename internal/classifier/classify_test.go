package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_FiltersInformationalLines(t *testing.T) {
	for _, line := range []string{
		"INFO:     Uvicorn running on http://0.0.0.0:4100",
		"Installed 12 packages in 340ms",
		"Downloading mcp-server-fetch (4.2kB)",
	} {
		_, ok := Line(line)
		assert.False(t, ok, "line %q should be informational", line)
	}
}

func TestLine_ExtractsAndClassifiesAuth(t *testing.T) {
	rec, ok := Line(`ERROR:    Missing required API key for this server`)
	require.True(t, ok)
	assert.Equal(t, TypeAuth, rec.Type)
	assert.Contains(t, rec.Message, "API key")
}

func TestLine_ClassifiesConnection(t *testing.T) {
	rec, ok := Line("Error: connection refused to upstream")
	require.True(t, ok)
	assert.Equal(t, TypeConnection, rec.Type)
}

func TestLine_ClassifiesResource(t *testing.T) {
	rec, ok := Line("Failed to allocate memory, process killed")
	require.True(t, ok)
	assert.Equal(t, TypeResource, rec.Type)
}

func TestLine_ClassifiesDependency(t *testing.T) {
	rec, ok := Line("Cannot import module 'fastmcp'")
	require.True(t, ok)
	assert.Equal(t, TypeDependency, rec.Type)
}

func TestLine_FallsBackToCriticalKeywordScan(t *testing.T) {
	rec, ok := Line("connection to upstream was refused by remote host")
	require.True(t, ok)
	assert.Equal(t, TypeConnection, rec.Type)
}

func TestLine_PlainProgressLineIsNotAnError(t *testing.T) {
	_, ok := Line("Starting server on port 4100")
	assert.False(t, ok)
}

func TestShouldOverride_AuthOnlyYieldsToAuth(t *testing.T) {
	auth := Record{Type: TypeAuth}
	assert.False(t, ShouldOverride(&auth, Record{Type: TypeRuntime}))
	assert.False(t, ShouldOverride(&auth, Record{Type: TypeConnection}))
	assert.True(t, ShouldOverride(&auth, Record{Type: TypeAuth}))
}

func TestShouldOverride_HealthAndRuntimeAreOverwritableByAnything(t *testing.T) {
	health := Record{Type: TypeHealth}
	assert.True(t, ShouldOverride(&health, Record{Type: TypeConnection}))

	runtime := Record{Type: TypeRuntime}
	assert.True(t, ShouldOverride(&runtime, Record{Type: TypeConfig}))
}

func TestShouldOverride_NilCurrentAlwaysOverrides(t *testing.T) {
	assert.True(t, ShouldOverride(nil, Record{Type: TypeRuntime}))
}

func TestRecorder_ObserveAppliesOverridePolicy(t *testing.T) {
	r := NewRecorder()

	_, changed := r.Observe("srv1", "ERROR: unauthorized, missing api key")
	assert.True(t, changed)
	rec, ok := r.Get("srv1")
	require.True(t, ok)
	assert.Equal(t, TypeAuth, rec.Type)

	_, changed = r.Observe("srv1", "Failed to reach dependency, connection timeout")
	assert.False(t, changed, "auth record must not be overwritten by a non-auth record")

	rec, _ = r.Get("srv1")
	assert.Equal(t, TypeAuth, rec.Type)
}

func TestRecorder_Clear(t *testing.T) {
	r := NewRecorder()
	r.Observe("srv1", "ERROR: something broke")
	r.Clear("srv1")
	_, ok := r.Get("srv1")
	assert.False(t, ok)
}

func TestStreamLines_FeedsRecorderUntilEOF(t *testing.T) {
	r := NewRecorder()
	input := strings.NewReader("INFO:     starting up\nERROR: missing required config value\n")

	var observed []Record
	StreamLines(r, "srv1", input, func(rec Record) { observed = append(observed, rec) })

	require.Len(t, observed, 1)
	assert.Equal(t, TypeConfig, observed[0].Type)
}
