package secretstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "secrets"), "")
	require.NoError(t, err)
	assert.Equal(t, ModePersistent, store.Mode())

	want := map[string]string{"API_KEY": "sk-abc123", "ENDPOINT": "https://example.com"}
	require.NoError(t, store.Save("srv1", want))

	got, err := store.Load("srv1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_UnknownServerReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "secrets"), "")
	require.NoError(t, err)

	got, err := store.Load("missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSave_IsAtomicAndModePermissions(t *testing.T) {
	dir := t.TempDir()
	secretsDir := filepath.Join(dir, "secrets")
	store, err := Open(secretsDir, "")
	require.NoError(t, err)

	require.NoError(t, store.Save("srv1", map[string]string{"A": "1"}))
	require.NoError(t, store.Save("srv1", map[string]string{"A": "2"}))

	got, err := store.Load("srv1")
	require.NoError(t, err)
	assert.Equal(t, "2", got["A"])

	matches, err := filepath.Glob(filepath.Join(secretsDir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no leftover temp files after a successful save")
}

func TestDelete_RemovesBundle(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "secrets"), "")
	require.NoError(t, err)

	require.NoError(t, store.Save("srv1", map[string]string{"A": "1"}))
	require.NoError(t, store.Delete("srv1"))

	got, err := store.Load("srv1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummary_NeverExposesPlaintext(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "secrets"), "")
	require.NoError(t, err)

	require.NoError(t, store.Save("srv1", map[string]string{"API_KEY": "sk-super-secret"}))

	summaries, err := store.Summary("srv1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "API_KEY", summaries[0].Name)
	assert.Equal(t, TypeAPIKey, summaries[0].Type)
	assert.NotContains(t, summaries[0].Masked, "sk-super-secret")
}

func TestCache_InvalidatesOnSave(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "secrets"), "")
	require.NoError(t, err)

	require.NoError(t, store.Save("srv1", map[string]string{"A": "1"}))
	_, err = store.Load("srv1") // populate cache
	require.NoError(t, err)

	require.NoError(t, store.Save("srv1", map[string]string{"A": "2"}))
	got, err := store.Load("srv1")
	require.NoError(t, err)
	assert.Equal(t, "2", got["A"], "cache must be invalidated by Save")
}

func TestOpen_FallsBackToMemory(t *testing.T) {
	store, err := Open("", "")
	require.NoError(t, err)
	assert.Equal(t, ModeMemory, store.Mode())

	require.NoError(t, store.Save("srv1", map[string]string{"A": "1"}))
	got, err := store.Load("srv1")
	require.NoError(t, err)
	assert.Equal(t, "1", got["A"])
}
