package featureflag

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "features.json"))
	require.NoError(t, err)
	require.False(t, s.Enabled(MultiTransport))
}

func TestSetPersistsAcrossLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.json")

	s, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(MultiTransport, true))
	require.True(t, s.Enabled(MultiTransport))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, reloaded.Enabled(MultiTransport))
}

func TestSetDisableRemovesFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.json")

	s, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(MultiTransport, true))
	require.NoError(t, s.Set(MultiTransport, false))
	require.False(t, s.Enabled(MultiTransport))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, reloaded.Enabled(MultiTransport))
}
