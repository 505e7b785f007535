package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	s := NewFileStore(path)

	// Missing file reads as empty, not as an error.
	tokens, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tokens.AccessToken)

	require.NoError(t, s.Save(Tokens{AccessToken: "at", RefreshToken: "rt"}))

	tokens, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "rt", tokens.RefreshToken)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestFileStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(Tokens{AccessToken: "at"}))
	require.NoError(t, s.Clear())

	// Clearing an already-missing file is fine.
	require.NoError(t, s.Clear())

	tokens, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, tokens.AccessToken)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}
