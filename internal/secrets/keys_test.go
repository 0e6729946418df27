package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	t.Parallel()

	salt := bytes.Repeat([]byte{0x11}, saltLen)
	a := DeriveKey("hunter2", salt, "store")
	b := DeriveKey("hunter2", salt, "store")
	require.Len(t, a, KeyLen)
	require.Equal(t, a, b)

	require.NotEqual(t, a, DeriveKey("hunter3", salt, "store"))
	other := bytes.Repeat([]byte{0x22}, saltLen)
	require.NotEqual(t, a, DeriveKey("hunter2", other, "store"))
}

func TestDeriveKeyPurposeSeparation(t *testing.T) {
	t.Parallel()

	salt := bytes.Repeat([]byte{0x11}, saltLen)
	store := DeriveKey("hunter2", salt, "store")
	export := DeriveKey("hunter2", salt, "export")
	require.NotEqual(t, store, export)
}

func TestLoadOrCreateSalt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys", "store.salt")

	salt, err := LoadOrCreateSalt(path)
	require.NoError(t, err)
	require.Len(t, salt, saltLen)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Second load returns the same bytes, never regenerates.
	again, err := LoadOrCreateSalt(path)
	require.NoError(t, err)
	require.Equal(t, salt, again)
}

func TestLoadSaltRejectsTruncatedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "store.salt")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	_, err := LoadOrCreateSalt(path)
	require.Error(t, err)
}
