package securestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastKDF keeps argon2 cheap in tests.
var fastKDF = WithKDFParams(KDFParams{Time: 1, Memory: 1024, Threads: 1})

func TestOpenFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "secrets.json")

	store, err := OpenFile(path, "pass", fastKDF)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Nothing is written until the first Set.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenFile_RequiresPassphrase(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "s.json"), "")
	assert.ErrorIs(t, err, ErrMissingPassphrase)
}

func TestFile_SetGetPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "secrets.json")

	store, err := OpenFile(path, "correct horse", fastKDF)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, KeyAccessToken, "access-1"))
	require.NoError(t, store.Set(ctx, KeyRefreshToken, "refresh-1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := OpenFile(path, "correct horse")
	require.NoError(t, err)

	v, err := reopened.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access-1", v)

	v, err = reopened.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", v)
}

func TestFile_CiphertextDoesNotLeakSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := OpenFile(path, "pass", fastKDF)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), KeyAccessToken, "super-secret-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "super-secret-token"))
}

func TestFile_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := OpenFile(path, "right", fastKDF)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), KeyRole, "user"))

	_, err = OpenFile(path, "wrong")
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestFile_CorruptedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := OpenFile(path, "pass", fastKDF)
	assert.ErrorIs(t, err, ErrCorrupted)
}

func TestFile_EmptyFileIsNewStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	store, err := OpenFile(path, "pass", fastKDF)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFile_Delete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "secrets.json")
	store, err := OpenFile(path, "pass", fastKDF)
	require.NoError(t, err)

	require.NoError(t, store.Set(ctx, KeyAccessToken, "a"))
	require.NoError(t, store.Set(ctx, KeyRefreshToken, "r"))
	require.NoError(t, store.Delete(ctx, KeyAccessToken, KeyRefreshToken, "missing"))

	_, err = store.Get(ctx, KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)

	reopened, err := OpenFile(path, "pass")
	require.NoError(t, err)
	_, err = reopened.Get(ctx, KeyRefreshToken)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")
}
