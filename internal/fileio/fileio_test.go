package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/activecm/genhash/errors"
)

func TestWriteExclusive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "safelist-unhashed.json")

	require.NoError(t, WriteExclusive(path, []byte(`[]`), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	assertNoTempFiles(t, dir)
}

func TestWriteExclusive_ExistingFileIsKept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, os.WriteFile(path, []byte("previous run"), 0644))

	err := WriteExclusive(path, []byte("new"), 0644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrOutputExists))
	assert.Contains(t, err.Error(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous run", string(data))
	assertNoTempFiles(t, dir)
}

func TestWriteExclusive_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.json")
	err := WriteExclusive(path, []byte("x"), 0644)
	require.Error(t, err)
	assert.False(t, errors.Is(err, errors.ErrOutputExists))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteAtomic_Replaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out-hashed.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	require.NoError(t, WriteAtomic(path, []byte("new"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
	assertNoTempFiles(t, dir)
}

func TestBackup_Rotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "am.toml")

	require.NoError(t, Backup(path), "missing file is not an error")
	_, err := os.Stat(path + ".back1")
	assert.True(t, os.IsNotExist(err))

	for _, v := range []string{"v1", "v2", "v3", "v4"} {
		require.NoError(t, os.WriteFile(path, []byte(v), 0644))
		require.NoError(t, Backup(path))
	}

	for n, want := range map[int]string{1: "v4", 2: "v3", 3: "v2"} {
		data, err := os.ReadFile(backupName(path, n))
		require.NoError(t, err)
		assert.Equal(t, want, string(data), "back%d", n)
	}
	_, err = os.Stat(path + ".back4")
	assert.True(t, os.IsNotExist(err))
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
