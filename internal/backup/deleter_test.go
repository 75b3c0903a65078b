package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicDeleter_StageAndFinalize(t *testing.T) {
	dir := t.TempDir()
	deleter := NewAtomicDeleter(newFaultyFs())
	target := filepath.Join(dir, "abc")
	require.NoError(t, os.WriteFile(target, []byte("snapshot"), 0644))

	staged, err := deleter.Stage(target)
	require.NoError(t, err)
	assert.Equal(t, target+".del", staged)
	assert.Equal(t, []string{"abc.del"}, listFiles(t, dir))

	require.NoError(t, deleter.Finalize(staged))
	assert.Empty(t, listFiles(t, dir))
}

func TestAtomicDeleter_StageMissing(t *testing.T) {
	deleter := NewAtomicDeleter(newFaultyFs())

	_, err := deleter.Stage(filepath.Join(t.TempDir(), "abc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStage)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAtomicDeleter_StageDirectory(t *testing.T) {
	dir := t.TempDir()
	deleter := NewAtomicDeleter(newFaultyFs())
	require.NoError(t, os.Mkdir(filepath.Join(dir, "abc"), 0755))

	_, err := deleter.Stage(filepath.Join(dir, "abc"))
	assert.ErrorIs(t, err, ErrStage)
}

func TestAtomicDeleter_StageRenameFailure(t *testing.T) {
	dir := t.TempDir()
	fs := newFaultyFs()
	deleter := NewAtomicDeleter(fs)
	target := filepath.Join(dir, "abc")
	require.NoError(t, os.WriteFile(target, []byte("snapshot"), 0644))

	fs.failRename = func(string, string) bool { return true }
	_, err := deleter.Stage(target)
	assert.ErrorIs(t, err, ErrStage)
	assert.Equal(t, []string{"abc"}, listFiles(t, dir))
}

func TestAtomicDeleter_FinalizeMissing(t *testing.T) {
	deleter := NewAtomicDeleter(newFaultyFs())

	err := deleter.Finalize(filepath.Join(t.TempDir(), "abc.del"))
	assert.ErrorIs(t, err, ErrFinalize)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAtomicDeleter_FinalizeRemoveFailure(t *testing.T) {
	dir := t.TempDir()
	fs := newFaultyFs()
	deleter := NewAtomicDeleter(fs)
	staged := filepath.Join(dir, "abc.del")
	require.NoError(t, os.WriteFile(staged, []byte("snapshot"), 0644))

	fs.failRemove = func(string) bool { return true }
	err := deleter.Finalize(staged)
	assert.ErrorIs(t, err, ErrFinalize)
	assert.Equal(t, []string{"abc.del"}, listFiles(t, dir))
}

func TestAtomicDeleter_Exists(t *testing.T) {
	dir := t.TempDir()
	deleter := NewAtomicDeleter(newFaultyFs())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir"), 0755))

	exists, err := deleter.Exists(filepath.Join(dir, "file"))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = deleter.Exists(filepath.Join(dir, "dir"))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = deleter.Exists(filepath.Join(dir, "nope"))
	require.NoError(t, err)
	assert.False(t, exists)
}
