package backup

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"catalog-backup/internal/metacard"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var errInjected = errors.New("injected failure")

// faultyFs wraps an afero.Fs and fails selected renames and removals.
type faultyFs struct {
	afero.Fs

	mu         sync.Mutex
	failRename func(oldname, newname string) bool
	failRemove func(name string) bool
}

func newFaultyFs() *faultyFs {
	return &faultyFs{Fs: afero.NewOsFs()}
}

func (f *faultyFs) Rename(oldname, newname string) error {
	f.mu.Lock()
	fail := f.failRename
	f.mu.Unlock()
	if fail != nil && fail(oldname, newname) {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: errInjected}
	}
	return f.Fs.Rename(oldname, newname)
}

func (f *faultyFs) Remove(name string) error {
	f.mu.Lock()
	fail := f.failRemove
	f.mu.Unlock()
	if fail != nil && fail(name) {
		return &os.PathError{Op: "remove", Path: name, Err: errInjected}
	}
	return f.Fs.Remove(name)
}

func testMetacard(id string, attrs map[string]interface{}) metacard.Metacard {
	if attrs == nil {
		attrs = map[string]interface{}{"title": "metacard " + id}
	}
	return metacard.New(id, attrs)
}

// unserializable returns a metacard whose attributes cannot be encoded.
func unserializable(id string) metacard.Metacard {
	return metacard.New(id, map[string]interface{}{"bad": make(chan int)})
}

func newTestCoordinator(t *testing.T, root string, depth int, opts ...Option) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Config{RootDir: root, ShardDepth: depth, Workers: 4}, opts...)
	require.NoError(t, err)
	return c
}

func readBack(t *testing.T, root string, depth int, id string) metacard.Metacard {
	t.Helper()
	reader, err := NewReader(afero.NewOsFs(), Config{RootDir: root, ShardDepth: depth})
	require.NoError(t, err)
	m, err := reader.Read(id)
	require.NoError(t, err)
	return m
}

// listFiles returns the regular files under root relative to it.
func listFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(files)
	return files
}

func hasSuffixIn(files []string, suffix string) bool {
	for _, f := range files {
		if strings.HasSuffix(f, suffix) {
			return true
		}
	}
	return false
}
