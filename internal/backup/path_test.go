package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardLevels(t *testing.T) {
	tests := []struct {
		name  string
		idLen int
		depth int
		want  int
	}{
		{name: "no sharding", idLen: 9, depth: 0, want: 0},
		{name: "negative depth", idLen: 9, depth: -2, want: 0},
		{name: "full depth", idLen: 9, depth: 2, want: 2},
		{name: "exactly two pairs", idLen: 4, depth: 2, want: 2},
		{name: "single character", idLen: 1, depth: 3, want: 0},
		{name: "short id uses whole pairs", idLen: 5, depth: 3, want: 2},
		{name: "short even id", idLen: 2, depth: 3, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShardLevels(tt.idLen, tt.depth))
		})
	}
}

func TestPathResolver_Resolve(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name  string
		id    string
		depth int
		want  string
	}{
		{name: "two levels", id: "abcdef123", depth: 2, want: filepath.Join(root, "ab", "cd", "abcdef123")},
		{name: "single character collapses", id: "a", depth: 3, want: filepath.Join(root, "a")},
		{name: "flat layout", id: "abcdef123", depth: 0, want: filepath.Join(root, "abcdef123")},
		{name: "short id", id: "abc", depth: 3, want: filepath.Join(root, "ab", "abc")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewPathResolver(afero.NewOsFs(), root, tt.depth)

			got, err := resolver.Resolve(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			info, err := os.Stat(filepath.Dir(got))
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		})
	}
}

func TestPathResolver_MultibyteIDsShardByCharacter(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name  string
		id    string
		depth int
		want  string
	}{
		{name: "accent in first pair", id: "aéb", depth: 1, want: filepath.Join(root, "aé", "aéb")},
		{name: "two levels", id: "日本語データ", depth: 2, want: filepath.Join(root, "日本", "語デ", "日本語データ")},
		{name: "short multibyte id", id: "éé", depth: 3, want: filepath.Join(root, "éé", "éé")},
		{name: "single multibyte character", id: "é", depth: 2, want: filepath.Join(root, "é")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewPathResolver(afero.NewOsFs(), root, tt.depth)

			got, err := resolver.Resolve(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			path, err := resolver.Path(tt.id)
			require.NoError(t, err)
			assert.Equal(t, got, path)

			rel, err := filepath.Rel(root, got)
			require.NoError(t, err)
			for _, part := range strings.Split(rel, string(filepath.Separator)) {
				assert.True(t, utf8.ValidString(part), "path segment %q", part)
			}
		})
	}
}

func TestPathResolver_ResolveIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver := NewPathResolver(fs, "/backup", 2)

	first, err := resolver.Resolve("abcdef123")
	require.NoError(t, err)
	second, err := resolver.Resolve("abcdef123")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	exists, err := afero.DirExists(fs, "/backup/ab/cd")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPathResolver_PathDoesNotCreateDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver := NewPathResolver(fs, "/backup", 2)

	path, err := resolver.Path("abcdef123")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/backup", "ab", "cd", "abcdef123"), path)

	exists, err := afero.DirExists(fs, "/backup/ab")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPathResolver_InvalidID(t *testing.T) {
	resolver := NewPathResolver(afero.NewMemMapFs(), "/backup", 1)

	for _, id := range []string{"", "..", "ab/../../etc", "x.tmp", "..abc"} {
		_, err := resolver.Resolve(id)
		assert.ErrorIs(t, err, ErrPathResolution, "id %q", id)
	}
}

func TestPathResolver_DirectoryCreationFailure(t *testing.T) {
	root := t.TempDir()
	// A regular file where the shard directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(root, "cc"), []byte("x"), 0644))

	resolver := NewPathResolver(afero.NewOsFs(), root, 1)
	_, err := resolver.Resolve("cc03")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPathResolution)
	assert.Equal(t, BackupErrorTypePathResolution, ErrorType(err))
}

func TestPathResolver_Accessors(t *testing.T) {
	resolver := NewPathResolver(afero.NewMemMapFs(), "/backup", 3)
	assert.Equal(t, "/backup", resolver.RootDir())
	assert.Equal(t, 3, resolver.ShardDepth())
}
