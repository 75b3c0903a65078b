package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"catalog-backup/internal/metacard"

	"github.com/spf13/afero"
)

// PathResolver maps metacard IDs to sharded backup file paths. Each shard
// level is named after the next two characters of the ID.
type PathResolver struct {
	fs          afero.Fs
	rootDir     string
	shardDepth  int
	permissions os.FileMode
}

// NewPathResolver creates a resolver rooted at rootDir.
func NewPathResolver(fs afero.Fs, rootDir string, shardDepth int) *PathResolver {
	return &PathResolver{
		fs:          fs,
		rootDir:     rootDir,
		shardDepth:  shardDepth,
		permissions: 0755,
	}
}

// ShardLevels returns how many two-character directory levels an ID of
// idLen characters is stored under. idLen counts runes, not bytes. Short IDs
// use as many whole pairs as they have rather than collapsing to zero.
func ShardLevels(idLen, shardDepth int) int {
	switch {
	case shardDepth <= 0:
		return 0
	case idLen == 1 || idLen < shardDepth*2:
		return idLen / 2
	default:
		return shardDepth
	}
}

// Path computes the backup path for id without touching the filesystem.
func (r *PathResolver) Path(id string) (string, error) {
	if err := metacard.ValidateID(id); err != nil {
		return "", NewPathResolutionError("cannot derive backup path", err).WithContext("id", id)
	}
	for _, shard := range r.shards(id) {
		if shard == ".." {
			return "", NewPathResolutionError("cannot derive backup path", &metacard.InvalidIDError{
				ID:     id,
				Reason: "id starts a shard with \"..\"",
			}).WithContext("id", id)
		}
	}
	return filepath.Join(r.shardDir(id), id), nil
}

// Resolve computes the backup path for id and creates any missing shard
// directories. Directory creation happens before Resolve returns.
func (r *PathResolver) Resolve(id string) (string, error) {
	path, err := r.Path(id)
	if err != nil {
		return "", err
	}

	parent := r.rootDir
	for _, shard := range r.shards(id) {
		parent = filepath.Join(parent, shard)
		if err := r.ensureDir(parent); err != nil {
			return "", NewPathResolutionError(fmt.Sprintf("failed to create backup directory %s", parent), err).
				WithContext("id", id)
		}
	}
	return path, nil
}

// RootDir returns the backup root directory.
func (r *PathResolver) RootDir() string {
	return r.rootDir
}

// ShardDepth returns the configured shard depth.
func (r *PathResolver) ShardDepth() int {
	return r.shardDepth
}

func (r *PathResolver) shardDir(id string) string {
	return filepath.Join(append([]string{r.rootDir}, r.shards(id)...)...)
}

// shards returns the shard directory names for id. Pairs are counted in
// characters so a multibyte character is never split across names.
func (r *PathResolver) shards(id string) []string {
	chars := []rune(id)
	levels := ShardLevels(len(chars), r.shardDepth)
	names := make([]string, levels)
	for i := range names {
		names[i] = string(chars[i*2 : i*2+2])
	}
	return names
}

// ensureDir creates dir if absent and fails when something other than a
// directory already occupies the name.
func (r *PathResolver) ensureDir(dir string) error {
	if err := r.fs.MkdirAll(dir, r.permissions); err != nil {
		return err
	}
	info, err := r.fs.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", dir)
	}
	return nil
}
