package backup

import (
	"fmt"
	"os"

	"catalog-backup/internal/metacard"

	"github.com/spf13/afero"
)

// Reader decodes committed backups. Temp and staged artifacts are never
// returned.
type Reader struct {
	fs       afero.Fs
	resolver *PathResolver
	codec    *Codec
}

// NewReader creates a reader for the backup described by config.
func NewReader(fs afero.Fs, config Config) (*Reader, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	codec, err := NewCodec(config.Codec)
	if err != nil {
		return nil, err
	}
	return &Reader{
		fs:       fs,
		resolver: NewPathResolver(fs, config.RootDir, config.ShardDepth),
		codec:    codec,
	}, nil
}

// Read returns the committed metacard stored for id.
func (r *Reader) Read(id string) (metacard.Metacard, error) {
	path, err := r.resolver.Path(id)
	if err != nil {
		return metacard.Metacard{}, err
	}
	return r.ReadFile(id, path)
}

// ReadFile decodes the backup at path and checks that it holds id.
func (r *Reader) ReadFile(id, path string) (metacard.Metacard, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return metacard.Metacard{}, NewNotFoundError(fmt.Sprintf("no backup exists for metacard %s", id), err)
		}
		return metacard.Metacard{}, NewIOError(fmt.Sprintf("failed to read %s", path), err)
	}

	m, err := r.codec.Decode(data)
	if err != nil {
		return metacard.Metacard{}, err
	}
	if m.ID != id {
		return metacard.Metacard{}, NewCorruptionError(fmt.Sprintf("backup for %s holds metacard %s", id, m.ID), nil).
			WithContext("path", path)
	}
	return m, nil
}
