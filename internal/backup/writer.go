package backup

import (
	"fmt"
	"os"

	"catalog-backup/internal/metacard"

	"github.com/spf13/afero"
)

// TempPath returns the in-progress write path for a backup file.
func TempPath(path string) string {
	return path + metacard.TempSuffix
}

// AtomicWriter persists snapshots by writing a temp file and renaming it
// over the committed file.
type AtomicWriter struct {
	fs          afero.Fs
	codec       *Codec
	permissions os.FileMode
}

// NewAtomicWriter creates a writer that encodes metacards with codec.
func NewAtomicWriter(fs afero.Fs, codec *Codec) *AtomicWriter {
	return &AtomicWriter{
		fs:          fs,
		codec:       codec,
		permissions: 0644,
	}
}

// Write commits m to target. On failure the previously committed file, if
// any, is untouched; a partially written temp file may remain.
func (w *AtomicWriter) Write(m metacard.Metacard, target string) error {
	data, err := w.codec.Encode(m)
	if err != nil {
		return NewWriteError(fmt.Sprintf("failed to encode metacard %s", m.ID), err).WithContext("path", target)
	}

	tempPath := TempPath(target)
	if err := w.writeTemp(tempPath, data); err != nil {
		return NewWriteError(fmt.Sprintf("failed to write temp file %s", tempPath), err).WithContext("id", m.ID)
	}

	if err := w.fs.Rename(tempPath, target); err != nil {
		return NewWriteError(fmt.Sprintf("failed to commit %s", target), err).WithContext("id", m.ID)
	}
	return nil
}

func (w *AtomicWriter) writeTemp(path string, data []byte) error {
	f, err := w.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permissions)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
