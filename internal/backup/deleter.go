package backup

import (
	"fmt"
	"os"

	"catalog-backup/internal/metacard"

	"github.com/spf13/afero"
)

// StagePath returns the quarantine path a backup file is renamed to before
// it is permanently removed.
func StagePath(path string) string {
	return path + metacard.StageSuffix
}

// AtomicDeleter removes backup files in two phases. Stage is a reversible
// rename; Finalize is the irreversible removal.
type AtomicDeleter struct {
	fs afero.Fs
}

// NewAtomicDeleter creates a deleter operating on fs.
func NewAtomicDeleter(fs afero.Fs) *AtomicDeleter {
	return &AtomicDeleter{fs: fs}
}

// Exists reports whether a committed backup file is present at path.
func (d *AtomicDeleter) Exists(path string) (bool, error) {
	info, err := d.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Stage renames path to its staged name and returns that name.
func (d *AtomicDeleter) Stage(path string) (string, error) {
	exists, err := d.Exists(path)
	if err != nil {
		return "", NewStageError(fmt.Sprintf("failed to inspect %s", path), err)
	}
	if !exists {
		return "", NewStageError(fmt.Sprintf("no backup exists at %s", path), ErrNotFound)
	}

	staged := StagePath(path)
	if err := d.fs.Rename(path, staged); err != nil {
		return "", NewStageError(fmt.Sprintf("failed to stage %s", path), err)
	}
	return staged, nil
}

// Finalize permanently removes a staged file.
func (d *AtomicDeleter) Finalize(staged string) error {
	exists, err := d.Exists(staged)
	if err != nil {
		return NewFinalizeError(fmt.Sprintf("failed to inspect %s", staged), err)
	}
	if !exists {
		return NewFinalizeError(fmt.Sprintf("no staged backup exists at %s", staged), ErrNotFound)
	}

	if err := d.fs.Remove(staged); err != nil {
		return NewFinalizeError(fmt.Sprintf("failed to remove %s", staged), err)
	}
	return nil
}
