package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"catalog-backup/internal/metacard"

	"github.com/spf13/afero"
)

// ArtifactKind classifies files found under the backup root.
type ArtifactKind string

const (
	ArtifactCommitted ArtifactKind = "committed"
	ArtifactTemp      ArtifactKind = "temp"
	ArtifactStaged    ArtifactKind = "staged"
)

// Artifact is a temp or staged file left behind by an interrupted write,
// delete or update.
type Artifact struct {
	Kind ArtifactKind `json:"kind" yaml:"kind"`
	ID   string       `json:"id" yaml:"id"`
	Path string       `json:"path" yaml:"path"`
	// HasCommitted is set when a committed file for the same ID sits next
	// to the artifact.
	HasCommitted bool `json:"has_committed" yaml:"has_committed"`
}

// ScanReport summarizes a backup tree.
type ScanReport struct {
	Committed int
	Temp      []Artifact
	Staged    []Artifact
}

// Stray returns every temp and staged artifact, staged first.
func (r *ScanReport) Stray() []Artifact {
	out := make([]Artifact, 0, len(r.Temp)+len(r.Staged))
	out = append(out, r.Staged...)
	return append(out, r.Temp...)
}

// Scanner reports artifacts that need operator reconciliation. It never
// modifies the tree.
type Scanner struct {
	fs      afero.Fs
	rootDir string
}

// NewScanner creates a scanner rooted at rootDir.
func NewScanner(fs afero.Fs, rootDir string) *Scanner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Scanner{fs: fs, rootDir: rootDir}
}

// Scan walks the backup root.
func (s *Scanner) Scan(ctx context.Context) (*ScanReport, error) {
	if strings.TrimSpace(s.rootDir) == "" {
		return nil, NewConfigurationError("no root backup directory configured", nil)
	}

	report := &ScanReport{}
	committed := make(map[string]struct{})

	err := afero.Walk(s.fs, s.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		name := info.Name()
		switch {
		case strings.HasSuffix(name, metacard.TempSuffix):
			report.Temp = append(report.Temp, Artifact{
				Kind: ArtifactTemp,
				ID:   strings.TrimSuffix(name, metacard.TempSuffix),
				Path: path,
			})
		case strings.HasSuffix(name, metacard.StageSuffix):
			report.Staged = append(report.Staged, Artifact{
				Kind: ArtifactStaged,
				ID:   strings.TrimSuffix(name, metacard.StageSuffix),
				Path: path,
			})
		default:
			report.Committed++
			committed[path] = struct{}{}
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return nil, NewIOError("failed to scan backup directory", err).
			WithContext("root", s.rootDir)
	}

	mark := func(artifacts []Artifact) {
		for i := range artifacts {
			sibling := filepath.Join(filepath.Dir(artifacts[i].Path), artifacts[i].ID)
			_, artifacts[i].HasCommitted = committed[sibling]
		}
		sort.Slice(artifacts, func(a, b int) bool { return artifacts[a].Path < artifacts[b].Path })
	}
	mark(report.Temp)
	mark(report.Staged)

	return report, nil
}
