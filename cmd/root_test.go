package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"catalog-backup/internal/config"
	appErrors "catalog-backup/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps tests from picking up a config file from the developer's
// home or working directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "today", "abc123", "go1.25")
	t.Cleanup(func() { SetVersionInfo("dev", "unknown", "unknown", "unknown") })

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "catalog-backup version 1.2.3")
	assert.Contains(t, out, "Commit: abc123")
}

func TestConfigCommand(t *testing.T) {
	out, err := run(t, "config")
	require.NoError(t, err)
	assert.Equal(t, config.SampleConfig, out)
}

func TestCreateInspectDelete(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	batch := writeFile(t, "batch.json", `[
		{"id": "4f9a0c", "attributes": {"title": "Harbor survey"}},
		{"id": "77b1e2", "attributes": {"title": "Ridge line"}}
	]`)

	out, err := run(t, "create", "--root-dir", root, "--shard-depth", "1", "--no-icons", batch)
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] create: 2 metacard(s) processed")
	assert.FileExists(t, filepath.Join(root, "4f", "4f9a0c"))

	out, err = run(t, "inspect", "--root-dir", root, "--shard-depth", "1", "4f9a0c")
	require.NoError(t, err)
	assert.Contains(t, out, "title: Harbor survey")

	out, err = run(t, "delete", "--root-dir", root, "--shard-depth", "1", "--no-icons", batch)
	require.NoError(t, err)
	assert.Contains(t, out, "[OK] delete: 2 metacard(s) processed")
	assert.NoFileExists(t, filepath.Join(root, "4f", "4f9a0c"))
}

func TestUpdateCommand(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	before := writeFile(t, "before.yaml", "id: abc123\nattributes:\n  title: draft\n")
	after := writeFile(t, "after.yaml", "id: abc123\nattributes:\n  title: final\n")

	_, err := run(t, "create", "--root-dir", root, before)
	require.NoError(t, err)

	_, err = run(t, "update", "--root-dir", root, "--old", before, "--new", after)
	require.NoError(t, err)

	out, err := run(t, "inspect", "--root-dir", root, "--format", "json", "abc123")
	require.NoError(t, err)
	assert.Contains(t, out, `"final"`)
}

func TestPartialBatchExitCode(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	batch := writeFile(t, "missing.json", `[{"id": "abc"}]`)

	out, err := run(t, "delete", "--root-dir", root, "--no-icons", batch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ExitPartialBatch, appErrors.ExitCode(err))
	assert.Equal(t, "Error processing DeleteResponse. Unable to delete metacard(s) [abc] from backup.", appErrors.FormatUserError(err))
	assert.Contains(t, out, "[FAIL] delete: 0 of 1 metacard(s) succeeded")
}

func TestRootDirRequired(t *testing.T) {
	isolate(t)
	batch := writeFile(t, "batch.json", `{"id": "abc"}`)

	_, err := run(t, "create", batch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ExitConfiguration, appErrors.ExitCode(err))

	_, err = run(t, "create", "--root-dir", "relative/path", batch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ExitConfiguration, appErrors.ExitCode(err))
}

func TestConfigSources(t *testing.T) {
	isolate(t)
	fromFile := t.TempDir()
	fromEnv := t.TempDir()
	fromFlag := t.TempDir()
	batch := writeFile(t, "batch.json", `{"id": "abc"}`)
	cfgFile := writeFile(t, "catalog-backup.yaml", "backup:\n  root_dir: "+fromFile+"\n")

	_, err := run(t, "create", "--config", cfgFile, batch)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(fromFile, "abc"))

	t.Setenv("CATALOG_BACKUP_BACKUP_ROOT_DIR", fromEnv)
	_, err = run(t, "create", "--config", cfgFile, batch)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(fromEnv, "abc"))

	_, err = run(t, "create", "--config", cfgFile, "--root-dir", fromFlag, batch)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(fromFlag, "abc"))
}

func TestInvalidFlagValues(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	batch := writeFile(t, "batch.json", `{"id": "abc"}`)

	_, err := run(t, "create", "--root-dir", root, "--workers", "0", batch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ExitConfiguration, appErrors.ExitCode(err))

	_, err = run(t, "create", "--root-dir", root, "--compression", "brotli", batch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ExitConfiguration, appErrors.ExitCode(err))

	_, err = run(t, "create", "--root-dir", root, "--format", "xml", batch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ExitConfiguration, appErrors.ExitCode(err))

	_, err = run(t, "create", "--root-dir", root, "-v", "-q", batch)
	require.Error(t, err)
}

func TestScanCommand(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ab"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ab", "abc.del"), []byte("{}"), 0644))

	out, err := run(t, "scan", "--root-dir", root, "--no-icons")
	require.NoError(t, err)
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "abc.del")
}

func TestMetricsFile(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	metrics := filepath.Join(t.TempDir(), "catalog_backup.prom")
	batch := writeFile(t, "batch.json", `{"id": "abc"}`)

	_, err := run(t, "create", "--root-dir", root, "--metrics-file", metrics, batch)
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), "catalog_backup_batch_duration_seconds")
}
