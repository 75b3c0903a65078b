package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"catalog-backup/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedBackupLogger(t *testing.T, auditFile string) (*BackupLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := logging.NewLogger(logging.Config{
		Level:  logging.LogLevelDebug,
		Output: &buf,
		Format: "json",
	})
	require.NoError(t, err)

	bl, err := NewBackupLogger(BackupLoggerConfig{Logger: logger, AuditLogFile: auditFile})
	require.NoError(t, err)
	t.Cleanup(func() { bl.Close() })
	return bl, &buf
}

func TestNewBackupLogger(t *testing.T) {
	tests := []struct {
		name           string
		config         BackupLoggerConfig
		expectAuditLog bool
	}{
		{
			name:   "nil logger",
			config: BackupLoggerConfig{},
		},
		{
			name:   "basic logger without audit",
			config: BackupLoggerConfig{Logger: logging.NewNopLogger()},
		},
		{
			name: "logger with audit log",
			config: BackupLoggerConfig{
				Logger:       logging.NewNopLogger(),
				AuditLogFile: filepath.Join(t.TempDir(), "nested", "audit.log"),
			},
			expectAuditLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bl, err := NewBackupLogger(tt.config)
			require.NoError(t, err)
			require.NotNil(t, bl)
			defer bl.Close()

			if tt.expectAuditLog {
				assert.NotNil(t, bl.auditLogger)
			} else {
				assert.Nil(t, bl.auditLogger)
			}
		})
	}
}

func TestBackupLogger_StartBatch(t *testing.T) {
	bl, buf := newBufferedBackupLogger(t, "")

	ctx, done := bl.StartBatch(context.Background(), operationCreate, 3)
	correlationID := logging.GetCorrelationID(ctx)
	assert.NotEmpty(t, correlationID)

	done(0, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "Batch completed", entry["msg"])
	assert.Equal(t, correlationID, entry["correlation_id"])
	assert.Equal(t, "create", entry["operation"])
	assert.Equal(t, float64(3), entry["items"])
}

func TestBackupLogger_StartBatchKeepsCorrelationID(t *testing.T) {
	bl, _ := newBufferedBackupLogger(t, "")

	ctx := logging.WithCorrelationID(context.Background(), "existing-id")
	ctx, done := bl.StartBatch(ctx, operationDelete, 1)
	defer done(0, nil)

	assert.Equal(t, "existing-id", logging.GetCorrelationID(ctx))
}

func TestBackupLogger_ItemFailedAndStagedLeftBehind(t *testing.T) {
	bl, buf := newBufferedBackupLogger(t, "")
	ctx := logging.WithCorrelationID(context.Background(), "batch-1")

	bl.ItemFailed(ctx, operationUpdate, "abc", StepWrite, errors.New("disk full"))
	bl.StagedLeftBehind(ctx, "abc", "/backup/abc.del")

	out := buf.String()
	assert.Contains(t, out, `"step":"write"`)
	assert.Contains(t, out, `"error":"disk full"`)
	assert.Contains(t, out, `"staged_path":"/backup/abc.del"`)
	assert.Contains(t, out, "Staged backup kept after failed update")
}

func TestBackupLogger_AuditLogging(t *testing.T) {
	auditLogFile := filepath.Join(t.TempDir(), "audit.log")
	bl, _ := newBufferedBackupLogger(t, auditLogFile)
	ctx := logging.WithCorrelationID(context.Background(), "audit-batch")

	bl.ItemSucceeded(ctx, operationCreate, "abc", "/backup/abc")
	bl.ItemFailed(ctx, operationDelete, "def", StepStage, ErrNotFound)

	content, err := os.ReadFile(auditLogFile)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "audit-batch", first["correlation_id"])
	assert.Equal(t, "success", first["result"])
	assert.Equal(t, "abc", first["id"])
	assert.Equal(t, "failure", second["result"])
	assert.Equal(t, "stage", second["step"])
	assert.NotEmpty(t, second["error"])
}

func TestBackupLogger_CloseWithoutAudit(t *testing.T) {
	bl, err := NewBackupLogger(BackupLoggerConfig{})
	require.NoError(t, err)
	assert.NoError(t, bl.Close())
}
