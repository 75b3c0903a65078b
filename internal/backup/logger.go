package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"catalog-backup/internal/logging"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BackupLogger provides structured logging for batches with correlation IDs
// and an optional audit trail of per-metacard outcomes.
type BackupLogger struct {
	logger      *logging.Logger
	auditLogger *logrus.Logger
	auditFile   io.Closer
}

// BackupLoggerConfig holds configuration for backup logging
type BackupLoggerConfig struct {
	Logger       *logging.Logger
	AuditLogFile string
}

// AuditLogEntry is one line of the audit trail.
type AuditLogEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
	Operation     string    `json:"operation"`
	ID            string    `json:"id"`
	Result        string    `json:"result"`
	Step          string    `json:"step,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// NewBackupLogger creates a backup logger. A nil Logger discards output.
func NewBackupLogger(config BackupLoggerConfig) (*BackupLogger, error) {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	bl := &BackupLogger{logger: logger}

	if config.AuditLogFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.AuditLogFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}

		auditFile, err := os.OpenFile(config.AuditLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}

		auditLogger := logrus.New()
		auditLogger.SetOutput(auditFile)
		auditLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
		auditLogger.SetLevel(logrus.InfoLevel)

		bl.auditLogger = auditLogger
		bl.auditFile = auditFile
	}

	return bl, nil
}

// Close releases the audit log file.
func (bl *BackupLogger) Close() error {
	if bl.auditFile == nil {
		return nil
	}
	return bl.auditFile.Close()
}

// StartBatch tags ctx with a fresh correlation ID unless one is present and
// returns a function that logs the batch outcome.
func (bl *BackupLogger) StartBatch(ctx context.Context, operation string, items int) (context.Context, func(failed int, err error)) {
	if logging.GetCorrelationID(ctx) == "" {
		ctx = logging.WithCorrelationID(ctx, uuid.New().String())
	}
	start := time.Now()

	bl.logger.WithContext(ctx).WithFields(logrus.Fields{
		"operation": operation,
		"items":     items,
	}).Debug("Batch started")

	return ctx, func(failed int, err error) {
		bl.logger.LogBatch(ctx, operation, items, failed, time.Since(start), err)
	}
}

// ItemSucceeded records a metacard whose work unit completed.
func (bl *BackupLogger) ItemSucceeded(ctx context.Context, operation, id string, path string) {
	bl.logger.WithContext(ctx).WithFields(logrus.Fields{
		"operation": operation,
		"id":        id,
		"path":      path,
	}).Debug("Metacard backup updated")

	bl.logAudit(ctx, AuditLogEntry{Operation: operation, ID: id, Result: "success"})
}

// ItemFailed records a metacard whose work unit failed at step.
func (bl *BackupLogger) ItemFailed(ctx context.Context, operation, id string, step Step, err error) {
	bl.logger.LogItemFailure(ctx, operation, id, string(step), err)

	entry := AuditLogEntry{Operation: operation, ID: id, Result: "failure", Step: string(step)}
	if err != nil {
		entry.Error = err.Error()
	}
	bl.logAudit(ctx, entry)
}

// StagedLeftBehind warns that a staged artifact was kept after a failed
// update so it can be reconciled by an operator.
func (bl *BackupLogger) StagedLeftBehind(ctx context.Context, id, stagedPath string) {
	bl.logger.WithContext(ctx).WithFields(logrus.Fields{
		"id":          id,
		"staged_path": stagedPath,
	}).Warn("Staged backup kept after failed update")
}

func (bl *BackupLogger) logAudit(ctx context.Context, entry AuditLogEntry) {
	if bl.auditLogger == nil {
		return
	}

	entry.Timestamp = time.Now()
	entry.CorrelationID = logging.GetCorrelationID(ctx)

	fields := logrus.Fields{
		"correlation_id": entry.CorrelationID,
		"operation":      entry.Operation,
		"id":             entry.ID,
		"result":         entry.Result,
	}
	if entry.Step != "" {
		fields["step"] = entry.Step
	}
	if entry.Error != "" {
		fields["error"] = entry.Error
	}
	bl.auditLogger.WithFields(fields).Info("Audit log entry")
}
