package errors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog-backup/internal/backup"
	"catalog-backup/internal/metacard"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	// ErrorTypeConfiguration represents missing or invalid settings
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeValidation represents invalid input such as malformed batch files
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypePartialBatch represents a batch in which some metacards failed
	ErrorTypePartialBatch ErrorType = "partial_batch"
	// ErrorTypeCorruption represents an unreadable or mismatched backup file
	ErrorTypeCorruption ErrorType = "corruption"
	// ErrorTypeNotFound represents a missing backup
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypePermission represents permission/access errors
	ErrorTypePermission ErrorType = "permission"
	// ErrorTypeStorage represents other filesystem errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeInterruption represents user interruption
	ErrorTypeInterruption ErrorType = "interruption"
	// ErrorTypeUnknown represents unknown errors
	ErrorTypeUnknown ErrorType = "unknown"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitPartialBatch  = 3
	ExitInterrupted   = 130
)

// AppError represents an application-specific error with context
type AppError struct {
	Type        ErrorType
	Message     string
	Cause       error
	Context     map[string]interface{}
	UserMessage string
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetUserMessage returns a user-friendly error message
func (e *AppError) GetUserMessage() string {
	if e.UserMessage != "" {
		return e.UserMessage
	}
	return e.Message
}

// WithContext adds context information to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithUserMessage sets the message shown to users
func (e *AppError) WithUserMessage(message string) *AppError {
	e.UserMessage = message
	return e
}

// ExitCode maps the error type to a process exit code
func (e *AppError) ExitCode() int {
	switch e.Type {
	case ErrorTypeConfiguration, ErrorTypeValidation:
		return ExitConfiguration
	case ErrorTypePartialBatch:
		return ExitPartialBatch
	case ErrorTypeInterruption:
		return ExitInterrupted
	default:
		return ExitFailure
	}
}

// NewAppError creates a new application error
func NewAppError(errorType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// ErrorClassifier provides methods to classify and handle different types of errors
type ErrorClassifier struct{}

// NewErrorClassifier creates a new error classifier
func NewErrorClassifier() *ErrorClassifier {
	return &ErrorClassifier{}
}

// ClassifyError analyzes an error and returns an AppError with appropriate classification
func (ec *ErrorClassifier) ClassifyError(err error) *AppError {
	if err == nil {
		return nil
	}

	// Check if it's already an AppError
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if batchErr := ec.classifyBatchError(err); batchErr != nil {
		return batchErr
	}

	if backupErr := ec.classifyBackupError(err); backupErr != nil {
		return backupErr
	}

	if ctxErr := ec.classifyContextError(err); ctxErr != nil {
		return ctxErr
	}

	if fsErr := ec.classifyFileSystemError(err); fsErr != nil {
		return fsErr
	}

	// Default to unknown error
	return NewAppError(ErrorTypeUnknown, "An unexpected error occurred", err).
		WithUserMessage(err.Error())
}

// classifyBatchError reports a batch with per-item failures. Items that
// succeeded stay backed up.
func (ec *ErrorClassifier) classifyBatchError(err error) *AppError {
	batchErr, ok := backup.AsBatchError(err)
	if !ok {
		return nil
	}
	return NewAppError(ErrorTypePartialBatch, "Batch completed with failures", err).
		WithContext("backup_failures", len(batchErr.BackupFailures)).
		WithContext("delete_failures", len(batchErr.DeleteFailures)).
		WithUserMessage(batchErr.Error())
}

// classifyBackupError classifies errors raised by the backup engine outside
// of batch aggregation.
func (ec *ErrorClassifier) classifyBackupError(err error) *AppError {
	var invalidID *metacard.InvalidIDError
	if errors.As(err, &invalidID) {
		return NewAppError(ErrorTypeValidation, "Invalid metacard ID", err).
			WithContext("id", invalidID.ID).
			WithUserMessage(invalidID.Error())
	}

	var backupErr *backup.BackupError
	if !errors.As(err, &backupErr) {
		return nil
	}

	var errorType ErrorType
	switch backupErr.Type {
	case backup.BackupErrorTypeConfiguration:
		errorType = ErrorTypeConfiguration
	case backup.BackupErrorTypeValidation, backup.BackupErrorTypePathResolution:
		errorType = ErrorTypeValidation
	case backup.BackupErrorTypeCorruption, backup.BackupErrorTypeEncryption,
		backup.BackupErrorTypeCompression, backup.BackupErrorTypeSerialization:
		errorType = ErrorTypeCorruption
	case backup.BackupErrorTypeNotFound:
		errorType = ErrorTypeNotFound
	default:
		errorType = ErrorTypeStorage
	}

	appErr := NewAppError(errorType, backupErr.Message, err).WithUserMessage(backupErr.Error())
	for key, value := range backupErr.Context {
		appErr.WithContext(key, value)
	}
	return appErr
}

// classifyContextError classifies context-related errors
func (ec *ErrorClassifier) classifyContextError(err error) *AppError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewAppError(ErrorTypeInterruption, "Operation was canceled", err)
	}
	return nil
}

// classifyFileSystemError classifies file system errors
func (ec *ErrorClassifier) classifyFileSystemError(err error) *AppError {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		switch {
		case errors.Is(pathErr.Err, syscall.ENOENT):
			return NewAppError(ErrorTypeValidation,
				fmt.Sprintf("File or directory not found: %s", pathErr.Path), err)
		case errors.Is(pathErr.Err, syscall.EACCES), errors.Is(pathErr.Err, syscall.EPERM):
			return NewAppError(ErrorTypePermission,
				fmt.Sprintf("Permission denied: %s", pathErr.Path), err)
		case errors.Is(pathErr.Err, syscall.ENOSPC):
			return NewAppError(ErrorTypeStorage,
				"No space left on device", err)
		default:
			return NewAppError(ErrorTypeStorage,
				fmt.Sprintf("Filesystem error on %s", pathErr.Path), err)
		}
	}
	return nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. Work units
// already scheduled still run to completion; the context only stops new
// batches from starting.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// GetErrorType returns the error type of an error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	return NewErrorClassifier().ClassifyError(err).Type
}

// ExitCode returns the process exit code for err
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return NewErrorClassifier().ClassifyError(err).ExitCode()
}

// FormatUserError formats an error for display to users
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	return NewErrorClassifier().ClassifyError(err).GetUserMessage()
}

// WrapError wraps an existing error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	classified := NewErrorClassifier().ClassifyError(err)
	wrapped := NewAppError(classified.Type, message, err)
	wrapped.UserMessage = fmt.Sprintf("%s: %s", message, classified.GetUserMessage())
	return wrapped
}
