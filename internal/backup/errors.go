package backup

import (
	"errors"
	"fmt"
)

// BackupError represents errors that occur during backup operations
type BackupError struct {
	Type    BackupErrorType        `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *BackupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// Is matches another *BackupError of the same type, so callers can test
// errors.Is(err, ErrConfiguration).
func (e *BackupError) Is(target error) bool {
	t, ok := target.(*BackupError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// BackupErrorType represents different types of backup errors
type BackupErrorType string

const (
	BackupErrorTypeConfiguration  BackupErrorType = "CONFIGURATION_ERROR"
	BackupErrorTypeValidation     BackupErrorType = "VALIDATION_ERROR"
	BackupErrorTypePathResolution BackupErrorType = "PATH_RESOLUTION_ERROR"
	BackupErrorTypeSerialization  BackupErrorType = "SERIALIZATION_ERROR"
	BackupErrorTypeCompression    BackupErrorType = "COMPRESSION_ERROR"
	BackupErrorTypeEncryption     BackupErrorType = "ENCRYPTION_ERROR"
	BackupErrorTypeCorruption     BackupErrorType = "CORRUPTION_ERROR"
	BackupErrorTypeWrite          BackupErrorType = "WRITE_ERROR"
	BackupErrorTypeStage          BackupErrorType = "STAGE_ERROR"
	BackupErrorTypeFinalize       BackupErrorType = "FINALIZE_ERROR"
	BackupErrorTypeNotFound       BackupErrorType = "NOT_FOUND_ERROR"
	BackupErrorTypeIO             BackupErrorType = "IO_ERROR"
)

// Sentinels for errors.Is checks against a whole error type.
var (
	ErrConfiguration  = &BackupError{Type: BackupErrorTypeConfiguration}
	ErrValidation     = &BackupError{Type: BackupErrorTypeValidation}
	ErrPathResolution = &BackupError{Type: BackupErrorTypePathResolution}
	ErrWrite          = &BackupError{Type: BackupErrorTypeWrite}
	ErrStage          = &BackupError{Type: BackupErrorTypeStage}
	ErrFinalize       = &BackupError{Type: BackupErrorTypeFinalize}
	ErrNotFound       = &BackupError{Type: BackupErrorTypeNotFound}
	ErrCorruption     = &BackupError{Type: BackupErrorTypeCorruption}
)

// NewBackupError creates a new BackupError
func NewBackupError(errorType BackupErrorType, message string, cause error) *BackupError {
	return &BackupError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *BackupError) WithContext(key string, value interface{}) *BackupError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewConfigurationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeConfiguration, message, cause)
}

func NewValidationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeValidation, message, cause)
}

func NewPathResolutionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypePathResolution, message, cause)
}

func NewSerializationError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeSerialization, message, cause)
}

func NewCompressionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCompression, message, cause)
}

func NewEncryptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeEncryption, message, cause)
}

func NewCorruptionError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeCorruption, message, cause)
}

func NewWriteError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeWrite, message, cause)
}

func NewStageError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeStage, message, cause)
}

func NewFinalizeError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeFinalize, message, cause)
}

func NewNotFoundError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeNotFound, message, cause)
}

func NewIOError(message string, cause error) *BackupError {
	return NewBackupError(BackupErrorTypeIO, message, cause)
}

// ErrorType returns the BackupErrorType carried by err, or "" when err is not
// a BackupError.
func ErrorType(err error) BackupErrorType {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr.Type
	}
	return ""
}

// IsConfigurationError reports whether err is a pre-flight configuration
// failure. No work was scheduled when this is true.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// ValidationError represents validation-specific errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
