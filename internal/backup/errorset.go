package backup

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// FailureCategory partitions per-item failures within a batch.
type FailureCategory string

const (
	// CategoryBackup collects IDs whose new snapshot could not be written.
	CategoryBackup FailureCategory = "backup"
	// CategoryDelete collects IDs whose previous snapshot could not be removed.
	CategoryDelete FailureCategory = "delete"
)

// Response types named in batch failure messages.
const (
	ResponseTypeCreate = "CreateResponse"
	ResponseTypeUpdate = "UpdateResponse"
	ResponseTypeDelete = "DeleteResponse"
)

// ItemFailure records why one metacard failed within a batch.
type ItemFailure struct {
	ID       string
	Category FailureCategory
	Err      error
}

// ErrorSet collects per-item failures for one batch. It is safe for
// concurrent use by worker goroutines.
type ErrorSet struct {
	mu       sync.Mutex
	failures []ItemFailure
}

// NewErrorSet creates an empty error set.
func NewErrorSet() *ErrorSet {
	return &ErrorSet{}
}

// Add records a failure for id under category.
func (s *ErrorSet) Add(category FailureCategory, id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, ItemFailure{ID: id, Category: category, Err: err})
}

// Len returns the number of recorded failures across all categories.
func (s *ErrorSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

// IDs returns the sorted, de-duplicated IDs recorded under category.
func (s *ErrorSet) IDs(category FailureCategory) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	ids := []string{}
	for _, f := range s.failures {
		if f.Category != category {
			continue
		}
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		ids = append(ids, f.ID)
	}
	sort.Strings(ids)
	return ids
}

// Failures returns a copy of every recorded failure.
func (s *ErrorSet) Failures() []ItemFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ItemFailure, len(s.failures))
	copy(out, s.failures)
	return out
}

// Err returns a *BatchError for responseType when any failure was recorded,
// nil otherwise.
func (s *ErrorSet) Err(responseType string) error {
	if s.Len() == 0 {
		return nil
	}
	return &BatchError{
		ResponseType:   responseType,
		BackupFailures: s.IDs(CategoryBackup),
		DeleteFailures: s.IDs(CategoryDelete),
		Failures:       s.Failures(),
	}
}

// BatchError is returned once per batch when at least one item failed. Items
// that succeeded are not rolled back.
type BatchError struct {
	ResponseType   string
	BackupFailures []string
	DeleteFailures []string
	Failures       []ItemFailure
}

// Error builds the aggregated message, delete failures first.
func (e *BatchError) Error() string {
	var b strings.Builder
	b.WriteString("Error processing ")
	b.WriteString(e.ResponseType)
	b.WriteString(".")

	if len(e.DeleteFailures) > 0 {
		b.WriteString(" Unable to delete metacard(s) [")
		b.WriteString(strings.Join(e.DeleteFailures, ","))
		b.WriteString("] from backup.")
	}
	if len(e.BackupFailures) > 0 {
		b.WriteString(" Unable to back up metacard(s) [")
		b.WriteString(strings.Join(e.BackupFailures, ","))
		b.WriteString("].")
	}
	return b.String()
}

// Unwrap exposes the per-item causes to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// FailedIDs returns the IDs recorded under category.
func (e *BatchError) FailedIDs(category FailureCategory) []string {
	switch category {
	case CategoryBackup:
		return e.BackupFailures
	case CategoryDelete:
		return e.DeleteFailures
	default:
		return nil
	}
}

// AsBatchError extracts a *BatchError from err.
func AsBatchError(err error) (*BatchError, bool) {
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		return batchErr, true
	}
	return nil, false
}
