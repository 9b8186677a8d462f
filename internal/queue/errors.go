package queue

import (
	"errors"
	"fmt"
)

// SyncError represents an error detected by the sync engine.
//
// Sync errors include:
//   - Drain in progress: a second drain was requested while one is running
//   - Persistence failure: the durable store rejected a queue or mirror write
//
// Remote insert failures are not sync errors; they are absorbed into the
// retry state of the affected queue item.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// EntityType identifies the affected collection, when known.
	EntityType string

	// Err is the underlying cause, when one exists.
	Err error
}

// SyncErrorCode categorizes sync errors.
type SyncErrorCode string

const (
	// ErrCodeDrainInProgress indicates an overlapping drain was rejected.
	ErrCodeDrainInProgress SyncErrorCode = "DRAIN_IN_PROGRESS"

	// ErrCodePersistence indicates the durable store rejected a write.
	ErrCodePersistence SyncErrorCode = "PERSISTENCE_FAILED"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("%s: %s (entity_type=%s)", e.Code, e.Message, e.EntityType)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsDrainInProgress returns true if the error is an overlapping-drain
// rejection. Uses errors.As to handle wrapped errors.
func IsDrainInProgress(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodeDrainInProgress
	}
	return false
}

// IsPersistenceError returns true if the error is a durable-store write
// failure. Uses errors.As to handle wrapped errors.
func IsPersistenceError(err error) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == ErrCodePersistence
	}
	return false
}

// newDrainInProgressError creates a SyncError for an overlapping drain.
func newDrainInProgressError() *SyncError {
	return &SyncError{
		Code:    ErrCodeDrainInProgress,
		Message: "drain already in progress",
	}
}

// newPersistenceError creates a SyncError wrapping a store write failure.
func newPersistenceError(entityType string, err error) *SyncError {
	return &SyncError{
		Code:       ErrCodePersistence,
		Message:    err.Error(),
		EntityType: entityType,
		Err:        err,
	}
}
