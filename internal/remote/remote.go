// Package remote defines the contract the sync engine needs from the hosted
// backend, plus an HTTP client implementing it.
//
// The backend is treated as an opaque collection store: the only operation
// the engine relies on is inserting a record and receiving the
// server-assigned id back. A transport error, a non-2xx status, and an error
// field in the response body are all the same thing to callers: a failed
// insert that will be retried.
package remote

import (
	"context"
	"fmt"
)

// Record is a server-side record returned by an insert.
type Record struct {
	// ID is the server-assigned identifier.
	ID string

	// Fields holds the stored record as returned by the server, including
	// any server-populated columns.
	Fields map[string]any
}

// Store is the remote collection store contract.
type Store interface {
	// Insert creates a record in the named collection and returns the
	// stored record. Implementations honor ctx cancellation and deadlines.
	Insert(ctx context.Context, collection string, fields map[string]any) (Record, error)
}

// Error is a failure response from the remote store.
type Error struct {
	// StatusCode is the HTTP status, or 0 for transport-level failures.
	StatusCode int

	// Message is the server-supplied error string, when present.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote store: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("remote store: unexpected status %d", e.StatusCode)
}
