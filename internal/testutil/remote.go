package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fleetsync/internal/remote"
)

// ErrRemoteDown is the failure returned by a scripted FakeRemote outage.
var ErrRemoteDown = errors.New("remote store unavailable")

// InsertCall records one Insert invocation against the fake.
type InsertCall struct {
	Collection string
	Fields     map[string]any
}

// FakeRemote is a scripted remote.Store.
//
// By default every insert succeeds and is assigned an id of the form
// "srv-<n>". Tests script failures with SetError (fail until cleared) or
// FailNext (fail the next n calls, then recover).
type FakeRemote struct {
	mu        sync.Mutex
	insertErr error
	failNext  int
	block     chan struct{}
	calls     []InsertCall
	nextID    int
}

// NewFakeRemote creates a fake that succeeds on every call.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{}
}

// SetError makes every subsequent insert fail with err until called again
// with nil.
func (f *FakeRemote) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertErr = err
}

// FailNext makes the next n inserts fail with ErrRemoteDown, then recover.
func (f *FakeRemote) FailNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// BlockInserts makes Insert calls park until the returned release function
// runs. Used to hold a drain open while testing overlap behavior.
func (f *FakeRemote) BlockInserts() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

// Insert implements remote.Store.
func (f *FakeRemote) Insert(ctx context.Context, collection string, fields map[string]any) (remote.Record, error) {
	if err := ctx.Err(); err != nil {
		return remote.Record{}, err
	}

	call := InsertCall{Collection: collection, Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		call.Fields[k] = v
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return remote.Record{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.insertErr != nil {
		return remote.Record{}, f.insertErr
	}
	if f.failNext > 0 {
		f.failNext--
		return remote.Record{}, ErrRemoteDown
	}

	f.nextID++
	id := fmt.Sprintf("srv-%d", f.nextID)
	stored := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		stored[k] = v
	}
	stored["id"] = id
	return remote.Record{ID: id, Fields: stored}, nil
}

// Calls returns a copy of all recorded inserts, in order.
func (f *FakeRemote) Calls() []InsertCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]InsertCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns the number of inserts attempted so far.
func (f *FakeRemote) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
