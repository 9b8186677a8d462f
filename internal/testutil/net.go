package testutil

import "sync/atomic"

// FakeConnectivity is a settable queue.Connectivity.
type FakeConnectivity struct {
	online atomic.Bool
}

// NewFakeConnectivity creates an oracle in the given state.
func NewFakeConnectivity(online bool) *FakeConnectivity {
	f := &FakeConnectivity{}
	f.online.Store(online)
	return f
}

// IsOnline implements queue.Connectivity.
func (f *FakeConnectivity) IsOnline() bool {
	return f.online.Load()
}

// SetOnline flips the oracle.
func (f *FakeConnectivity) SetOnline(online bool) {
	f.online.Store(online)
}
