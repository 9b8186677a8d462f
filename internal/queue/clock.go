package queue

import "time"

// Clock abstracts wall time so retry bookkeeping and garbage collection can
// be tested without sleeping. Production code uses SystemClock; tests inject
// a manual clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
