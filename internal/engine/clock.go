package engine

import "time"

// Clock abstracts wall time for the poll loop. Production code uses
// SystemClock; tests inject testutil.FakeClock so sleeps and session
// lifetimes can be driven deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d has
	// elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After is time.After.
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
