package clock

import "time"

// Clock abstracts time lookups so deadline and combo-window logic can be
// driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time
type SystemClock struct{}

// New creates a SystemClock
func New() *SystemClock {
	return &SystemClock{}
}

// Now returns the current time
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
