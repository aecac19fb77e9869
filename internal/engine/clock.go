package engine

import "time"

// Clock supplies the current time for dates on new entities.
// Tests inject a fixed clock so invoice dates and numbers are reproducible.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
