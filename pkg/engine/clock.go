package engine

import "time"

// Clock supplies the current instant for frames that carry no timestamp and
// for control calls made between frames.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock with its monotonic reading.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
