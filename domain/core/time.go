package core

import (
	"time"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Since reports the elapsed milliseconds between start and the clock's now.
func (c Clock) Since(start time.Time) int64 {
	return c().Sub(start).Milliseconds()
}
