package core

import "time"

// DelayFunc blocks the caller for roughly us microseconds
type DelayFunc func(us uint32)

// DelayMicroseconds is the platform delay used when a driver is not given
// its own DelayFunc
func DelayMicroseconds(us uint32) {
	delayMicroseconds(us)
}

// Deadline returns the instant timeout from now. A zero timeout yields the
// zero Time, meaning no deadline.
func Deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// Expired reports whether deadline has passed. The zero Time never expires.
func Expired(deadline time.Time) bool {
	return !deadline.IsZero() && !time.Now().Before(deadline)
}
