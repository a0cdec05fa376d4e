//go:build tinygo

package core

import "time"

// delayMicroseconds spins on the monotonic clock. Bit-banged bus timing
// cannot tolerate being parked by the scheduler.
func delayMicroseconds(us uint32) {
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}
