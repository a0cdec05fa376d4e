//go:build !tinygo

package core

import "time"

// delayMicroseconds sleeps on regular Go; precision is left to the runtime
func delayMicroseconds(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
