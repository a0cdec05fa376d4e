//go:build !tinygo

package core

import "sync"

// State is a placeholder for interrupt state on regular Go
type State uintptr

// irqMu stands in for the global interrupt mask so that host-side
// read-modify-write sequences stay atomic against a simulated interrupt.
var irqMu sync.Mutex

// DisableInterrupts masks the simulated interrupt and returns the previous state
func DisableInterrupts() State {
	irqMu.Lock()
	return 0
}

// RestoreInterrupts unmasks the simulated interrupt
func RestoreInterrupts(state State) {
	irqMu.Unlock()
}
