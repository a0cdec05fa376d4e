//go:build !tinygo

package i2c

import "sync/atomic"

// RegisterHooks lets a hardware model emulate access side effects on
// regular Go builds (flag clear-on-read, DR shifting, START/STOP requests).
type RegisterHooks struct {
	// OnRead runs before the value is loaded; it may Poke the register.
	OnRead func()
	// OnWrite receives the value being stored and returns what the
	// register actually latches.
	OnWrite func(value uint32) uint32
}

// Register is a 32-bit register backed by ordinary memory
type Register struct {
	value uint32
	hooks *RegisterHooks
}

// Get loads the register, running the read hook first
func (r *Register) Get() uint32 {
	if r.hooks != nil && r.hooks.OnRead != nil {
		r.hooks.OnRead()
	}
	return atomic.LoadUint32(&r.value)
}

// Set stores the register through the write hook
func (r *Register) Set(value uint32) {
	if r.hooks != nil && r.hooks.OnWrite != nil {
		value = r.hooks.OnWrite(value)
	}
	atomic.StoreUint32(&r.value, value)
}

// Peek loads the raw value without side effects
func (r *Register) Peek() uint32 {
	return atomic.LoadUint32(&r.value)
}

// Poke stores the raw value without side effects
func (r *Register) Poke(value uint32) {
	atomic.StoreUint32(&r.value, value)
}

// SetHooks installs access hooks. It must be called before the register is
// shared with another goroutine.
func (r *Register) SetHooks(hooks *RegisterHooks) {
	r.hooks = hooks
}
