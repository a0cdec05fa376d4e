//go:build tinygo

package i2c

import (
	"runtime/volatile"
	"unsafe"
)

// Register is a volatile 32-bit peripheral register
type Register struct {
	reg volatile.Register32
}

// Get performs a volatile load
func (r *Register) Get() uint32 {
	return r.reg.Get()
}

// Set performs a volatile store
func (r *Register) Set(value uint32) {
	r.reg.Set(value)
}

// RegistersAt overlays a RegisterMap on the peripheral at base
func RegistersAt(base uintptr) *RegisterMap {
	return (*RegisterMap)(unsafe.Pointer(base))
}
