//go:build !tinygo

// Package periphbus connects the I2C master to periph.io: any drivers.I2C
// (the on-chip master or a console.Remote) can serve periph device drivers,
// and periph GPIO pins can back the bit-banged bus recovery.
package periphbus

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// ErrSpeedUnsupported is returned by SetSpeed when the master has a fixed
// clock
var ErrSpeedUnsupported = errors.New("periphbus: bus speed is fixed")

// SpeedSetter is implemented by masters whose clock can be changed
type SpeedSetter interface {
	SetBusSpeed(hz uint32) error
}

// Bus is a periph.io i2c.Bus over a drivers.I2C
type Bus struct {
	mu     sync.Mutex
	name   string
	master drivers.I2C
}

var _ i2c.Bus = (*Bus)(nil)

// New wraps master; name appears in String
func New(name string, master drivers.I2C) *Bus {
	return &Bus{name: name, master: master}
}

func (b *Bus) String() string {
	return b.name
}

// Tx serializes transactions from concurrent periph devices
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.master.Tx(addr, w, r); err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	return nil
}

// SetSpeed forwards to the master if it supports it
func (b *Bus) SetSpeed(f physic.Frequency) error {
	s, ok := b.master.(SpeedSetter)
	if !ok {
		return ErrSpeedUnsupported
	}
	if f < physic.Hertz || f > math.MaxUint32*physic.Hertz {
		return fmt.Errorf("periphbus: invalid speed %s", f)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return s.SetBusSpeed(uint32(f / physic.Hertz))
}
