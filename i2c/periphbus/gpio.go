//go:build !tinygo

package periphbus

import (
	"errors"
	"sync"

	"periph.io/x/conn/v3/gpio"

	"i2cmaster/core"
)

// Pin numbers GPIO assigns to its two lines. The port is ignored.
const (
	PinSCL core.GPIOPin = 0
	PinSDA core.GPIOPin = 1
)

var ErrInvalidPin = errors.New("periphbus: pin out of range")

// GPIO is a core.GPIODriver over two periph pins. Open-drain is emulated:
// a released line is an input with pull-up, a low line is driven low.
type GPIO struct {
	mu        sync.Mutex
	pins      [2]gpio.PinIO
	openDrain [2]bool
	level     [2]bool
	err       error
}

var _ core.GPIODriver = (*GPIO)(nil)

// NewGPIO binds scl and sda to PinSCL and PinSDA
func NewGPIO(scl, sda gpio.PinIO) *GPIO {
	return &GPIO{
		pins:  [2]gpio.PinIO{scl, sda},
		level: [2]bool{true, true},
	}
}

func (g *GPIO) SetPinMode(port core.GPIOPort, pin core.GPIOPin, mode core.PinMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if int(pin) >= len(g.pins) {
		return ErrInvalidPin
	}
	p := g.pins[pin]
	switch mode {
	case core.PinInputFloating:
		g.openDrain[pin] = false
		return p.In(gpio.Float, gpio.NoEdge)
	case core.PinInputPullUp:
		g.openDrain[pin] = false
		return p.In(gpio.PullUp, gpio.NoEdge)
	case core.PinOutputPushPull:
		g.openDrain[pin] = false
		return p.Out(gpio.Level(g.level[pin]))
	default:
		g.openDrain[pin] = true
		return g.drive(pin)
	}
}

func (g *GPIO) WritePin(port core.GPIOPort, pin core.GPIOPin, level bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if int(pin) >= len(g.pins) {
		return
	}
	g.level[pin] = level
	var err error
	if g.openDrain[pin] {
		err = g.drive(pin)
	} else {
		err = g.pins[pin].Out(gpio.Level(level))
	}
	if err != nil && g.err == nil {
		g.err = err
	}
}

func (g *GPIO) ReadPin(port core.GPIOPort, pin core.GPIOPin) bool {
	if int(pin) >= len(g.pins) {
		return false
	}
	return g.pins[pin].Read() == gpio.High
}

// Err returns the first pin error WritePin swallowed
func (g *GPIO) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *GPIO) drive(pin core.GPIOPin) error {
	if g.level[pin] {
		return g.pins[pin].In(gpio.PullUp, gpio.NoEdge)
	}
	return g.pins[pin].Out(gpio.Low)
}
