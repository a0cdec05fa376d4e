package i2c

import (
	"sync"
	"testing"
	"time"

	"i2cmaster/core"
)

const (
	testPort = core.GPIOPort(1)
	testSCL  = core.GPIOPin(6)
	testSDA  = core.GPIOPin(7)
)

// mockGPIO models two open-drain lines with pull-ups. A target can hold
// SDA low for a number of SCL falling edges, or hold SCL low for good.
type mockGPIO struct {
	mu       sync.Mutex
	modes    map[core.GPIOPin]core.PinMode
	driven   map[core.GPIOPin]bool
	sdaHeld  int
	sclStuck bool
	sdaStuck bool
	edges    []string
	pulses   int
}

func newMockGPIO() *mockGPIO {
	return &mockGPIO{
		modes:  make(map[core.GPIOPin]core.PinMode),
		driven: map[core.GPIOPin]bool{testSCL: true, testSDA: true},
	}
}

func (g *mockGPIO) SetPinMode(port core.GPIOPort, pin core.GPIOPin, mode core.PinMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modes[pin] = mode
	return nil
}

func (g *mockGPIO) WritePin(port core.GPIOPort, pin core.GPIOPin, level bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if pin == testSCL && g.driven[pin] && !level {
		g.pulses++
		if g.sdaHeld > 0 {
			g.sdaHeld--
		}
	}
	g.driven[pin] = level
	name := "SDA"
	if pin == testSCL {
		name = "SCL"
	}
	if level {
		g.edges = append(g.edges, name+"+")
	} else {
		g.edges = append(g.edges, name+"-")
	}
}

func (g *mockGPIO) ReadPin(port core.GPIOPort, pin core.GPIOPin) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch pin {
	case testSCL:
		return g.driven[pin] && !g.sclStuck
	case testSDA:
		return g.driven[pin] && g.sdaHeld == 0 && !g.sdaStuck
	}
	return true
}

type mockClocks struct {
	calls []string
}

func (c *mockClocks) EnableClock(id core.ClockID) {
	c.calls = append(c.calls, "enable "+core.Itoa(int(id)))
}

func (c *mockClocks) ResetPeripheral(id core.ClockID) {
	c.calls = append(c.calls, "reset "+core.Itoa(int(id)))
}

type mockIRQ struct {
	enabled  []core.IRQLine
	priority map[core.IRQLine]uint8
}

func (n *mockIRQ) EnableLine(line core.IRQLine) {
	n.enabled = append(n.enabled, line)
}

func (n *mockIRQ) SetPriority(line core.IRQLine, level uint8) {
	if n.priority == nil {
		n.priority = make(map[core.IRQLine]uint8)
	}
	n.priority[line] = level
}

func noDelay(uint32) {}

type testRig struct {
	dev    *Device
	regs   *RegisterMap
	gpio   *mockGPIO
	clocks *mockClocks
	irq    *mockIRQ
	fatals []error
}

func testConfig(rig *testRig) Config {
	return Config{
		Regs:     rig.regs,
		Port:     testPort,
		SCL:      testSCL,
		SDA:      testSDA,
		Clock:    21,
		EventIRQ: 31,
		ErrorIRQ: 32,
		Timeout:  time.Second,
		GPIO:     rig.gpio,
		Clocks:   rig.clocks,
		IRQ:      rig.irq,
		Delay:    noDelay,
		OnFatal:  func(err error) { rig.fatals = append(rig.fatals, err) },
	}
}

func newRig(t *testing.T) *testRig {
	t.Helper()
	rig := &testRig{
		regs:   &RegisterMap{},
		gpio:   newMockGPIO(),
		clocks: &mockClocks{},
		irq:    &mockIRQ{},
	}
	dev, err := NewDevice(testConfig(rig))
	if err != nil {
		t.Fatalf("NewDevice failed: %v", err)
	}
	rig.dev = dev
	return rig
}

// newSimRig returns an enabled device on a simulated bus with the given
// targets attached.
func newSimRig(t *testing.T, targets ...*memTarget) (*testRig, *simBus) {
	t.Helper()
	rig := newRig(t)
	sim := newSimBus(rig.regs, targets...)
	if err := rig.dev.EnableMaster(0); err != nil {
		t.Fatalf("EnableMaster failed: %v", err)
	}
	sim.start(t, rig.dev)
	return rig, sim
}
