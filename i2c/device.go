package i2c

import (
	"sync/atomic"
	"time"

	"i2cmaster/core"
)

// State is the transaction state of a Device
type State uint32

const (
	StateIdle State = iota
	StateBusy
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	}
	return "unknown"
}

// MasterFlags select the operating mode passed to EnableMaster
type MasterFlags uint8

const (
	// FastMode runs the bus at 400 kHz instead of 100 kHz
	FastMode MasterFlags = 1 << 0
	// TenBitAddressing is recognized but rejected
	TenBitAddressing MasterFlags = 1 << 1
)

const (
	StandardSpeed = 100000
	FastSpeed     = 400000

	DefaultPCLK1           = 36000000
	DefaultTimeout         = 100 * time.Millisecond
	DefaultRecoveryTimeout = 25 * time.Millisecond
)

// Config describes one bus controller and the capabilities it is wired to
type Config struct {
	Regs *RegisterMap

	Port core.GPIOPort
	SCL  core.GPIOPin
	SDA  core.GPIOPin

	Clock    core.ClockID
	EventIRQ core.IRQLine
	ErrorIRQ core.IRQLine

	// PCLK1 is the APB1 clock feeding the controller, in Hz.
	// The controller accepts 2 to 36 MHz.
	PCLK1 uint32

	// Timeout bounds each Transfer; RecoveryTimeout bounds ResetBus
	Timeout         time.Duration
	RecoveryTimeout time.Duration

	TraceCapacity int

	GPIO   core.GPIODriver
	Clocks core.ClockDriver
	IRQ    core.InterruptController

	// Delay is used for bit-banged recovery. Defaults to core.DelayMicroseconds.
	Delay core.DelayFunc

	// OnFatal runs after the state machine has latched an internal
	// inconsistency. Defaults to logging the trace and panicking.
	OnFatal func(err error)
}

// Device is the context of one bus controller. A Device is owned by a single
// caller; the interrupt handlers only touch the message list while a
// transfer is in flight.
type Device struct {
	regs *RegisterMap

	port     core.GPIOPort
	scl, sda core.GPIOPin
	clock    core.ClockID
	eventIRQ core.IRQLine
	errorIRQ core.IRQLine

	pclk1           uint32
	speed           uint32
	timeout         time.Duration
	recoveryTimeout time.Duration

	gpio   core.GPIODriver
	clocks core.ClockDriver
	irq    core.InterruptController
	delay  core.DelayFunc

	onFatal func(err error)

	// written by the interrupt handlers, read by the orchestrator
	state   uint32
	errCode uint32

	// only touched by the interrupt handlers while state is Busy
	msgs     []Message
	cur      int
	msgsLeft int
	trace    *Trace

	enabled     bool
	recoveryErr error
}

// NewDevice validates cfg, applies defaults and returns an initialized,
// not yet enabled, Device.
func NewDevice(cfg Config) (*Device, error) {
	if cfg.Regs == nil || cfg.GPIO == nil || cfg.Clocks == nil || cfg.IRQ == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.SCL == cfg.SDA {
		return nil, ErrInvalidConfig
	}
	if cfg.PCLK1 == 0 {
		cfg.PCLK1 = DefaultPCLK1
	}
	if mhz := cfg.PCLK1 / 1000000; mhz < 2 || mhz > 36 {
		return nil, ErrInvalidConfig
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultRecoveryTimeout
	}
	if cfg.TraceCapacity <= 0 {
		cfg.TraceCapacity = DefaultTraceCapacity
	}
	if cfg.Delay == nil {
		cfg.Delay = core.DelayMicroseconds
	}

	d := &Device{
		regs:            cfg.Regs,
		port:            cfg.Port,
		scl:             cfg.SCL,
		sda:             cfg.SDA,
		clock:           cfg.Clock,
		eventIRQ:        cfg.EventIRQ,
		errorIRQ:        cfg.ErrorIRQ,
		pclk1:           cfg.PCLK1,
		speed:           StandardSpeed,
		timeout:         cfg.Timeout,
		recoveryTimeout: cfg.RecoveryTimeout,
		gpio:            cfg.GPIO,
		clocks:          cfg.Clocks,
		irq:             cfg.IRQ,
		delay:           cfg.Delay,
		onFatal:         cfg.OnFatal,
		trace:           NewTrace(cfg.TraceCapacity),
	}
	if d.onFatal == nil {
		d.onFatal = d.haltOnFatal
	}
	d.InitMaster()
	return d, nil
}

// InitMaster returns the device to its initial state: controller disabled
// with interrupts masked, no transfer recorded, state Idle. It is also how a
// caller resets a device left in StateError before enabling it again.
func (d *Device) InitMaster() {
	d.regs.DisableIRQ(IRQEvent | IRQBuffer | IRQError)
	d.regs.PeripheralDisable()
	d.msgs = nil
	d.cur = 0
	d.msgsLeft = 0
	d.trace.Clear()
	d.enabled = false
	d.recoveryErr = nil
	atomic.StoreUint32(&d.errCode, 0)
	atomic.StoreUint32(&d.state, uint32(StateIdle))
}

// EnableMaster clocks out any hung target, then configures pins, clock,
// timing and interrupts and turns the controller on.
func (d *Device) EnableMaster(flags MasterFlags) error {
	if flags&TenBitAddressing != 0 {
		return ErrTenBitUnsupported
	}
	if d.State() == StateBusy {
		return ErrBusy
	}

	speed := uint32(StandardSpeed)
	if flags&FastMode != 0 {
		speed = FastSpeed
	}

	// A bus that will not release does not stop bring-up; the BUSY wait in
	// Transfer is bounded as well. The outcome is kept for RecoveryErr.
	d.recoveryErr = d.ResetBus()

	d.clocks.ResetPeripheral(d.clock)
	d.clocks.EnableClock(d.clock)
	if err := d.gpio.SetPinMode(d.port, d.sda, core.PinAltOutputOpenDrain); err != nil {
		return err
	}
	if err := d.gpio.SetPinMode(d.port, d.scl, core.PinAltOutputOpenDrain); err != nil {
		return err
	}

	d.regs.PeripheralDisable()
	d.regs.SetInputClock(d.pclk1 / 1000000)
	if err := d.configureTiming(speed); err != nil {
		return err
	}

	d.irq.EnableLine(d.eventIRQ)
	d.irq.EnableLine(d.errorIRQ)
	d.regs.EnableIRQ(IRQEvent | IRQBuffer | IRQError)

	// Events must be serviced before the next byte is clocked or the
	// controller corrupts data, so nothing may preempt this interrupt.
	d.irq.SetPriority(d.eventIRQ, 0)
	d.irq.SetPriority(d.errorIRQ, 0)

	d.regs.PeripheralEnable()
	d.enabled = true
	core.DebugPrintln("[I2C] master enabled at " + core.Itoa(int(speed)) + " Hz")
	return nil
}

// SetBusSpeed reprograms the SCL frequency. Up to 100 kHz uses standard
// mode timing, up to 400 kHz fast mode.
func (d *Device) SetBusSpeed(hz uint32) error {
	if d.State() == StateBusy {
		return ErrBusy
	}
	wasEnabled := d.regs.CR1.HasBits(CR1_PE)
	d.regs.PeripheralDisable()
	err := d.configureTiming(hz)
	if wasEnabled {
		d.regs.PeripheralEnable()
	}
	return err
}

// BusSpeed returns the configured SCL frequency in Hz
func (d *Device) BusSpeed() uint32 {
	return d.speed
}

// configureTiming programs CCR and TRISE. PE must be clear.
func (d *Device) configureTiming(hz uint32) error {
	if hz == 0 || hz > FastSpeed {
		return ErrInvalidSpeed
	}
	mhz := d.pclk1 / 1000000
	if hz <= StandardSpeed {
		ccr := d.pclk1 / (2 * hz)
		if ccr < 4 {
			ccr = 4
		}
		if ccr > CCR_CCR_Msk {
			return ErrInvalidSpeed
		}
		d.regs.SetStandardMode()
		d.regs.SetClockControl(ccr)
		// 1000 ns maximum rise time
		d.regs.SetRiseTime(mhz + 1)
	} else {
		ccr := d.pclk1 / (3 * hz)
		if ccr < 1 {
			ccr = 1
		}
		d.regs.SetFastMode()
		d.regs.SetClockControl(ccr)
		// 300 ns maximum rise time
		d.regs.SetRiseTime(mhz*300/1000 + 1)
	}
	d.speed = hz
	return nil
}

// State returns the current transaction state
func (d *Device) State() State {
	return State(atomic.LoadUint32(&d.state))
}

// Err returns the error that put the device in StateError, if any
func (d *Device) Err() error {
	return codeError(atomic.LoadUint32(&d.errCode))
}

// Enabled reports whether EnableMaster has completed since the last InitMaster
func (d *Device) Enabled() bool {
	return d.enabled
}

// RecoveryErr returns the result of the bus recovery EnableMaster ran
func (d *Device) RecoveryErr() error {
	return d.recoveryErr
}

// Trace returns the device's diagnostic trace
func (d *Device) Trace() *Trace {
	return d.trace
}

// Registers returns the register block for low-level access
func (d *Device) Registers() *RegisterMap {
	return d.regs
}

// finish publishes the terminal state of the in-flight transfer. It is the
// last thing a handler does for a transaction. It returns false if the
// transfer had already been terminated, e.g. by the orchestrator's timeout.
func (d *Device) finish(s State, err error) bool {
	if State(atomic.LoadUint32(&d.state)) != StateBusy {
		return false
	}
	atomic.StoreUint32(&d.errCode, errorCode(err))
	return atomic.CompareAndSwapUint32(&d.state, uint32(StateBusy), uint32(s))
}

func (d *Device) haltOnFatal(err error) {
	core.DebugPrintln("[I2C] FATAL: " + err.Error())
	d.trace.Dump(core.Writer())
	panic(err)
}
