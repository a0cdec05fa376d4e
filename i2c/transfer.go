package i2c

import (
	"runtime"
	"sync/atomic"
	"time"

	"i2cmaster/core"
)

// Transfer runs msgs as one transaction, chaining messages with repeated
// starts, and blocks until the interrupt handlers finish it or the device
// timeout expires. It returns the number of messages transferred.
//
// On a transfer error the device is left in StateError with Err set; the
// next Transfer re-arms it. On timeout the controller's interrupts are
// masked, a STOP is requested and ErrBusHang is returned.
func (d *Device) Transfer(msgs []Message) (int, error) {
	return d.TransferTimeout(msgs, d.timeout)
}

// TransferTimeout is Transfer with an explicit bound. A zero timeout waits
// forever.
func (d *Device) TransferTimeout(msgs []Message, timeout time.Duration) (int, error) {
	if err := validateMessages(msgs); err != nil {
		return 0, err
	}
	if !d.enabled {
		return 0, ErrNotEnabled
	}
	if d.State() == StateBusy {
		return 0, ErrBusy
	}

	d.msgs = msgs
	d.cur = 0
	d.msgsLeft = len(msgs)
	d.trace.Clear()
	atomic.StoreUint32(&d.errCode, 0)
	defer d.release()

	d.regs.EnableIRQ(IRQEvent | IRQError)

	deadline := core.Deadline(timeout)
	for d.regs.SR2.HasBits(SR2_BUSY) {
		if core.Expired(deadline) {
			core.DebugPrintln("[I2C] bus stayed busy, transfer not started")
			return 0, ErrBusHang
		}
		runtime.Gosched()
	}

	atomic.StoreUint32(&d.state, uint32(StateBusy))
	d.regs.StartCondition()

	for {
		switch d.State() {
		case StateDone:
			atomic.StoreUint32(&d.state, uint32(StateIdle))
			return len(msgs), nil
		case StateError:
			return 0, d.Err()
		}
		if core.Expired(deadline) && d.abort() {
			core.DebugPrintln("[I2C] transfer timeout after " + core.Itoa(d.trace.Len()) + " events")
			return 0, ErrBusHang
		}
		runtime.Gosched()
	}
}

// release drops the caller's message list so the interrupt context cannot
// reach it after Transfer returns.
func (d *Device) release() {
	d.msgs = nil
	d.cur = 0
	d.msgsLeft = 0
}

// abort terminates an in-flight transfer from the caller side. It returns
// false if a handler reached a terminal state first.
func (d *Device) abort() bool {
	mask := core.DisableInterrupts()
	ok := atomic.CompareAndSwapUint32(&d.state, uint32(StateBusy), uint32(StateError))
	if ok {
		atomic.StoreUint32(&d.errCode, errorCode(ErrBusHang))
		d.trace.Record(EventTimeout, 0, 0)
		// Interrupts are already masked here, so no SetBits.
		d.regs.CR2.Set(d.regs.CR2.Get() &^ (IRQEvent | IRQBuffer | IRQError))
		d.regs.CR1.Set(d.regs.CR1.Get() | CR1_STOP)
	}
	core.RestoreInterrupts(mask)
	return ok
}
