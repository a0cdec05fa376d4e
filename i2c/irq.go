package i2c

import "sync/atomic"

// startSpinLimit bounds the SR1.SB poll after a repeated start request
const startSpinLimit = 100000

// HandleEvent is the body of the controller's event interrupt. It runs to
// completion without blocking. Each status condition present in the
// snapshot is handled at most once, in protocol order, and the snapshot is
// discarded after a handled condition so the rest of the invocation only
// sees what the hardware reports afresh on the next interrupt.
func (d *Device) HandleEvent() {
	sr1 := d.regs.SR1.Get()
	sr2 := d.regs.SR2.Get()

	if State(atomic.LoadUint32(&d.state)) != StateBusy {
		d.trace.Record(EventSpurious, sr1, sr2)
		d.regs.DisableIRQ(IRQEvent | IRQBuffer)
		return
	}
	d.trace.Record(EventIRQEntry, sr1, sr2)

	msg := &d.msgs[d.cur]
	read := msg.IsRead()

	// EV5: start condition sent
	if sr1&SR1_SB != 0 {
		msg.Xferred = 0
		d.regs.EnableIRQ(IRQBuffer)
		if read {
			d.regs.EnableACK()
		}
		d.regs.SendSlaveAddr(msg.Addr, read)
		sr1, sr2 = 0, 0
	}

	// EV6: address sent
	if sr1&SR1_ADDR != 0 {
		if read {
			// EV6_1: a single byte must be NACKed and the STOP or RESTART
			// programmed before it is clocked in, or it is corrupted.
			if len(msg.Data) == 1 {
				d.regs.DisableACK()
				d.msgsLeft--
				if d.msgsLeft > 0 {
					d.regs.StartCondition()
					d.trace.Record(EventRxAddrStart, 0, 0)
				} else {
					d.regs.StopCondition()
					d.trace.Record(EventRxAddrStop, 0, 0)
				}
			}
		} else {
			// prime the shift register
			d.queueByte(msg)
		}
		sr1, sr2 = 0, 0
	}

	// EV8: data register empty, previous byte still shifting out
	if sr1&SR1_TXE != 0 && sr1&SR1_BTF == 0 {
		d.trace.Record(EventTxeOnly, 0, 0)
		if d.msgsLeft == 0 || read || msg.Xferred >= len(msg.Data) {
			d.fatal(sr1, sr2)
			return
		}
		d.queueByte(msg)
		sr1, sr2 = 0, 0
	}

	// EV8_2: last queued byte shifted out
	if sr1&SR1_TXE != 0 && sr1&SR1_BTF != 0 {
		d.trace.Record(EventTxeBtf, 0, 0)
		switch {
		case read:
			d.fatal(sr1, sr2)
			return
		case msg.Xferred < len(msg.Data):
			// the shift register drained before DR was refilled
			d.queueByte(msg)
		case d.msgsLeft > 0:
			if d.cur+1 >= len(d.msgs) {
				d.fatal(sr1, sr2)
				return
			}
			// Event interrupts must stay enabled or SB never interrupts,
			// but BTF keeps interrupting until the START is on the wire.
			d.regs.StartCondition()
			if !d.waitStart() {
				d.abortStart()
				return
			}
			d.cur++
			d.trace.Record(EventRestartSent, 0, 0)
		default:
			d.regs.StopCondition()
			// BTF stays set until the STOP completes
			d.regs.DisableIRQ(IRQEvent)
			d.trace.Record(EventStopSent, 0, 0)
			d.finish(StateDone, nil)
			return
		}
		sr1, sr2 = 0, 0
	}

	// EV7: byte received
	if sr1&SR1_RXNE != 0 {
		d.trace.Record(EventRxne, 0, 0)
		if !read || msg.Xferred >= len(msg.Data) {
			d.fatal(sr1, sr2)
			return
		}
		msg.Data[msg.Xferred] = d.regs.ReadData()
		msg.Xferred++

		n := len(msg.Data)
		switch msg.Xferred {
		case n - 1:
			// EV7_1: NACK and STOP or RESTART before the last byte is
			// clocked in, or the shift register corrupts it.
			d.regs.DisableACK()
			// msgsLeft still counts this message. Testing for more than
			// two would STOP ahead of a single following message and
			// leave it waiting for an SB that never comes.
			if d.msgsLeft > 1 {
				d.regs.StartCondition()
				d.trace.Record(EventRxStartSent, 0, 0)
			} else {
				d.regs.StopCondition()
				d.trace.Record(EventRxStopSent, 0, 0)
			}
		case n:
			// single byte messages were counted at EV6_1
			if n > 1 {
				d.msgsLeft--
			}
			if d.msgsLeft == 0 {
				d.regs.DisableIRQ(IRQBuffer)
				d.trace.Record(EventRxDone, 0, 0)
				d.finish(StateDone, nil)
				return
			}
			d.cur++
		}
	}
}

// HandleError is the body of the controller's error interrupt. It latches
// the first bus error of the transfer, stops the bus and ends the transfer
// in StateError.
func (d *Device) HandleError() {
	sr1 := d.regs.SR1.Get()
	sr2 := d.regs.SR2.Get()
	d.trace.Record(EventErrorIRQ, sr1, sr2)

	err := statusError(sr1)
	if err == nil {
		return
	}
	d.regs.SR1.ClearBits(SR1_ErrorMsk)

	// after arbitration loss the controller is already a slave
	if err != ErrArbitrationLost {
		d.regs.StopCondition()
	}
	d.regs.DisableIRQ(IRQEvent | IRQBuffer | IRQError)
	d.finish(StateError, err)
}

// queueByte writes the next byte of a write message. Once the last byte is
// queued the message counts as complete; BTF then marks the end of its
// transmission.
func (d *Device) queueByte(msg *Message) {
	d.regs.WriteData(msg.Data[msg.Xferred])
	msg.Xferred++
	if msg.Xferred == len(msg.Data) {
		d.regs.DisableIRQ(IRQBuffer)
		d.msgsLeft--
	}
}

func (d *Device) waitStart() bool {
	for i := 0; i < startSpinLimit; i++ {
		if d.regs.SR1.HasBits(SR1_SB) {
			return true
		}
	}
	return false
}

func (d *Device) abortStart() {
	d.trace.Record(EventTimeout, 0, 0)
	d.regs.DisableIRQ(IRQEvent | IRQBuffer | IRQError)
	d.regs.StopCondition()
	d.finish(StateError, ErrBusHang)
}

// fatal latches an internal inconsistency. It does not try to recover.
func (d *Device) fatal(sr1, sr2 uint32) {
	d.trace.Record(EventFatal, sr1, sr2)
	d.regs.DisableIRQ(IRQEvent | IRQBuffer | IRQError)
	if d.finish(StateError, ErrInternal) {
		d.onFatal(ErrInternal)
	}
}
