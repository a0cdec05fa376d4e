// Package console exposes an I2C master over the framed serial link.
//
// Command IDs are assigned in registration order and are fixed, so the
// host tool can use the constants below without fetching the dictionary.
package console

import (
	"errors"

	"i2cmaster/core"
	"i2cmaster/i2c"
	"i2cmaster/protocol"
)

const (
	IDIdentifyResponse uint16 = iota
	IDIdentify
	IDTransfer
	IDTransferResponse
	IDBusReset
	IDBusResetResponse
	IDTrace
	IDTraceEntry
	IDTraceEnd
)

// FlagRecover asks for a bus recovery before the transfer
const FlagRecover = 1 << 0

// MaxReadLen and MaxWriteLen keep a transfer and its response inside
// one frame
const (
	MaxReadLen  = 48
	MaxWriteLen = 48
)

// TracePageMax is the most trace entries one i2c_trace request returns
const TracePageMax = 16

// Status codes carried by the *_response messages
const (
	StatusOK int32 = -iota
	StatusNack
	StatusBusError
	StatusArbitrationLost
	StatusOverrun
	StatusTimeout
	StatusBusHang
	StatusInternal
	StatusInvalidArgument
	StatusBusy
	StatusNotEnabled
	StatusFailed
)

var statusErrors = []error{
	nil,
	i2c.ErrNack,
	i2c.ErrBusError,
	i2c.ErrArbitrationLost,
	i2c.ErrOverrun,
	i2c.ErrTimeout,
	i2c.ErrBusHang,
	i2c.ErrInternal,
	ErrInvalidArgument,
	i2c.ErrBusy,
	i2c.ErrNotEnabled,
}

var (
	ErrInvalidArgument = errors.New("console: invalid argument")
	ErrFailed          = errors.New("console: request failed")
)

// Status maps a driver error to its wire status
func Status(err error) int32 {
	if err == nil {
		return StatusOK
	}
	switch err {
	case i2c.ErrNoMessages, i2c.ErrEmptyMessage, i2c.ErrInvalidAddress:
		return StatusInvalidArgument
	}
	for i, e := range statusErrors {
		if e == err {
			return -int32(i)
		}
	}
	return StatusFailed
}

// StatusError is the inverse of Status
func StatusError(status int32) error {
	i := -int(status)
	if i < 0 || i >= len(statusErrors) {
		return ErrFailed
	}
	return statusErrors[i]
}

// Bus is the part of *i2c.Device the console drives
type Bus interface {
	Transfer(msgs []i2c.Message) (int, error)
	ResetBus() error
	EnableMaster(flags i2c.MasterFlags) error
	Trace() *i2c.Trace
}

// Sender frames one outgoing message
type Sender interface {
	SendCommand(cmdID uint16, args func(output protocol.OutputBuffer))
}

// Console binds a bus to a command registry
type Console struct {
	bus      Bus
	flags    i2c.MasterFlags
	out      Sender
	registry *core.CommandRegistry
	readBuf  [MaxReadLen]byte
}

// New registers the console commands on a fresh registry. flags are the
// ones bus was enabled with; they are reapplied after a bus reset.
func New(bus Bus, flags i2c.MasterFlags, out Sender) *Console {
	c := &Console{
		bus:      bus,
		flags:    flags,
		out:      out,
		registry: core.NewCommandRegistry(),
	}
	r := c.registry
	r.RegisterResponse("identify_response", "offset=%u data=%*s")
	r.Register("identify", "offset=%u count=%c", c.handleIdentify)
	r.Register("i2c_transfer", "addr=%c flags=%c data=%*s read_len=%c", c.handleTransfer)
	r.RegisterResponse("i2c_transfer_response", "status=%i data=%*s")
	r.Register("i2c_bus_reset", "", c.handleBusReset)
	r.RegisterResponse("i2c_bus_reset_response", "status=%i")
	r.Register("i2c_trace", "offset=%u count=%c", c.handleTrace)
	r.RegisterResponse("i2c_trace_entry", "event=%c sr1=%u sr2=%u")
	r.RegisterResponse("i2c_trace_end", "total=%u")
	return c
}

// SetSender replaces the response sink. The firmware transport needs the
// console's handler to exist first, so it is usually attached here.
func (c *Console) SetSender(out Sender) {
	c.out = out
}

// Registry returns the command dictionary
func (c *Console) Registry() *core.CommandRegistry {
	return c.registry
}

// Handle is a protocol.CommandHandler
func (c *Console) Handle(cmdID uint16, args *[]byte) error {
	return c.registry.Dispatch(cmdID, args)
}

func (c *Console) handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	dict := c.registry.GetDictionary()
	var chunk []byte
	if int(offset) < len(dict) {
		end := int(offset) + int(uint8(count))
		if end > len(dict) {
			end = len(dict)
		}
		chunk = []byte(dict[offset:end])
	}
	c.out.SendCommand(IDIdentifyResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

// handleTransfer runs an optional write followed by an optional read as
// one transaction
func (c *Console) handleTransfer(data *[]byte) error {
	addr, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	flags, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	wdata, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}
	readLen, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	var rbuf []byte
	status := c.transfer(addr, flags, wdata, readLen, &rbuf)
	c.out.SendCommand(IDTransferResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQInt(output, status)
		protocol.EncodeVLQBytes(output, rbuf)
	})
	return nil
}

func (c *Console) transfer(addr, flags uint32, wdata []byte, readLen uint32, rbuf *[]byte) int32 {
	if addr > 0x7F || readLen > MaxReadLen || len(wdata) > MaxWriteLen ||
		(len(wdata) == 0 && readLen == 0) {
		return StatusInvalidArgument
	}
	if flags&FlagRecover != 0 {
		if err := c.resetBus(); err != nil {
			return Status(err)
		}
	}

	msgs := make([]i2c.Message, 0, 2)
	if len(wdata) > 0 {
		msgs = append(msgs, i2c.Message{Addr: uint8(addr), Data: wdata})
	}
	if readLen > 0 {
		msgs = append(msgs, i2c.Message{Addr: uint8(addr), Flags: i2c.MsgRead, Data: c.readBuf[:readLen]})
	}
	if _, err := c.bus.Transfer(msgs); err != nil {
		return Status(err)
	}
	if readLen > 0 {
		*rbuf = c.readBuf[:readLen]
	}
	return StatusOK
}

// resetBus recovers the bus and hands the pins back to the controller
func (c *Console) resetBus() error {
	err := c.bus.ResetBus()
	if eerr := c.bus.EnableMaster(c.flags); err == nil {
		err = eerr
	}
	return err
}

func (c *Console) handleBusReset(data *[]byte) error {
	status := Status(c.resetBus())
	c.out.SendCommand(IDBusResetResponse, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQInt(output, status)
	})
	return nil
}

// handleTrace sends one page of the last transaction's trace, one entry
// per frame, then the total entry count. Pages are capped at TracePageMax
// so a page and its ACK fit the output buffer.
func (c *Console) handleTrace(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > TracePageMax {
		count = TracePageMax
	}

	records := c.bus.Trace().Records()
	start := min(int(offset), len(records))
	end := min(start+int(count), len(records))
	for _, rec := range records[start:end] {
		c.out.SendCommand(IDTraceEntry, func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(rec.Event))
			protocol.EncodeVLQUint(output, rec.SR1)
			protocol.EncodeVLQUint(output, rec.SR2)
		})
	}
	c.out.SendCommand(IDTraceEnd, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(len(records)))
	})
	return nil
}
