package console

import (
	"fmt"
	"time"

	"tinygo.org/x/drivers"

	"i2cmaster/i2c"
	"i2cmaster/protocol"
)

// Link is the host end of the framed serial link
type Link interface {
	Send(cmdID uint16, args func(output protocol.OutputBuffer)) error
	Receive(timeout time.Duration) (protocol.Response, error)
	ReceiveID(id uint16, timeout time.Duration) (protocol.Response, error)
}

// DefaultReplyTimeout covers a transfer timeout plus a bus recovery on
// the board
const DefaultReplyTimeout = time.Second

// Remote runs I2C transactions on a board's bus from the host
type Remote struct {
	link    Link
	timeout time.Duration
}

var _ drivers.I2C = (*Remote)(nil)

// NewRemote wraps link. A zero timeout selects DefaultReplyTimeout.
func NewRemote(link Link, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &Remote{link: link, timeout: timeout}
}

// Tx writes w then reads into r in one transaction on the board
func (r *Remote) Tx(addr uint16, w, rbuf []byte) error {
	return r.TxFlags(addr, 0, w, rbuf)
}

// TxFlags is Tx with console flags such as FlagRecover
func (r *Remote) TxFlags(addr uint16, flags uint8, w, rbuf []byte) error {
	if addr > 0x7F {
		return i2c.ErrInvalidAddress
	}
	if len(w) > MaxWriteLen || len(rbuf) > MaxReadLen {
		return fmt.Errorf("transfer of %d/%d bytes: %w", len(w), len(rbuf), ErrInvalidArgument)
	}
	err := r.link.Send(IDTransfer, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(addr))
		protocol.EncodeVLQUint(output, uint32(flags))
		protocol.EncodeVLQBytes(output, w)
		protocol.EncodeVLQUint(output, uint32(len(rbuf)))
	})
	if err != nil {
		return err
	}

	resp, err := r.link.ReceiveID(IDTransferResponse, r.timeout)
	if err != nil {
		return err
	}
	status, err := protocol.DecodeVLQInt(&resp.Args)
	if err != nil {
		return err
	}
	data, err := protocol.DecodeVLQBytes(&resp.Args)
	if err != nil {
		return err
	}
	if status != StatusOK {
		return fmt.Errorf("addr 0x%02x: %w", addr, StatusError(status))
	}
	if len(data) != len(rbuf) {
		return fmt.Errorf("read %d bytes, want %d: %w", len(data), len(rbuf), ErrFailed)
	}
	copy(rbuf, data)
	return nil
}

func (r *Remote) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return r.Tx(uint16(addr), []byte{reg}, buf)
}

func (r *Remote) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return r.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}

// ResetBus runs the bus recovery on the board
func (r *Remote) ResetBus() error {
	if err := r.link.Send(IDBusReset, nil); err != nil {
		return err
	}
	resp, err := r.link.ReceiveID(IDBusResetResponse, r.timeout)
	if err != nil {
		return err
	}
	status, err := protocol.DecodeVLQInt(&resp.Args)
	if err != nil {
		return err
	}
	return StatusError(status)
}

// Trace fetches the trace of the board's last transaction, a page at a time
func (r *Remote) Trace() ([]i2c.TraceRecord, error) {
	var records []i2c.TraceRecord
	for {
		page, total, err := r.tracePage(uint32(len(records)))
		if err != nil {
			return records, err
		}
		records = append(records, page...)
		if len(records) >= total {
			return records, nil
		}
		if len(page) == 0 {
			return records, fmt.Errorf("trace: got %d of %d entries", len(records), total)
		}
	}
}

func (r *Remote) tracePage(offset uint32) ([]i2c.TraceRecord, int, error) {
	err := r.link.Send(IDTrace, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, TracePageMax)
	})
	if err != nil {
		return nil, 0, err
	}
	var page []i2c.TraceRecord
	for {
		resp, err := r.link.Receive(r.timeout)
		if err != nil {
			return page, 0, err
		}
		switch resp.ID {
		case IDTraceEntry:
			ev, _ := protocol.DecodeVLQUint(&resp.Args)
			sr1, _ := protocol.DecodeVLQUint(&resp.Args)
			sr2, err := protocol.DecodeVLQUint(&resp.Args)
			if err != nil {
				return page, 0, err
			}
			page = append(page, i2c.TraceRecord{Event: i2c.TraceEvent(ev), SR1: sr1, SR2: sr2})
		case IDTraceEnd:
			total, err := protocol.DecodeVLQUint(&resp.Args)
			if err != nil {
				return page, 0, err
			}
			return page, int(total), nil
		}
	}
}

// Identify reads the board's command dictionary
func (r *Remote) Identify() (string, error) {
	const chunk = 40
	var dict []byte
	for {
		offset := uint32(len(dict))
		err := r.link.Send(IDIdentify, func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, offset)
			protocol.EncodeVLQUint(output, chunk)
		})
		if err != nil {
			return "", err
		}
		resp, err := r.link.ReceiveID(IDIdentifyResponse, r.timeout)
		if err != nil {
			return "", err
		}
		got, _ := protocol.DecodeVLQUint(&resp.Args)
		data, err := protocol.DecodeVLQBytes(&resp.Args)
		if err != nil {
			return "", err
		}
		if got != offset {
			return "", fmt.Errorf("identify: offset %d, want %d", got, offset)
		}
		if len(data) == 0 {
			return string(dict), nil
		}
		dict = append(dict, data...)
	}
}
