package protocol

import (
	"bytes"
	"sync/atomic"
)

// CommandHandler runs one decoded command. It must consume its arguments
// from the front of *args.
type CommandHandler func(cmdID uint16, args *[]byte) error

// Transport is the firmware end of the link. It validates incoming
// frames, acknowledges every frame with the next expected sequence,
// dispatches in-sequence commands and frames outgoing responses.
type Transport struct {
	synced  uint32 // atomic bool
	nextSeq uint32 // atomic uint8

	output  OutputBuffer
	handler CommandHandler

	onReset func()
	onFlush func()

	lastErr error
}

// NewTransport returns a synchronized transport expecting SeqDest
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		synced:  1,
		nextSeq: SeqDest,
		output:  output,
		handler: handler,
	}
}

// Receive consumes every complete frame in input and leaves a trailing
// partial frame in place.
func (t *Transport) Receive(input InputBuffer) {
	data := input.Data()
	for len(data) > 0 {
		if atomic.LoadUint32(&t.synced) == 0 {
			i := bytes.IndexByte(data, SyncByte)
			if i < 0 {
				data = nil
				break
			}
			data = data[i+1:]
			atomic.StoreUint32(&t.synced, 1)
			t.sendAck()
			continue
		}

		f, n, err := ScanFrame(data)
		if err == ErrNeedMore {
			data = data[n:]
			break
		}
		if err != nil {
			atomic.StoreUint32(&t.synced, 0)
			continue
		}
		data = data[n:]
		t.handleFrame(f)
	}
	input.Pop(input.Available() - len(data))
}

func (t *Transport) handleFrame(f Frame) {
	expected := uint8(atomic.LoadUint32(&t.nextSeq))
	if f.Seq == SeqDest && expected != SeqDest {
		// host restarted its sequence
		expected = SeqDest
		atomic.StoreUint32(&t.nextSeq, SeqDest)
		if t.onReset != nil {
			t.onReset()
		}
	}
	if f.Seq == expected {
		atomic.StoreUint32(&t.nextSeq, uint32(NextSeq(expected)))
		t.lastErr = t.dispatch(f.Payload)
	}
	// an out of sequence frame is answered with the expected sequence,
	// which the host reads as a NAK
	t.sendAck()
}

// dispatch runs every command packed in payload. A panicking handler
// desynchronizes the link instead of taking the firmware down.
func (t *Transport) dispatch(payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			atomic.StoreUint32(&t.synced, 0)
		}
	}()
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			atomic.StoreUint32(&t.synced, 0)
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(id), &payload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) sendAck() {
	t.EncodeFrame(nil)
	if t.onFlush != nil {
		t.onFlush()
	}
}

// EncodeFrame writes one frame whose payload is produced by body, stamped
// with the current sequence. A nil body produces an ACK.
func (t *Transport) EncodeFrame(body func(output OutputBuffer)) {
	start := t.output.CurPosition()
	t.output.Output([]byte{0, uint8(atomic.LoadUint32(&t.nextSeq))})
	if body != nil {
		body(t.output)
	}
	size := len(t.output.DataSince(start)) + FrameTrailerSize
	t.output.Update(start, uint8(size))
	crc := CRC16(t.output.DataSince(start))
	t.output.Output([]byte{byte(crc >> 8), byte(crc), SyncByte})
}

// SendCommand frames a response or command with its VLQ encoded arguments
func (t *Transport) SendCommand(cmdID uint16, args func(output OutputBuffer)) {
	t.EncodeFrame(func(output OutputBuffer) {
		EncodeVLQUint(output, uint32(cmdID))
		if args != nil {
			args(output)
		}
	})
}

// Reset returns to the synchronized power-on state
func (t *Transport) Reset() {
	atomic.StoreUint32(&t.synced, 1)
	atomic.StoreUint32(&t.nextSeq, SeqDest)
	if t.onReset != nil {
		t.onReset()
	}
}

// SetResetCallback registers a function run when the host restarts its
// sequence or Reset is called
func (t *Transport) SetResetCallback(fn func()) {
	t.onReset = fn
}

// SetFlushCallback registers a function run right after every ACK is
// queued
func (t *Transport) SetFlushCallback(fn func()) {
	t.onFlush = fn
}

// Synchronized reports whether the transport is locked onto frame
// boundaries
func (t *Transport) Synchronized() bool {
	return atomic.LoadUint32(&t.synced) != 0
}

// LastError returns the error of the most recently dispatched frame
func (t *Transport) LastError() error {
	return t.lastErr
}
