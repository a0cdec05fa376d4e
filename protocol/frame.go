package protocol

import "errors"

var (
	// ErrNeedMore means data holds the start of a frame but not all of it
	ErrNeedMore = errors.New("incomplete frame")
	// ErrBadFrame means data does not start with a valid frame
	ErrBadFrame = errors.New("malformed frame")
	// ErrFrameTooLong means a payload does not fit in FrameMax
	ErrFrameTooLong = errors.New("payload exceeds frame size")
)

// Frame is one decoded frame. An empty payload is an ACK/NAK.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// AppendFrame appends a complete frame carrying payload to dst
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > PayloadMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, byte(len(payload)+FrameMin), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), SyncByte), nil
}

// ScanFrame decodes the frame at the front of data and returns it with the
// number of bytes it occupied. Leading sync bytes are skipped.
// On ErrNeedMore, n is the count of sync bytes skipped so far.
// On ErrBadFrame, the caller should drop data up to the next SyncByte.
// The payload aliases data.
func ScanFrame(data []byte) (f Frame, n int, err error) {
	for n < len(data) && data[n] == SyncByte {
		n++
	}
	data = data[n:]
	if len(data) < FrameMin {
		return f, n, ErrNeedMore
	}
	size := int(data[framePosLen])
	if size < FrameMin || size > FrameMax {
		return f, n, ErrBadFrame
	}
	seq := data[framePosSeq]
	if seq&^SeqMask != SeqDest {
		return f, n, ErrBadFrame
	}
	if len(data) < size {
		return f, n, ErrNeedMore
	}
	if data[size-1] != SyncByte {
		return f, n, ErrBadFrame
	}
	crc := uint16(data[size-3])<<8 | uint16(data[size-2])
	if crc != CRC16(data[:size-FrameTrailerSize]) {
		return f, n, ErrBadFrame
	}
	f.Seq = seq
	f.Payload = data[FrameHeaderSize : size-FrameTrailerSize]
	return f, n + size, nil
}

// Resync returns how many bytes to drop from data to reach the byte after
// the next SyncByte, or len(data) if there is none.
func Resync(data []byte) int {
	for i, b := range data {
		if b == SyncByte {
			return i + 1
		}
	}
	return len(data)
}
