// Package protocol implements the framed serial link between the I2C
// console firmware and host tools: VLQ encoded commands carried in
// length, sequence, payload, crc16, sync frames.
package protocol

// Version is reported by the console's identify response
const Version = "0.1.0"

// Frame layout
const (
	FrameHeaderSize  = 2 // length, sequence
	FrameTrailerSize = 3 // crc16 (big endian), sync
	FrameMin         = FrameHeaderSize + FrameTrailerSize
	FrameMax         = 64

	framePosLen = 0
	framePosSeq = 1

	// SyncByte terminates every frame
	SyncByte = 0x7E

	// SeqDest is carried in the high nibble of every sequence byte
	SeqDest = 0x10
	SeqMask = 0x0F

	// PayloadMax is the largest payload a frame can carry
	PayloadMax = FrameMax - FrameMin

	// MessageMax sizes scratch output buffers; several frames may be
	// queued in one before a flush.
	MessageMax = 512
)

// NextSeq returns the sequence that follows seq
func NextSeq(seq uint8) uint8 {
	return ((seq + 1) & SeqMask) | SeqDest
}
