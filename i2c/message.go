package i2c

// MsgFlags modify a Message
type MsgFlags uint8

const (
	// MsgRead makes the master a receiver for this message
	MsgRead MsgFlags = 1 << 0
)

// Message is one directive within a transaction. Consecutive messages are
// chained with a repeated start. The driver only updates Xferred and, for
// reads, the contents of Data.
type Message struct {
	Addr    uint8 // 7-bit target address
	Flags   MsgFlags
	Data    []byte
	Xferred int
}

// IsRead reports whether the message is a master-receiver message
func (m *Message) IsRead() bool {
	return m.Flags&MsgRead != 0
}

// addressByte is the first byte on the wire: address and direction bit
func addressByte(addr uint8, read bool) uint8 {
	b := addr << 1
	if read {
		b |= 1
	}
	return b
}

func validateMessages(msgs []Message) error {
	if len(msgs) == 0 {
		return ErrNoMessages
	}
	for i := range msgs {
		if msgs[i].Addr > 0x7F {
			return ErrInvalidAddress
		}
		if len(msgs[i].Data) == 0 {
			return ErrEmptyMessage
		}
	}
	return nil
}
