package i2c

import "tinygo.org/x/drivers"

var _ drivers.I2C = (*Device)(nil)

// Tx writes w then reads into r in a single transaction with a repeated
// start in between. Either buffer may be empty, but not both.
func (d *Device) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return ErrInvalidAddress
	}
	var msgs [2]Message
	n := 0
	if len(w) > 0 {
		msgs[n] = Message{Addr: uint8(addr), Data: w}
		n++
	}
	if len(r) > 0 {
		msgs[n] = Message{Addr: uint8(addr), Flags: MsgRead, Data: r}
		n++
	}
	_, err := d.Transfer(msgs[:n])
	return err
}

// ReadRegister reads len(buf) bytes starting at register reg
func (d *Device) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return d.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at register reg
func (d *Device) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	data := make([]byte, len(buf)+1)
	data[0] = reg
	copy(data[1:], buf)
	return d.Tx(uint16(addr), data, nil)
}
