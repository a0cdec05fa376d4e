package i2c

// Interrupt enable groups in CR2
const (
	IRQError  = CR2_ITERREN
	IRQEvent  = CR2_ITEVTEN
	IRQBuffer = CR2_ITBUFEN
)

// Direct register primitives. They do no state bookkeeping and are safe to
// call from interrupt context.

func (r *RegisterMap) PeripheralEnable() {
	r.CR1.SetBits(CR1_PE)
}

func (r *RegisterMap) PeripheralDisable() {
	r.CR1.ClearBits(CR1_PE)
}

// SetInputClock programs CR2.FREQ with the APB1 frequency in MHz, keeping
// the interrupt enable bits.
func (r *RegisterMap) SetInputClock(mhz uint32) {
	r.CR2.ReplaceBits(mhz, CR2_FREQ_Msk, CR2_FREQ_Pos)
}

// SetClockControl programs the CCR divider, keeping the mode bits
func (r *RegisterMap) SetClockControl(ccr uint32) {
	r.CCR.ReplaceBits(ccr, CCR_CCR_Msk, CCR_CCR_Pos)
}

func (r *RegisterMap) SetFastMode() {
	r.CCR.SetBits(CCR_FS)
}

func (r *RegisterMap) SetStandardMode() {
	r.CCR.ClearBits(CCR_FS | CCR_DUTY)
}

// SetRiseTime programs TRISE as the maximum rise time in input clock
// periods plus one.
func (r *RegisterMap) SetRiseTime(trise uint32) {
	r.TRISE.Set(trise & TRISE_Msk)
}

func (r *RegisterMap) StartCondition() {
	r.CR1.SetBits(CR1_START)
}

func (r *RegisterMap) StopCondition() {
	r.CR1.SetBits(CR1_STOP)
}

// SendSlaveAddr writes the 7-bit address with the direction bit
func (r *RegisterMap) SendSlaveAddr(addr uint8, read bool) {
	r.DR.Set(uint32(addressByte(addr, read)))
}

func (r *RegisterMap) EnableIRQ(irqs uint32) {
	r.CR2.SetBits(irqs)
}

func (r *RegisterMap) DisableIRQ(irqs uint32) {
	r.CR2.ClearBits(irqs)
}

func (r *RegisterMap) EnableACK() {
	r.CR1.SetBits(CR1_ACK)
}

func (r *RegisterMap) DisableACK() {
	r.CR1.ClearBits(CR1_ACK)
}

// WriteData loads the next byte to transmit
func (r *RegisterMap) WriteData(b byte) {
	r.DR.Set(uint32(b))
}

// ReadData takes the received byte
func (r *RegisterMap) ReadData() byte {
	return byte(r.DR.Get())
}
