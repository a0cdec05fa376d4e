package i2c

import "i2cmaster/core"

// RegisterMap is the memory layout of one STM32F1 I2C controller. On TinyGo
// it is overlaid on the peripheral base address; on regular Go it is plain
// memory that a hardware model can hook.
type RegisterMap struct {
	CR1   Register
	CR2   Register
	OAR1  Register
	OAR2  Register
	DR    Register
	SR1   Register
	SR2   Register
	CCR   Register
	TRISE Register
}

// CR1 bits
const (
	CR1_PE    = 1 << 0
	CR1_START = 1 << 8
	CR1_STOP  = 1 << 9
	CR1_ACK   = 1 << 10
	CR1_POS   = 1 << 11
	CR1_SWRST = 1 << 15
)

// CR2 bits
const (
	CR2_FREQ_Msk = 0x3F
	CR2_FREQ_Pos = 0
	CR2_ITERREN  = 1 << 8
	CR2_ITEVTEN  = 1 << 9
	CR2_ITBUFEN  = 1 << 10
)

// SR1 bits
const (
	SR1_SB      = 1 << 0
	SR1_ADDR    = 1 << 1
	SR1_BTF     = 1 << 2
	SR1_STOPF   = 1 << 4
	SR1_RXNE    = 1 << 6
	SR1_TXE     = 1 << 7
	SR1_BERR    = 1 << 8
	SR1_ARLO    = 1 << 9
	SR1_AF      = 1 << 10
	SR1_OVR     = 1 << 11
	SR1_PECERR  = 1 << 12
	SR1_TIMEOUT = 1 << 14

	// rc_w0 error flags, cleared by writing zero
	SR1_ErrorMsk = SR1_BERR | SR1_ARLO | SR1_AF | SR1_OVR | SR1_PECERR | SR1_TIMEOUT
)

// SR2 bits
const (
	SR2_MSL  = 1 << 0
	SR2_BUSY = 1 << 1
	SR2_TRA  = 1 << 2
)

// CCR bits
const (
	CCR_CCR_Msk = 0xFFF
	CCR_CCR_Pos = 0
	CCR_DUTY    = 1 << 14
	CCR_FS      = 1 << 15
)

// TRISE field
const (
	TRISE_Msk = 0x3F
	TRISE_Pos = 0
)

// SetBits sets bits with interrupts masked so the read-modify-write cannot
// interleave with the bus interrupt.
func (r *Register) SetBits(bits uint32) {
	state := core.DisableInterrupts()
	r.Set(r.Get() | bits)
	core.RestoreInterrupts(state)
}

// ClearBits clears bits with interrupts masked
func (r *Register) ClearBits(bits uint32) {
	state := core.DisableInterrupts()
	r.Set(r.Get() &^ bits)
	core.RestoreInterrupts(state)
}

// HasBits reports whether any of bits is set
func (r *Register) HasBits(bits uint32) bool {
	return r.Get()&bits != 0
}

// ReplaceBits replaces the field (mask << pos) with value
func (r *Register) ReplaceBits(value, mask uint32, pos uint8) {
	state := core.DisableInterrupts()
	r.Set(r.Get()&^(mask<<pos) | (value&mask)<<pos)
	core.RestoreInterrupts(state)
}
