package core

// ClockID identifies a peripheral clock/reset line (an RCC enable bit on STM32)
type ClockID uint8

// ClockDriver is the clock and reset capability core code consumes.
type ClockDriver interface {
	// EnableClock gates the peripheral clock on
	EnableClock(id ClockID)

	// ResetPeripheral pulses the peripheral reset line
	ResetPeripheral(id ClockID)
}
