//go:build stm32f103

package main

import (
	"device/stm32"

	"i2cmaster/core"
)

// APB1 peripherals are identified by their RCC enable bit
const (
	ClockI2C1 core.ClockID = 21
	ClockI2C2 core.ClockID = 22
)

// PCLK1 is the APB1 clock with the 72 MHz system clock
const PCLK1 = 36000000

// STM32F1ClockDriver gates and resets APB1 peripherals
type STM32F1ClockDriver struct{}

func (STM32F1ClockDriver) EnableClock(id core.ClockID) {
	stm32.RCC.APB1ENR.SetBits(1 << id)
}

func (STM32F1ClockDriver) ResetPeripheral(id core.ClockID) {
	stm32.RCC.APB1RSTR.SetBits(1 << id)
	stm32.RCC.APB1RSTR.ClearBits(1 << id)
}

// InitClock turns on the GPIO and alternate function blocks the bus needs
func InitClock() {
	stm32.RCC.APB2ENR.SetBits(stm32.RCC_APB2ENR_AFIOEN | stm32.RCC_APB2ENR_IOPAEN | stm32.RCC_APB2ENR_IOPBEN)
}
