//go:build stm32f103

package main

import (
	"device/stm32"

	"i2cmaster/core"
)

// GPIO ports as numbered by core.GPIOPort
const (
	PortA core.GPIOPort = iota
	PortB
	PortC
)

// STM32F1GPIODriver drives pins through the CRL/CRH/IDR/BSRR registers
type STM32F1GPIODriver struct{}

func (STM32F1GPIODriver) port(p core.GPIOPort) *stm32.GPIO_Type {
	switch p {
	case PortA:
		return stm32.GPIOA
	case PortB:
		return stm32.GPIOB
	default:
		return stm32.GPIOC
	}
}

// modeBits returns the 4-bit CNF:MODE field, outputs at 50 MHz
func modeBits(mode core.PinMode) uint32 {
	switch mode {
	case core.PinInputFloating:
		return 0x4
	case core.PinInputPullUp:
		return 0x8
	case core.PinOutputPushPull:
		return 0x3
	case core.PinOutputOpenDrain:
		return 0x7
	default:
		return 0xF
	}
}

func (d STM32F1GPIODriver) SetPinMode(port core.GPIOPort, pin core.GPIOPin, mode core.PinMode) error {
	if pin > 15 {
		return errInvalidPin
	}
	gpio := d.port(port)
	reg := &gpio.CRL
	shift := uint32(pin) * 4
	if pin >= 8 {
		reg = &gpio.CRH
		shift = uint32(pin-8) * 4
	}

	state := core.DisableInterrupts()
	reg.Set(reg.Get()&^(0xF<<shift) | modeBits(mode)<<shift)
	core.RestoreInterrupts(state)

	if mode == core.PinInputPullUp {
		gpio.BSRR.Set(1 << pin)
	}
	return nil
}

func (d STM32F1GPIODriver) WritePin(port core.GPIOPort, pin core.GPIOPin, level bool) {
	if level {
		d.port(port).BSRR.Set(1 << pin)
	} else {
		d.port(port).BSRR.Set(1 << (pin + 16))
	}
}

func (d STM32F1GPIODriver) ReadPin(port core.GPIOPort, pin core.GPIOPin) bool {
	return d.port(port).IDR.Get()&(1<<pin) != 0
}
