//go:build stm32f103

package main

import (
	"device/stm32"
	"runtime/interrupt"

	"i2cmaster/core"
	"i2cmaster/i2c"
)

// bus1 is read from interrupt context, so it must be set before the
// lines are enabled
var bus1 *i2c.Device

var (
	i2c1Event = interrupt.New(stm32.IRQ_I2C1_EV, func(interrupt.Interrupt) {
		bus1.HandleEvent()
	})
	i2c1Error = interrupt.New(stm32.IRQ_I2C1_ER, func(interrupt.Interrupt) {
		bus1.HandleError()
	})
)

// NVICController maps core.IRQLine numbers to the NVIC lines created above
type NVICController struct {
	lines map[core.IRQLine]interrupt.Interrupt
}

func NewNVICController() *NVICController {
	return &NVICController{
		lines: map[core.IRQLine]interrupt.Interrupt{
			stm32.IRQ_I2C1_EV: i2c1Event,
			stm32.IRQ_I2C1_ER: i2c1Error,
		},
	}
}

func (c *NVICController) EnableLine(line core.IRQLine) {
	if intr, ok := c.lines[line]; ok {
		intr.Enable()
	}
}

func (c *NVICController) SetPriority(line core.IRQLine, level uint8) {
	if intr, ok := c.lines[line]; ok {
		intr.SetPriority(level)
	}
}
