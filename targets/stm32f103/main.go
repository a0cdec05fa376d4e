//go:build stm32f103

package main

import (
	"device/stm32"
	"errors"
	"machine"
	"time"

	"tinygo.org/x/drivers/adxl345"

	"i2cmaster/console"
	"i2cmaster/core"
	"i2cmaster/i2c"
	"i2cmaster/protocol"
)

// I2C1 on PB6 (SCL) / PB7 (SDA)
const (
	i2c1Base = 0x40005400
	sclPin   = 6
	sdaPin   = 7
)

var errInvalidPin = errors.New("invalid pin")

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
	transport    *protocol.Transport

	msgerrors uint32
)

func main() {
	InitClock()

	machine.Serial.Configure(machine.UARTConfig{BaudRate: 115200})
	machine.UART2.Configure(machine.UARTConfig{BaudRate: 115200})
	core.SetDebugWriter(func(s string) {
		machine.UART2.Write([]byte(s))
		machine.UART2.Write([]byte("\r\n"))
	})
	core.SetDebugEnabled(true)

	dev, err := i2c.NewDevice(i2c.Config{
		Regs:     i2c.RegistersAt(i2c1Base),
		Port:     PortB,
		SCL:      sclPin,
		SDA:      sdaPin,
		Clock:    ClockI2C1,
		EventIRQ: stm32.IRQ_I2C1_EV,
		ErrorIRQ: stm32.IRQ_I2C1_ER,
		PCLK1:    PCLK1,
		GPIO:     STM32F1GPIODriver{},
		Clocks:   STM32F1ClockDriver{},
		IRQ:      NewNVICController(),
	})
	if err != nil {
		core.DebugPrintln("[MAIN] i2c config: " + err.Error())
		for {
			time.Sleep(time.Second)
		}
	}
	bus1 = dev

	const flags = i2c.FastMode
	if err := dev.EnableMaster(flags); err != nil {
		core.DebugPrintln("[MAIN] enable master: " + err.Error())
	}
	checkAccelerometer(dev)

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	con := console.New(dev, flags, nil)
	transport = protocol.NewTransport(outputBuffer, con.Handle)
	con.SetSender(transport)
	transport.SetResetCallback(func() {
		inputBuffer.Reset()
		outputBuffer.Reset()
	})
	transport.SetFlushCallback(writeSerial)

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					msgerrors++
					inputBuffer.Reset()
					outputBuffer.Reset()
				}
			}()

			readSerial()
			if inputBuffer.Available() > 0 {
				transport.Receive(inputBuffer)
			}
			writeSerial()
		}()

		time.Sleep(10 * time.Microsecond)
	}
}

func readSerial() {
	for machine.Serial.Buffered() > 0 && inputBuffer.Free() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			msgerrors++
			return
		}
		inputBuffer.Write([]byte{b})
	}
}

func writeSerial() {
	result := outputBuffer.Result()
	if len(result) == 0 {
		return
	}
	machine.Serial.Write(result)
	outputBuffer.Reset()
}

// ADXL345 with SDO low, and the fixed content of its DEVID register
const (
	adxl345Addr  = 0x53
	adxl345DevID = 0xE5
)

// checkAccelerometer logs one ADXL345 sample so a wiring fault shows up
// on the debug UART at boot
func checkAccelerometer(bus *i2c.Device) {
	var id [1]byte
	if err := bus.ReadRegister(adxl345Addr, 0x00, id[:]); err != nil {
		core.DebugPrintln("[MAIN] adxl345 devid: " + err.Error())
		return
	}
	if id[0] != adxl345DevID {
		core.DebugPrintln("[MAIN] adxl345 devid " + core.Hex(uint32(id[0]), 2) + ", not an ADXL345")
		return
	}

	accel := adxl345.New(bus)
	accel.Configure()
	x, y, z := accel.ReadRawAcceleration()
	if err := bus.Err(); err != nil {
		core.DebugPrintln("[MAIN] adxl345 read: " + err.Error())
		return
	}
	core.DebugPrintln("[MAIN] adxl345 x=" + core.Itoa(int(x)) + " y=" + core.Itoa(int(y)) + " z=" + core.Itoa(int(z)))
}
