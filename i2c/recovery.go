package i2c

import (
	"time"

	"i2cmaster/core"
)

// recoveryDelay is the spacing between bit-banged edges, in microseconds
const recoveryDelay = 10

// RecoverBus clocks SCL until a target holding SDA low lets go, then puts a
// START followed by a STOP on the bus so every target resynchronizes.
// Both pins are left as GPIO open-drain outputs, released.
//
// Clock stretching is honored. If SCL stays low or SDA never releases
// before timeout, both lines are released and ErrBusHang is returned.
// A zero timeout waits forever.
func RecoverBus(gpio core.GPIODriver, port core.GPIOPort, scl, sda core.GPIOPin, delay core.DelayFunc, timeout time.Duration) error {
	if delay == nil {
		delay = core.DelayMicroseconds
	}

	gpio.WritePin(port, scl, true)
	gpio.WritePin(port, sda, true)
	if err := gpio.SetPinMode(port, scl, core.PinOutputOpenDrain); err != nil {
		return err
	}
	if err := gpio.SetPinMode(port, sda, core.PinOutputOpenDrain); err != nil {
		return err
	}

	deadline := core.Deadline(timeout)
	for !gpio.ReadPin(port, sda) {
		for !gpio.ReadPin(port, scl) {
			if core.Expired(deadline) {
				return ErrBusHang
			}
		}
		delay(recoveryDelay)

		gpio.WritePin(port, scl, false)
		delay(recoveryDelay)
		gpio.WritePin(port, scl, true)
		delay(recoveryDelay)

		if core.Expired(deadline) && !gpio.ReadPin(port, sda) {
			return ErrBusHang
		}
	}

	// START then STOP
	gpio.WritePin(port, sda, false)
	delay(recoveryDelay)
	gpio.WritePin(port, scl, false)
	delay(recoveryDelay)
	gpio.WritePin(port, scl, true)
	delay(recoveryDelay)
	gpio.WritePin(port, sda, true)
	return nil
}

// ResetBus runs RecoverBus on the device's pins. The pins are left in GPIO
// mode; EnableMaster hands them back to the controller.
func (d *Device) ResetBus() error {
	if d.State() == StateBusy {
		return ErrBusy
	}
	err := RecoverBus(d.gpio, d.port, d.scl, d.sda, d.delay, d.recoveryTimeout)
	if err != nil {
		core.DebugPrintln("[I2C] bus reset: " + err.Error())
	}
	return err
}
