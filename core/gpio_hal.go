package core

// GPIOPort identifies a GPIO port (bank) on the target, e.g. GPIOB.
type GPIOPort uint8

// GPIOPin identifies a pin number within a GPIOPort
type GPIOPin uint8

// PinMode selects the electrical configuration of a pin
type PinMode uint8

const (
	PinInputFloating PinMode = iota
	PinInputPullUp
	PinOutputPushPull
	PinOutputOpenDrain    // GPIO-controlled open drain, used for bit-banging
	PinAltOutputOpenDrain // peripheral-controlled open drain (I2C function)
)

// GPIODriver is the digital pin capability core code consumes.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// SetPinMode configures a pin
	SetPinMode(port GPIOPort, pin GPIOPin, mode PinMode) error

	// WritePin drives the pin high (true) or low (false). For open-drain
	// modes high means released.
	WritePin(port GPIOPort, pin GPIOPin, level bool)

	// ReadPin samples the current electrical level of the pin
	ReadPin(port GPIOPort, pin GPIOPin) bool
}
