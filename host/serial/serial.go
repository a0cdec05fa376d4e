// Package serial opens the host side of the firmware's console link.
package serial

import (
	"errors"
	"io"
	"time"
)

// Port is a serial link to the board
type Port interface {
	io.ReadWriteCloser

	// Flush discards anything queued in either direction
	Flush() error
}

// Config selects and parameterizes the port
type Config struct {
	// Device path, e.g. "/dev/ttyUSB0" or "COM3"
	Device string

	// Baud must match the firmware UART setting
	Baud int

	// ReadTimeout bounds each Read; zero blocks
	ReadTimeout time.Duration
}

// DefaultBaud is the firmware console UART rate
const DefaultBaud = 115200

var (
	ErrNoDevice = errors.New("serial: no device given")
	ErrBadBaud  = errors.New("serial: baud must be positive")
)

// DefaultConfig returns a config for device at the console's default rate
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Validate reports the first unusable setting
func (c *Config) Validate() error {
	if c.Device == "" {
		return ErrNoDevice
	}
	if c.Baud <= 0 {
		return ErrBadBaud
	}
	return nil
}
