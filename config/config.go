// Package config loads the host tools' JSON configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"i2cmaster/i2c"
)

// BusConfig describes one I2C bus and how the host reaches it
type BusConfig struct {
	Serial  SerialConfig            `json:"serial"`
	Bus     MasterConfig            `json:"bus"`
	Recover RecoverConfig           `json:"recover"`
	Targets map[string]TargetConfig `json:"targets"`
}

// SerialConfig is the console link to the board
type SerialConfig struct {
	Device        string `json:"device"`
	Baud          int    `json:"baud"`
	ReadTimeoutMs int    `json:"read_timeout_ms"`
}

// MasterConfig mirrors the firmware master settings
type MasterConfig struct {
	SpeedHz           uint32 `json:"speed_hz"`
	TimeoutMs         int    `json:"timeout_ms"`
	RecoveryTimeoutMs int    `json:"recovery_timeout_ms"`
	TraceCapacity     int    `json:"trace_capacity"`
}

// RecoverConfig names the SCL/SDA lines for i2c-recover, using
// periph.io pin names such as "GPIO3"
type RecoverConfig struct {
	SCL string `json:"scl"`
	SDA string `json:"sda"`
}

// TargetConfig gives a name to a device on the bus
type TargetConfig struct {
	Addr        uint8  `json:"addr"`
	Description string `json:"description,omitempty"`
}

var ErrUnknownTarget = errors.New("config: unknown target")

// LoadConfig parses JSON configuration and fills in defaults
func LoadConfig(jsonData []byte) (*BusConfig, error) {
	var config BusConfig
	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}
	applyDefaults(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses a configuration file
func LoadFile(path string) (*BusConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return config, nil
}

func applyDefaults(config *BusConfig) {
	if config.Serial.Baud == 0 {
		config.Serial.Baud = 115200
	}
	if config.Serial.ReadTimeoutMs == 0 {
		config.Serial.ReadTimeoutMs = 100
	}

	if config.Bus.SpeedHz == 0 {
		config.Bus.SpeedHz = i2c.StandardSpeed
	}
	if config.Bus.TimeoutMs == 0 {
		config.Bus.TimeoutMs = int(i2c.DefaultTimeout / time.Millisecond)
	}
	if config.Bus.RecoveryTimeoutMs == 0 {
		config.Bus.RecoveryTimeoutMs = int(i2c.DefaultRecoveryTimeout / time.Millisecond)
	}
	if config.Bus.TraceCapacity == 0 {
		config.Bus.TraceCapacity = i2c.DefaultTraceCapacity
	}
}

// Validate checks ranges the firmware would reject
func (c *BusConfig) Validate() error {
	if c.Bus.SpeedHz > i2c.FastSpeed {
		return fmt.Errorf("bus.speed_hz %d: %w", c.Bus.SpeedHz, i2c.ErrInvalidSpeed)
	}
	if c.Bus.TimeoutMs < 0 || c.Bus.RecoveryTimeoutMs < 0 || c.Bus.TraceCapacity < 0 {
		return fmt.Errorf("bus: negative value: %w", i2c.ErrInvalidConfig)
	}
	for name, target := range c.Targets {
		if target.Addr > 0x7F {
			return fmt.Errorf("target %q addr 0x%x: %w", name, target.Addr, i2c.ErrInvalidAddress)
		}
	}
	return nil
}

// Flags returns the EnableMaster flags for the configured speed
func (c *BusConfig) Flags() i2c.MasterFlags {
	if c.Bus.SpeedHz > i2c.StandardSpeed {
		return i2c.FastMode
	}
	return 0
}

// Timeout is the per-transfer deadline
func (c *BusConfig) Timeout() time.Duration {
	return time.Duration(c.Bus.TimeoutMs) * time.Millisecond
}

// RecoveryTimeout bounds a bus recovery
func (c *BusConfig) RecoveryTimeout() time.Duration {
	return time.Duration(c.Bus.RecoveryTimeoutMs) * time.Millisecond
}

// ReadTimeout is the serial read timeout
func (c *BusConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Serial.ReadTimeoutMs) * time.Millisecond
}

// Target looks up a named target
func (c *BusConfig) Target(name string) (TargetConfig, error) {
	t, ok := c.Targets[name]
	if !ok {
		return TargetConfig{}, fmt.Errorf("%q: %w", name, ErrUnknownTarget)
	}
	return t, nil
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *BusConfig {
	config := &BusConfig{
		Serial: SerialConfig{Device: "/dev/ttyUSB0"},
		Recover: RecoverConfig{
			SCL: "GPIO3",
			SDA: "GPIO2",
		},
		Targets: map[string]TargetConfig{},
	}
	applyDefaults(config)
	return config
}
