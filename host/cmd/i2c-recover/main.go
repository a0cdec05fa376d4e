// Command i2c-recover frees a wedged I2C bus on a Linux board by clocking
// SCL through its GPIO pins until every target releases SDA.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"i2cmaster/config"
	"i2cmaster/i2c"
	"i2cmaster/i2c/periphbus"
)

var (
	configPath = flag.String("config", "", "JSON bus configuration")
	sclName    = flag.String("scl", "", "SCL pin name (overrides config)")
	sdaName    = flag.String("sda", "", "SDA pin name (overrides config)")
	timeout    = flag.Duration("timeout", 0, "Give up after this long (overrides config)")
)

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *sclName != "" {
		cfg.Recover.SCL = *sclName
	}
	if *sdaName != "" {
		cfg.Recover.SDA = *sdaName
	}
	limit := cfg.RecoveryTimeout()
	if *timeout > 0 {
		limit = *timeout
	}

	if _, err := host.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: periph init: %v\n", err)
		os.Exit(1)
	}

	scl, sda, err := lookupPins(cfg.Recover)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recovering bus on SCL=%s SDA=%s (timeout %v)...\n", scl, sda, limit)
	if err := recoverBus(periphbus.NewGPIO(scl, sda), limit); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Bus released")
}

func lookupPins(rc config.RecoverConfig) (scl, sda gpio.PinIO, err error) {
	if scl = gpioreg.ByName(rc.SCL); scl == nil {
		return nil, nil, fmt.Errorf("no pin named %q", rc.SCL)
	}
	if sda = gpioreg.ByName(rc.SDA); sda == nil {
		return nil, nil, fmt.Errorf("no pin named %q", rc.SDA)
	}
	return scl, sda, nil
}

func recoverBus(g *periphbus.GPIO, limit time.Duration) error {
	if err := i2c.RecoverBus(g, 0, periphbus.PinSCL, periphbus.PinSDA, nil, limit); err != nil {
		return err
	}
	if err := g.Err(); err != nil {
		return fmt.Errorf("pin write: %w", err)
	}
	return nil
}
