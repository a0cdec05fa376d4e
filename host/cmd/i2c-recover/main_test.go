package main

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"i2cmaster/config"
	"i2cmaster/i2c/periphbus"
)

func TestLookupPins(t *testing.T) {
	scl := &gpiotest.Pin{N: "TEST_SCL", Num: 901}
	sda := &gpiotest.Pin{N: "TEST_SDA", Num: 902}
	for _, p := range []*gpiotest.Pin{scl, sda} {
		if err := gpioreg.Register(p); err != nil {
			t.Fatal(err)
		}
	}
	defer gpioreg.Unregister("TEST_SCL")
	defer gpioreg.Unregister("TEST_SDA")

	gotSCL, gotSDA, err := lookupPins(config.RecoverConfig{SCL: "TEST_SCL", SDA: "TEST_SDA"})
	if err != nil {
		t.Fatalf("lookupPins: %v", err)
	}
	if gotSCL.Name() != "TEST_SCL" || gotSDA.Name() != "TEST_SDA" {
		t.Errorf("lookupPins = %s, %s", gotSCL, gotSDA)
	}
	if _, _, err := lookupPins(config.RecoverConfig{SCL: "TEST_SCL", SDA: "NOPE"}); err == nil {
		t.Error("unknown SDA accepted")
	}
}

func TestRecoverIdleBus(t *testing.T) {
	scl := &gpiotest.Pin{N: "SCL"}
	sda := &gpiotest.Pin{N: "SDA"}
	if err := recoverBus(periphbus.NewGPIO(scl, sda), 10*time.Millisecond); err != nil {
		t.Fatalf("recoverBus: %v", err)
	}
	if scl.L != gpio.High || sda.L != gpio.High {
		t.Errorf("lines left at SCL %s SDA %s", scl.L, sda.L)
	}
}
