package main

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"

	"i2cmaster/config"
)

func TestParseAddr(t *testing.T) {
	cfg, err := config.LoadConfig([]byte(`{"targets": {"eeprom": {"addr": 80}}}`))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		in      string
		want    uint16
		wantErr bool
	}{
		{"eeprom", 0x50, false},
		{"0x53", 0x53, false},
		{"104", 104, false},
		{"0x80", 0, true},
		{"rtc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAddr(cfg, tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseAddr(%q) = %#x, %v", tt.in, got, err)
		}
	}
}

func TestParseBytes(t *testing.T) {
	got, err := parseBytes([]string{"0x10", "255", "0b1"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x10, 0xFF, 0x01}, got); diff != "" {
		t.Errorf("parseBytes (-want +got):\n%s", diff)
	}
	if _, err := parseBytes([]string{"256"}); err == nil {
		t.Error("parseBytes(256) succeeded")
	}
	if s := formatBytes([]byte{0x0A, 0xFF}); s != "0a ff" {
		t.Errorf("formatBytes = %q", s)
	}
}

// scanBus acknowledges only the listed addresses
type scanBus map[uint16]bool

func (b scanBus) String() string                    { return "scan" }
func (b scanBus) SetSpeed(f physic.Frequency) error { return nil }
func (b scanBus) Tx(addr uint16, w, r []byte) error {
	if !b[addr] {
		return errors.New("nack")
	}
	return nil
}

func TestScan(t *testing.T) {
	got := scan(scanBus{0x3C: true, 0x53: true, 0x78: true})
	if diff := cmp.Diff([]uint16{0x3C, 0x53}, got); diff != "" {
		t.Errorf("scan (-want +got):\n%s", diff)
	}
}
