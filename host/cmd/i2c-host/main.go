// Command i2c-host drives the I2C console of a board over its serial link.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"periph.io/x/conn/v3/i2c"

	"i2cmaster/config"
	"i2cmaster/console"
	"i2cmaster/host/serial"
	"i2cmaster/i2c/periphbus"
	"i2cmaster/protocol"
)

var (
	device     = flag.String("device", "", "Serial device path (overrides config)")
	baud       = flag.Int("baud", 0, "Baud rate (overrides config)")
	configPath = flag.String("config", "", "JSON bus configuration")
	recoverBus = flag.Bool("recover", false, "Recover the bus before write/read")
)

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	port, err := serial.Open(&serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.ReadTimeout(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := port.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flush: %v\n", err)
	}

	client := protocol.NewClient(port)
	defer client.Close()
	remote := console.NewRemote(client, 0)

	if err := run(cfg, remote, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		client.Close()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: i2c-host [flags] command [args]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  write <addr|target> <byte>...     write bytes\n")
	fmt.Fprintf(os.Stderr, "  read <addr|target> <n> [reg]      read n bytes, after writing reg\n")
	fmt.Fprintf(os.Stderr, "  scan                              poll 0x08..0x77\n")
	fmt.Fprintf(os.Stderr, "  reset                             recover the bus\n")
	fmt.Fprintf(os.Stderr, "  trace                             dump the last transaction's trace\n")
	fmt.Fprintf(os.Stderr, "  dict                              print the command dictionary\n\n")
	flag.PrintDefaults()
}

func loadConfig() (*config.BusConfig, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	return cfg, nil
}

func run(cfg *config.BusConfig, remote *console.Remote, args []string) error {
	var flags uint8
	if *recoverBus {
		flags |= console.FlagRecover
	}

	switch args[0] {
	case "write":
		if len(args) < 3 {
			return fmt.Errorf("write needs an address and data")
		}
		addr, err := parseAddr(cfg, args[1])
		if err != nil {
			return err
		}
		data, err := parseBytes(args[2:])
		if err != nil {
			return err
		}
		return remote.TxFlags(addr, flags, data, nil)

	case "read":
		if len(args) < 3 || len(args) > 4 {
			return fmt.Errorf("read needs an address, a count and an optional register")
		}
		addr, err := parseAddr(cfg, args[1])
		if err != nil {
			return err
		}
		n, err := strconv.ParseUint(args[2], 0, 8)
		if err != nil || n == 0 {
			return fmt.Errorf("bad count %q", args[2])
		}
		var w []byte
		if len(args) == 4 {
			if w, err = parseBytes(args[3:]); err != nil {
				return err
			}
		}
		r := make([]byte, n)
		if err := remote.TxFlags(addr, flags, w, r); err != nil {
			return err
		}
		fmt.Println(formatBytes(r))
		return nil

	case "scan":
		found := scan(periphbus.New(cfg.Serial.Device, remote))
		for _, addr := range found {
			fmt.Printf("0x%02x\n", addr)
		}
		fmt.Printf("%d device(s)\n", len(found))
		return nil

	case "reset":
		if err := remote.ResetBus(); err != nil {
			return err
		}
		fmt.Println("bus recovered")
		return nil

	case "trace":
		records, err := remote.Trace()
		if err != nil {
			return err
		}
		for i, rec := range records {
			fmt.Printf("%3d %-16s sr1=0x%04x sr2=0x%04x\n", i, rec.Event, rec.SR1, rec.SR2)
		}
		return nil

	case "dict":
		dict, err := remote.Identify()
		if err != nil {
			return err
		}
		fmt.Print(dict)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// scan addresses every non-reserved 7-bit address with a one byte read
func scan(bus i2c.Bus) []uint16 {
	var found []uint16
	buf := make([]byte, 1)
	for addr := uint16(0x08); addr <= 0x77; addr++ {
		dev := &i2c.Dev{Bus: bus, Addr: addr}
		if err := dev.Tx(nil, buf); err == nil {
			found = append(found, addr)
		}
	}
	return found
}

// parseAddr accepts a configured target name or a number
func parseAddr(cfg *config.BusConfig, s string) (uint16, error) {
	if t, err := cfg.Target(s); err == nil {
		return uint16(t.Addr), nil
	}
	v, err := strconv.ParseUint(s, 0, 7)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return uint16(v), nil
}

func parseBytes(args []string) ([]byte, error) {
	data := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseUint(a, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("bad byte %q", a)
		}
		data = append(data, byte(v))
	}
	return data, nil
}

func formatBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, " ")
}
