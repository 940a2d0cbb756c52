// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/ftdihal/devices/pinview"
	"periph.io/x/ftdihal/hal"
	"periph.io/x/ftdihal/hostextra"
	"periph.io/x/ftdihal/hostextra/d2xx"
	"periph.io/x/ftdihal/hostextra/d2xx/d2xxsmoketest"
	"periph.io/x/ftdihal/hostextra/ftdiusb"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "list",
			Usage:  "list the FTDI chips found by each transport",
			Action: listAction,
		},
		{
			Name:   "i2cdetect",
			Usage:  "scan the I²C bus on AD0 (SCL) and AD1/AD2 (SDA)",
			Action: i2cdetectAction,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "fast", Usage: "batch each probe in one USB transfer"},
			},
		},
		{
			Name:   "eeprom-dump",
			Usage:  "dump an AT24C04 style I²C EEPROM",
			Action: eepromDumpAction,
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "addr", Value: 0x50, Usage: "address of the first block"},
				&cli.IntFlag{Name: "size", Value: 512, Usage: "size in bytes, a multiple of 256"},
			},
		},
		{
			Name:   "lm75",
			Usage:  "read the temperature of a LM75 sensor",
			Action: lm75Action,
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "addr", Value: 0x48, Usage: "I²C address"},
			},
		},
		{
			Name:   "spi-loopback",
			Usage:  "send a pattern on AD1 (MOSI) and verify it comes back on AD2 (MISO)",
			Action: spiLoopbackAction,
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "internal", Usage: "use the chip's internal loopback instead of a wire"},
				&cli.StringFlag{Name: "cs", Value: "AD3", Usage: "chip select pin"},
			},
		},
		{
			Name:   "blink",
			Usage:  "toggle an output pin",
			Action: blinkAction,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pin", Value: "AC0", Usage: "pin to toggle"},
				&cli.DurationFlag{Name: "period", Value: 500 * time.Millisecond, Usage: "half period"},
				&cli.IntFlag{Name: "count", Usage: "number of toggles, 0 for infinite"},
			},
		},
		{
			Name:   "input",
			Usage:  "continuously display the level of input pins",
			Action: inputAction,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pins", Value: "AD4,AD5,AD6,AD7", Usage: "comma separated pins"},
				&cli.DurationFlag{Name: "interval", Value: 100 * time.Millisecond, Usage: "sampling interval"},
				&cli.IntFlag{Name: "count", Usage: "number of samples, 0 for infinite"},
			},
		},
		{
			Name:   "sbb-blink",
			Usage:  "toggle a pin in synchronous bit-bang mode, for interfaces without MPSSE",
			Action: sbbBlinkAction,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "pin", Value: "AD0", Usage: "pin to toggle, AD0 to AD7"},
				&cli.DurationFlag{Name: "period", Value: 500 * time.Millisecond, Usage: "half period"},
				&cli.IntFlag{Name: "count", Usage: "number of toggles, 0 for infinite"},
			},
		},
		{
			Name:            "smoketest",
			Usage:           "run the d2xx smoke test; arguments are passed to it",
			SkipFlagParsing: true,
			Action:          smoketestAction,
		},
	}
}

func listAction(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	defer log.Sync()
	state, err := hostextra.Init()
	if err != nil {
		return err
	}
	for _, f := range state.Failed {
		log.Info("driver failed", zap.Stringer("driver", f.D), zap.Error(f.Err))
	}
	w := color.Output
	usb, err := ftdiusb.All()
	if err != nil {
		log.Warn("libusb", zap.Error(err))
	}
	fmt.Fprintf(w, "usb: %d chip%s\n", len(usb), plural(len(usb)))
	for i := range usb {
		d := &usb[i]
		fmt.Fprintf(w, "  #%d %s %04x:%04x, %d interface%s\n", i, d, d.VendorID, d.ProductID, d.Interfaces, plural(d.Interfaces))
	}
	major, minor, build := d2xx.Version()
	all := d2xx.All()
	fmt.Fprintf(w, "d2xx %d.%d.%d: %d device%s\n", major, minor, build, len(all), plural(len(all)))
	for _, i := range all {
		fmt.Fprintf(w, "  #%d %s %04x:%04x\n", i.Index, i.Type, i.VenID, i.DevID)
	}
	return nil
}

func i2cdetectAction(c *cli.Context) error {
	return withSession(c, func(s *hal.Session, log *zap.Logger) error {
		bus, err := s.I2C()
		if err != nil {
			return err
		}
		bus.SetFast(c.Bool("fast"))
		return i2cdetect(color.Output, func(addr uint16) (bool, error) {
			err := bus.Probe(addr)
			if errors.Is(err, hal.ErrNoAck) {
				return false, nil
			}
			return err == nil, err
		})
	})
}

// i2cdetect prints the grid of the addresses that answered, like the linux
// tool of the same name.
func i2cdetect(w io.Writer, probe func(addr uint16) (bool, error)) error {
	found := color.New(color.FgGreen, color.Bold)
	fmt.Fprintln(w, "     0  1  2  3  4  5  6  7  8  9  a  b  c  d  e  f")
	for row := uint16(0); row < 0x80; row += 0x10 {
		fmt.Fprintf(w, "%02x:", row)
		for col := uint16(0); col < 0x10; col++ {
			addr := row + col
			if addr < 0x08 || addr > 0x77 {
				fmt.Fprint(w, "   ")
				continue
			}
			ok, err := probe(addr)
			if err != nil {
				fmt.Fprintln(w)
				return errors.Wrapf(err, "probing %#02x", addr)
			}
			if ok {
				found.Fprintf(w, " %02x", addr)
			} else {
				fmt.Fprint(w, " --")
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func eepromDumpAction(c *cli.Context) error {
	size := c.Int("size")
	if size <= 0 || size%256 != 0 {
		return errors.Errorf("invalid size %d", size)
	}
	return withSession(c, func(s *hal.Session, log *zap.Logger) error {
		bus, err := s.I2C()
		if err != nil {
			return err
		}
		b, err := readEEPROM(bus, uint16(c.Int("addr")), size)
		if err != nil {
			return err
		}
		_, err = io.WriteString(color.Output, hex.Dump(b))
		return err
	})
}

// readEEPROM reads size bytes from a 24C0x EEPROM, where each 256 bytes
// block is at the next I²C address.
func readEEPROM(bus *hal.I2C, addr uint16, size int) ([]byte, error) {
	b := make([]byte, size)
	for off := 0; off < size; off += 256 {
		if err := bus.WriteRead(addr+uint16(off/256), []byte{0}, b[off:off+256]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func lm75Action(c *cli.Context) error {
	return withSession(c, func(s *hal.Session, log *zap.Logger) error {
		bus, err := s.I2C()
		if err != nil {
			return err
		}
		var b [2]byte
		if err := bus.WriteRead(uint16(c.Int("addr")), []byte{0}, b[:]); err != nil {
			return err
		}
		fmt.Fprintf(color.Output, "%.3f°C\n", lm75Celsius(b))
		return nil
	})
}

// lm75Celsius converts the temperature register, an 11 bits two's complement
// value in 0.125°C steps.
func lm75Celsius(b [2]byte) float64 {
	return float64(int16(uint16(b[0])<<8|uint16(b[1]))>>5) * 0.125
}

func spiLoopbackAction(c *cli.Context) error {
	cs, err := parsePin(c.String("cs"))
	if err != nil {
		return err
	}
	return withSession(c, func(s *hal.Session, log *zap.Logger) error {
		if c.Bool("internal") {
			if err := s.SetLoopback(true); err != nil {
				return err
			}
		}
		bus, err := s.SPI()
		if err != nil {
			return err
		}
		dev, err := bus.Device(cs)
		if err != nil {
			return err
		}
		return spiLoopback(color.Output, bus, dev)
	})
}

// spiLoopback runs each kind of transfer with MOSI wired to MISO and reports
// whether the data came back unchanged.
func spiLoopback(w io.Writer, bus *hal.SPI, dev *hal.SPIDevice) error {
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed, color.Bold)
	pattern := make([]byte, 256)
	for i := range pattern {
		pattern[i] = byte(i)
	}
	tests := []struct {
		name string
		run  func() ([]byte, error)
	}{
		{"transfer", func() ([]byte, error) {
			r := make([]byte, len(pattern))
			return r, bus.Transfer(pattern, r)
		}},
		{"transfer in place", func() ([]byte, error) {
			b := append([]byte(nil), pattern...)
			return b, bus.TransferInPlace(b)
		}},
		{"transaction", func() ([]byte, error) {
			r := make([]byte, len(pattern))
			return r, dev.Transaction(hal.WriteOp(pattern[:1]), hal.TransferOp(pattern, r))
		}},
	}
	var errs error
	for _, t := range tests {
		got, err := t.run()
		switch {
		case err != nil:
			fail.Fprintf(w, "FAIL %s: %v\n", t.name, err)
			errs = multierr.Append(errs, err)
		case !bytes.Equal(got, pattern):
			fail.Fprintf(w, "FAIL %s: got %x\n", t.name, got)
			errs = multierr.Append(errs, errors.Errorf("%s: data mismatch", t.name))
		default:
			pass.Fprintf(w, "PASS %s\n", t.name)
		}
	}
	return errs
}

func blinkAction(c *cli.Context) error {
	p, err := parsePin(c.String("pin"))
	if err != nil {
		return err
	}
	return withSession(c, func(s *hal.Session, log *zap.Logger) error {
		out, err := s.OutputPin(p)
		if err != nil {
			return err
		}
		return toggle(c, out.Set)
	})
}

func sbbBlinkAction(c *cli.Context) (err error) {
	p, err := parsePin(c.String("pin"))
	if err != nil {
		return err
	}
	st, err := settings(c)
	if err != nil {
		return err
	}
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	defer log.Sync()
	d, err := openDevice(c)
	if err != nil {
		return err
	}
	s, err := hal.OpenSync(d, st, hal.WithLogger(log))
	if err != nil {
		return multierr.Append(err, d.Close())
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()
	out, err := s.OutputPin(p)
	if err != nil {
		return err
	}
	return toggle(c, out.Set)
}

// toggle calls set with alternating levels until count is reached or the
// process is interrupted.
func toggle(c *cli.Context, set func(bool) error) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	period := c.Duration("period")
	count := c.Int("count")
	level := false
	for i := 0; count == 0 || i < count; i++ {
		level = !level
		if err := set(level); err != nil {
			return err
		}
		if !sleep(ctx, period) {
			break
		}
	}
	return set(false)
}

func inputAction(c *cli.Context) error {
	var pins []hal.Pin
	for _, n := range strings.Split(c.String("pins"), ",") {
		p, err := parsePin(strings.TrimSpace(n))
		if err != nil {
			return err
		}
		pins = append(pins, p)
	}
	return withSession(c, func(s *hal.Session, log *zap.Logger) error {
		for _, p := range pins {
			if _, err := s.InputPin(p); err != nil {
				return err
			}
		}
		view := pinview.New(nil, pins...)
		defer view.Halt()
		ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
		defer stop()
		count := c.Int("count")
		for n := 0; count == 0 || n < count; n++ {
			// Both banks are sampled at once so the line is a snapshot.
			lower, upper, err := s.ReadBanks()
			if err != nil {
				return err
			}
			if err := view.ShowBanks(lower, upper); err != nil {
				return err
			}
			if !sleep(ctx, c.Duration("interval")) {
				break
			}
		}
		return nil
	})
}

func smoketestAction(c *cli.Context) error {
	log, err := newLogger(c)
	if err != nil {
		return err
	}
	defer log.Sync()
	t := &d2xxsmoketest.SmokeTest{Log: log}
	f := flag.NewFlagSet(t.Name(), flag.ContinueOnError)
	if err := t.Run(f, c.Args().Slice()); err != nil {
		return errors.Wrap(err, t.Name())
	}
	color.New(color.FgGreen).Fprintf(color.Output, "%s: %s: PASS\n", t.Name(), t.Description())
	return nil
}

// parsePin parses a pin name like "AD3" or "AC0".
func parsePin(s string) (hal.Pin, error) {
	u := strings.ToUpper(s)
	if len(u) == 3 && (strings.HasPrefix(u, "AD") || strings.HasPrefix(u, "AC")) {
		if n, err := strconv.Atoi(u[2:]); err == nil && n >= 0 && n < 8 {
			if u[1] == 'C' {
				return hal.AC0 + hal.Pin(n), nil
			}
			return hal.AD0 + hal.Pin(n), nil
		}
	}
	return 0, errors.Errorf("invalid pin %q; expected AD0~AD7 or AC0~AC7", s)
}

// sleep returns false if ctx was canceled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
