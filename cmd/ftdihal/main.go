// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ftdihal drives the I²C, SPI and GPIO of FTDI MPSSE chips from the command
// line.
//
// Every global flag can be set with an FTDI_* environment variable.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/ftdihal/hal"
	"periph.io/x/ftdihal/hostextra/d2xx"
	"periph.io/x/ftdihal/hostextra/ftdiusb"
	"periph.io/x/periph/conn/physic"
)

const (
	flagTransport = "transport"
	flagInterface = "interface"
	flagIndex     = "index"
	flagHz        = "hz"
	flagLatency   = "latency"
	flagNoReset   = "no-reset"
	flagVerbose   = "verbose"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "ftdihal",
		Usage: "use a FTDI chip as an I²C, SPI and GPIO adapter",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagTransport,
				Value:   "usb",
				Usage:   "driver used to talk to the chip: usb (libusb) or d2xx",
				EnvVars: []string{"FTDI_TRANSPORT"},
			},
			&cli.StringFlag{
				Name:    flagInterface,
				Value:   "A",
				Usage:   "interface of the chip, A to D; ignored with d2xx",
				EnvVars: []string{"FTDI_INTERFACE"},
			},
			&cli.IntFlag{
				Name:    flagIndex,
				Usage:   "index of the chip when more than one is connected",
				EnvVars: []string{"FTDI_INDEX"},
			},
			&cli.IntFlag{
				Name:    flagHz,
				Value:   100000,
				Usage:   "MPSSE clock, or bit-bang sampling rate, in Hz",
				EnvVars: []string{"FTDI_HZ"},
			},
			&cli.DurationFlag{
				Name:    flagLatency,
				Value:   16 * time.Millisecond,
				Usage:   "USB latency timer",
				EnvVars: []string{"FTDI_LATENCY"},
			},
			&cli.BoolFlag{
				Name:    flagNoReset,
				Usage:   "do not reset the USB port at initialization",
				EnvVars: []string{"FTDI_NO_RESET"},
			},
			&cli.BoolFlag{
				Name:    flagVerbose,
				Aliases: []string{"v"},
				Usage:   "log the traffic with the chip",
				EnvVars: []string{"FTDI_VERBOSE"},
			},
		},
		Commands: commands(),
	}
}

// settings returns the session settings from the global flags.
func settings(c *cli.Context) (hal.Settings, error) {
	st := hal.DefaultSettings()
	st.Reset = !c.Bool(flagNoReset)
	st.LatencyTimer = c.Duration(flagLatency)
	st.Frequency = physic.Frequency(c.Int(flagHz)) * physic.Hertz
	return st, st.Validate()
}

func newLogger(c *cli.Context) (*zap.Logger, error) {
	if c.Bool(flagVerbose) {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func parseInterface(s string) (ftdiusb.Interface, error) {
	if len(s) == 1 {
		if i := ftdiusb.Interface(strings.ToUpper(s)[0]-'A') + ftdiusb.InterfaceA; i >= ftdiusb.InterfaceA && i <= ftdiusb.InterfaceD {
			return i, nil
		}
	}
	return 0, errors.Errorf("invalid interface %q", s)
}

// openDevice opens the chip selected by the global flags.
func openDevice(c *cli.Context) (hal.Device, error) {
	idx := c.Int(flagIndex)
	switch t := c.String(flagTransport); t {
	case "usb":
		i, err := parseInterface(c.String(flagInterface))
		if err != nil {
			return nil, err
		}
		all, err := ftdiusb.All()
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(all) {
			return nil, errors.Errorf("no FTDI chip #%d; found %d", idx, len(all))
		}
		return ftdiusb.Open(all[idx], i)
	case "d2xx":
		return d2xx.Open(idx)
	default:
		return nil, errors.Errorf("unknown transport %q", t)
	}
}

// withSession opens the chip in MPSSE mode, runs f and closes it.
func withSession(c *cli.Context, f func(s *hal.Session, log *zap.Logger) error) (err error) {
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
	u := hal.Open(d, hal.WithLogger(log))
	s, err := u.Init(st)
	if err != nil {
		return multierr.Append(err, u.Close())
	}
	defer func() {
		err = multierr.Append(err, s.Close())
	}()
	return f(s, log)
}

func mainImpl() error {
	return newApp().Run(os.Args)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "ftdihal: %s.\n", err)
		os.Exit(1)
	}
}
