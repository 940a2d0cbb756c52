// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package d2xxsmoketest verifies that a MPSSE capable chip opened through the
// D2XX driver is working as expected.
package d2xxsmoketest

import (
	"bytes"
	"flag"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/ftdihal/hal"
	"periph.io/x/ftdihal/hostextra/d2xx"
	"periph.io/x/periph/conn/physic"
)

// SmokeTest is run by "ftdihal smoketest".
type SmokeTest struct {
	Log *zap.Logger
}

// Name implements the SmokeTest interface.
func (s *SmokeTest) Name() string {
	return "d2xx"
}

// Description implements the SmokeTest interface.
func (s *SmokeTest) Description() string {
	return "Tests a FT232H/FT2232H/FT4232H over the D2XX driver"
}

// Run implements the SmokeTest interface.
func (s *SmokeTest) Run(f *flag.FlagSet, args []string) (err error) {
	index := f.Int("index", 0, "Device index to test")
	wired := f.Bool("wired", false, "AD1 (MOSI) is wired to AD2 (MISO)")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		f.Usage()
		return errors.New("unrecognized arguments")
	}
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	d, err := d2xx.Open(*index)
	if err != nil {
		return err
	}
	u := hal.Open(d, hal.WithLogger(log))
	st := hal.DefaultSettings()
	st.Frequency = physic.MegaHertz
	ses, err := u.Init(st)
	if err != nil {
		return multierr.Append(err, u.Close())
	}
	defer func() {
		err = multierr.Append(err, ses.Close())
	}()
	log.Info("testing", zap.Stringer("device", d), zap.Stringer("frequency", ses.Frequency()))
	return testSPI(ses, *wired)
}

// testSPI sends a pattern and verifies it is received back, first through the
// internal loopback then, if wired, through the pins.
func testSPI(s *hal.Session, wired bool) error {
	p, err := s.SPI()
	if err != nil {
		return err
	}
	if err := s.SetLoopback(true); err != nil {
		return err
	}
	if err := checkEcho(p, "internal loopback"); err != nil {
		return err
	}
	if err := s.SetLoopback(false); err != nil {
		return err
	}
	if !wired {
		return nil
	}
	return checkEcho(p, "wired loopback")
}

func checkEcho(p *hal.SPI, name string) error {
	w := make([]byte, 256)
	for i := range w {
		w[i] = byte(i)
	}
	r := make([]byte, len(w))
	if err := p.Transfer(w, r); err != nil {
		return errors.Wrap(err, name)
	}
	if !bytes.Equal(w, r) {
		return errors.Errorf("%s: got %x", name, r)
	}
	return nil
}
