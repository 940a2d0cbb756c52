// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/ftdihal/mpsse"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// OutputPin is a pin driven by the MPSSE engine.
type OutputPin struct {
	pinInfo
	s *Session
}

// OutputPin acquires p as an output, initially low.
func (s *Session) OutputPin(p Pin) (*OutputPin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(OwnerOutput, p); err != nil {
		return nil, err
	}
	s.reg.output(p, false)
	if _, err := s.run(s.setBank(mpsse.New(), p.bank()).SendImmediate()); err != nil {
		return nil, err
	}
	return &OutputPin{pinInfo{p}, s}, nil
}

// Set drives the pin high or low.
func (o *OutputPin) Set(high bool) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.reg.set(o.p, high)
	_, err := o.s.run(o.s.setBank(mpsse.New(), o.p.bank()).SendImmediate())
	return err
}

// SetHigh drives the pin high.
func (o *OutputPin) SetHigh() error {
	return o.Set(true)
}

// SetLow drives the pin low.
func (o *OutputPin) SetLow() error {
	return o.Set(false)
}

// Function implements pin.Pin.
func (o *OutputPin) Function() string {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return "Out/" + gpio.Level(o.s.reg.banks[o.p.bank()].value&o.p.mask() != 0).String()
}

// Out implements gpio.PinOut.
func (o *OutputPin) Out(l gpio.Level) error {
	return o.Set(bool(l))
}

// PWM implements gpio.PinOut.
func (o *OutputPin) PWM(d gpio.Duty, f physic.Frequency) error {
	return errors.New("ftdihal: PWM is not supported")
}

// InputPin is a pin sampled by the MPSSE engine.
type InputPin struct {
	pinInfo
	s *Session
}

// InputPin acquires p as an input.
func (s *Session) InputPin(p Pin) (*InputPin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(OwnerInput, p); err != nil {
		return nil, err
	}
	s.reg.input(p)
	if _, err := s.run(s.setBank(mpsse.New(), p.bank()).SendImmediate()); err != nil {
		return nil, err
	}
	return &InputPin{pinInfo{p}, s}, nil
}

// Get samples the pin.
func (i *InputPin) Get() (bool, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	c := mpsse.New()
	if i.p.bank() == 0 {
		c.ReadLower()
	} else {
		c.ReadUpper()
	}
	b, err := i.s.run(c.SendImmediate())
	if err != nil {
		return false, err
	}
	return b[0]&i.p.mask() != 0, nil
}

// ReadBanks samples D0~D7 and C0~C7 in a single round trip, whatever their
// owner.
func (s *Session) ReadBanks() (lower, upper byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.run(mpsse.New().ReadLower().ReadUpper().SendImmediate())
	if err != nil {
		return 0, 0, err
	}
	return b[0], b[1], nil
}

// IsHigh returns true if the pin is high.
func (i *InputPin) IsHigh() (bool, error) {
	return i.Get()
}

// IsLow returns true if the pin is low.
func (i *InputPin) IsLow() (bool, error) {
	v, err := i.Get()
	return !v, err
}

// Function implements pin.Pin.
func (i *InputPin) Function() string {
	return "In/" + i.Read().String()
}

// In implements gpio.PinIn.
//
// The pin is already an input with the chip's weak internal pull-up, which
// can't be changed. Edge detection is not supported.
func (i *InputPin) In(pull gpio.Pull, e gpio.Edge) error {
	if e != gpio.NoEdge {
		return errors.New("ftdihal: edge triggering is not supported")
	}
	if pull != gpio.PullUp && pull != gpio.PullNoChange {
		return errors.New("ftdihal: pull is not supported")
	}
	return nil
}

// Read implements gpio.PinIn.
//
// An I/O error reads as Low; use Get to see it.
func (i *InputPin) Read() gpio.Level {
	v, err := i.Get()
	if err != nil {
		i.s.p.log.Warn("read", zap.Stringer("pin", i.p), zap.Error(err))
		return gpio.Low
	}
	return gpio.Level(v)
}

// WaitForEdge implements gpio.PinIn.
func (i *InputPin) WaitForEdge(t time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (i *InputPin) Pull() gpio.Pull {
	return gpio.PullUp
}

// DefaultPull implements gpio.PinIn.
func (i *InputPin) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

// pinInfo implements the parts of pin.Pin common to all pins.
type pinInfo struct {
	p Pin
}

// String implements conn.Resource.
func (p *pinInfo) String() string {
	return p.p.String()
}

// Halt implements conn.Resource.
func (p *pinInfo) Halt() error {
	return nil
}

// Name implements pin.Pin.
func (p *pinInfo) Name() string {
	return p.p.String()
}

// Number implements pin.Pin.
func (p *pinInfo) Number() int {
	return int(p.p)
}

var _ gpio.PinOut = &OutputPin{}
var _ gpio.PinIn = &InputPin{}
