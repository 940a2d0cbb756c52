// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Synchronous bit-bang mode is available on every interface, including the
// ones without MPSSE like the C and D interfaces of a FT4232H.
//
// In this mode, each byte written is applied to D0~D7 and the chip samples
// the pins just before applying it; the sample is queued for the host. So a
// read always returns the state before the last write, and samples pile up
// in the chip until the host reads them. Writes stall when that queue is full
// so it is drained before every write.
//
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_232R-01_Bit_Bang_Mode_Available_For_FT232R_and_Ft245R.pdf

package hal

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// SyncSession is an interface in synchronous bit-bang mode. Only D0~D7 are
// available, as GPIOs.
type SyncSession struct {
	mu     sync.Mutex
	p      port
	reg    registry
	closed bool
}

// OpenSync configures the device in synchronous bit-bang mode, with all the
// pins as inputs.
//
// Frequency is the rate at which the chip applies the written bytes. On
// failure the caller still owns the device.
func OpenSync(d Device, st Settings, opts ...Option) (*SyncSession, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	s := &SyncSession{p: port{d: d, log: o.log, clk: o.clk}}
	if err := s.p.setup(&st); err != nil {
		return nil, err
	}
	if err := d.SetBaudRate(int(st.Frequency / physic.Hertz)); err != nil {
		return nil, errors.Wrap(err, "ftdihal: set baud rate")
	}
	if err := s.p.setBitMode(0, BitModeSyncBitbang); err != nil {
		return nil, err
	}
	_, n, err := s.p.drain()
	if err != nil {
		return nil, err
	}
	if n != 0 {
		s.p.log.Warn("discarded stray bytes", zap.Int("count", n))
	}
	s.p.log.Info("initialized in synchronous bit-bang mode", zap.Stringer("frequency", st.Frequency))
	return s, nil
}

// Owner returns the current owner of p.
func (s *SyncSession) Owner(p Pin) Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.owner(p)
}

// Close resets the interface and closes the device.
func (s *SyncSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.p.setBitMode(0, BitModeReset)
	return multierr.Append(err, errors.Wrap(s.p.d.Close(), "ftdihal: close"))
}

// OutputPin acquires p as an output, initially low.
func (s *SyncSession) OutputPin(p Pin) (*SyncOutputPin, error) {
	if err := s.acquire(OwnerOutput, p); err != nil {
		return nil, err
	}
	return &SyncOutputPin{pinInfo{p}, s}, nil
}

// InputPin acquires p as an input.
func (s *SyncSession) InputPin(p Pin) (*SyncInputPin, error) {
	if err := s.acquire(OwnerInput, p); err != nil {
		return nil, err
	}
	return &SyncInputPin{pinInfo{p}, s}, nil
}

// acquire allocates p and applies its new direction.
func (s *SyncSession) acquire(w Owner, p Pin) error {
	if p >= AC0 && p <= AC7 {
		return errors.Wrap(ErrUpperBank, p.String())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.reg.allocate(w, p); err != nil {
		s.p.log.Error("pin allocation", zap.Error(err))
		return err
	}
	if w == OwnerOutput {
		s.reg.output(p, false)
	} else {
		s.reg.input(p)
	}
	return s.p.setBitMode(s.reg.banks[0].direction, BitModeSyncBitbang)
}

// write applies the cached pin values.
//
// Must be called with mu held.
func (s *SyncSession) write() error {
	if s.closed {
		return ErrClosed
	}
	if _, _, err := s.p.drain(); err != nil {
		return err
	}
	return s.p.write([]byte{s.reg.banks[0].value})
}

// sample returns the state of the pins as of the last write.
//
// Must be called with mu held.
func (s *SyncSession) sample() (byte, error) {
	if s.closed {
		return 0, ErrClosed
	}
	// Write the current value again so the chip samples the pins as they are
	// now; the newest sample is the one wanted.
	if err := s.p.write([]byte{s.reg.banks[0].value}); err != nil {
		return 0, err
	}
	return s.p.waitByte()
}

// SyncOutputPin is a pin driven in synchronous bit-bang mode.
type SyncOutputPin struct {
	pinInfo
	s *SyncSession
}

// Set drives the pin high or low.
func (o *SyncOutputPin) Set(high bool) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	o.s.reg.set(o.p, high)
	return o.s.write()
}

// SetHigh drives the pin high.
func (o *SyncOutputPin) SetHigh() error {
	return o.Set(true)
}

// SetLow drives the pin low.
func (o *SyncOutputPin) SetLow() error {
	return o.Set(false)
}

// Function implements pin.Pin.
func (o *SyncOutputPin) Function() string {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return "Out/" + gpio.Level(o.s.reg.banks[0].value&o.p.mask() != 0).String()
}

// Out implements gpio.PinOut.
func (o *SyncOutputPin) Out(l gpio.Level) error {
	return o.Set(bool(l))
}

// PWM implements gpio.PinOut.
func (o *SyncOutputPin) PWM(d gpio.Duty, f physic.Frequency) error {
	return errors.New("ftdihal: PWM is not supported")
}

// SyncInputPin is a pin sampled in synchronous bit-bang mode.
type SyncInputPin struct {
	pinInfo
	s *SyncSession
}

// Get samples the pin.
//
// The very first sample after OpenSync is the state of the pins before the
// session changed anything.
func (i *SyncInputPin) Get() (bool, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	v, err := i.s.sample()
	if err != nil {
		return false, err
	}
	return v&i.p.mask() != 0, nil
}

// IsHigh returns true if the pin is high.
func (i *SyncInputPin) IsHigh() (bool, error) {
	return i.Get()
}

// IsLow returns true if the pin is low.
func (i *SyncInputPin) IsLow() (bool, error) {
	v, err := i.Get()
	return !v, err
}

// Function implements pin.Pin.
func (i *SyncInputPin) Function() string {
	return "In/" + i.Read().String()
}

// In implements gpio.PinIn.
func (i *SyncInputPin) In(pull gpio.Pull, e gpio.Edge) error {
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
func (i *SyncInputPin) Read() gpio.Level {
	v, err := i.Get()
	if err != nil {
		i.s.p.log.Warn("read", zap.Stringer("pin", i.p), zap.Error(err))
		return gpio.Low
	}
	return gpio.Level(v)
}

// WaitForEdge implements gpio.PinIn.
func (i *SyncInputPin) WaitForEdge(t time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (i *SyncInputPin) Pull() gpio.Pull {
	return gpio.PullUp
}

// DefaultPull implements gpio.PinIn.
func (i *SyncInputPin) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

var _ gpio.PinOut = &SyncOutputPin{}
var _ gpio.PinIn = &SyncInputPin{}
