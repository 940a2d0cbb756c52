// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"bytes"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/ftdihal/mpsse"
	"periph.io/x/periph/conn/physic"
)

// Uninitialized is an opened device whose MPSSE engine is not configured
// yet. Call Init to get a usable Session.
type Uninitialized struct {
	d    Device
	opts options
}

// Open wraps an opened device.
func Open(d Device, opts ...Option) *Uninitialized {
	return &Uninitialized{d: d, opts: newOptions(opts)}
}

// InitDefault is Init(DefaultSettings()).
func (u *Uninitialized) InitDefault() (*Session, error) {
	return u.Init(DefaultSettings())
}

// Init configures the device in MPSSE mode.
//
// On success the device is owned by the returned Session and Init cannot be
// called again. On failure the caller still owns the device and should Close
// it.
func (u *Uninitialized) Init(st Settings) (*Session, error) {
	if u.d == nil {
		return nil, ErrAlreadyInitialized
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	s := &Session{p: port{d: u.d, log: u.opts.log, clk: u.opts.clk}}
	if err := s.p.setup(&st); err != nil {
		return nil, err
	}
	if err := s.p.setBitMode(0, BitModeReset); err != nil {
		return nil, err
	}
	if err := s.p.setBitMode(0, BitModeMPSSE); err != nil {
		return nil, err
	}
	if err := s.verify(); err != nil {
		return nil, err
	}
	// The chip can't report its clock nor the direction of its pins, so put
	// everything in a known state: all pins are inputs.
	c := mpsse.New()
	f, err := c.Clock(st.Frequency)
	if err != nil {
		return nil, err
	}
	c.DisableLoopback().Disable3Phase().DisableAdaptive()
	c.SetLower(0, 0).SetUpper(0, 0).SendImmediate()
	if _, err := s.run(c); err != nil {
		return nil, err
	}
	s.freq = f
	u.d = nil
	s.p.log.Info("initialized", zap.Stringer("frequency", f), zap.Duration("latency", st.LatencyTimer))
	return s, nil
}

// Close closes the device without initializing it.
func (u *Uninitialized) Close() error {
	if u.d == nil {
		return nil
	}
	err := u.d.Close()
	u.d = nil
	return errors.Wrap(err, "ftdihal: close")
}

// Session is an initialized MPSSE interface.
//
// It owns the device and arbitrates its pins between the peripherals acquired
// from it. All operations are serialized; each one holds the lock for a
// complete command and response round trip.
type Session struct {
	mu     sync.Mutex
	p      port
	reg    registry
	freq   physic.Frequency
	closed bool
}

// Frequency returns the current MPSSE clock.
func (s *Session) Frequency() physic.Frequency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freq
}

// SetFrequency changes the MPSSE clock to the closest frequency not above f
// and returns it.
func (s *Session) SetFrequency(f physic.Frequency) (physic.Frequency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setFrequency(f)
}

func (s *Session) setFrequency(f physic.Frequency) (physic.Frequency, error) {
	c := mpsse.New()
	actual, err := c.Clock(f)
	if err != nil {
		return 0, err
	}
	if _, err := s.run(c.SendImmediate()); err != nil {
		return 0, err
	}
	s.freq = actual
	s.p.log.Debug("clock", zap.Stringer("frequency", actual))
	return actual, nil
}

// SetLoopback connects D1 to D2 inside the chip.
func (s *Session) SetLoopback(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := mpsse.New()
	if on {
		c.EnableLoopback()
	} else {
		c.DisableLoopback()
	}
	_, err := s.run(c.SendImmediate())
	return err
}

// Owner returns the current owner of p.
func (s *Session) Owner(p Pin) Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reg.owner(p)
}

// Close releases all the pins as inputs, resets the interface and closes the
// device.
//
// Peripherals acquired from the session become unusable.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	c := mpsse.New().SetLower(0, 0).SetUpper(0, 0).SendImmediate()
	err := s.p.write(c.Bytes())
	err = multierr.Append(err, s.p.setBitMode(0, BitModeReset))
	err = multierr.Append(err, errors.Wrap(s.p.d.Close(), "ftdihal: close"))
	s.closed = true
	return err
}

// verify sends invalid commands and checks the engine rejects them, which
// confirms the interface is in MPSSE mode.
func (s *Session) verify() error {
	for _, op := range []byte{0xAA, 0xAB} {
		b, err := s.run(mpsse.New().BadCommand(op).SendImmediate())
		if err != nil {
			return errors.Wrap(err, "ftdihal: MPSSE verification")
		}
		if !bytes.Equal(b, []byte{mpsse.InvalidCommand, op}) {
			return errors.Errorf("ftdihal: MPSSE verification failed for byte %#x: %#x", op, b)
		}
	}
	return nil
}

// run sends c and reads back its response.
//
// The chip stops processing commands once its transmit buffer is full, so c
// is sent in batches whose response fits in it, each read back before the
// next one is sent.
//
// Must be called with mu held.
func (s *Session) run(c *mpsse.Cmd) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if c.ReadLen() == 0 {
		return nil, s.p.write(c.Bytes())
	}
	b := make([]byte, c.ReadLen())
	off := 0
	for _, part := range c.Split(s.p.maxPending) {
		if err := s.p.write(part.Bytes()); err != nil {
			return nil, err
		}
		n := part.ReadLen()
		if n == 0 {
			continue
		}
		if err := s.p.readFull(b[off : off+n]); err != nil {
			return nil, err
		}
		off += n
	}
	return b, nil
}

// acquire allocates pins to w.
//
// Must be called with mu held.
func (s *Session) acquire(w Owner, pins ...Pin) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.reg.allocate(w, pins...); err != nil {
		s.p.log.Error("pin allocation", zap.Error(err))
		return err
	}
	return nil
}

// setBank appends the command that applies the cached state of bank i.
func (s *Session) setBank(c *mpsse.Cmd, i int) *mpsse.Cmd {
	b := &s.reg.banks[i]
	if i == 0 {
		return c.SetLower(b.value, b.direction)
	}
	return c.SetUpper(b.value, b.direction)
}
