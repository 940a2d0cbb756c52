// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The MPSSE engine has no I²C primitive. SCL and SDA are driven by toggling
// the direction of D0 and D1 so the lines are either pulled low or released
// to the pull-up resistors; D2 samples SDA.
//
// Interfacing I²C:
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_255_USB%20to%20I2C%20Example%20using%20the%20FT232H%20and%20FT201X%20devices.pdf

package hal

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/ftdihal/mpsse"
	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/physic"
)

// DefaultMargin is the default number of times each START and STOP
// transition is repeated.
const DefaultMargin = 3

const (
	i2cSCL  byte = 0x01 // D0
	i2cSDA  byte = 0x02 // D1, driven by the host
	i2cMask byte = 0x07 // D0, D1 and D2, the latter sampling SDA
)

// I2C is an I²C bus on D0 (SCL), D1 (SDA out) and D2 (SDA in). D1 and D2
// must be wired together.
//
// In slow mode, each byte is flushed and its acknowledgement checked before
// the next one is sent, so a transaction stops at the first byte that was not
// acknowledged. In fast mode, the whole transaction is sent at once and the
// acknowledgements are checked once it completed. Both modes put the same
// signals on the bus.
type I2C struct {
	s      *Session
	margin int
	fast   bool
}

// I2C acquires D0, D1 and D2 as an I²C bus.
func (s *Session) I2C() (*I2C, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(OwnerI2C, AD0, AD1, AD2); err != nil {
		return nil, err
	}
	b := &s.reg.banks[0]
	b.direction &^= i2cMask
	b.value &^= i2cMask
	if _, err := s.run(s.setBank(mpsse.New(), 0).Enable3Phase().SendImmediate()); err != nil {
		return nil, err
	}
	return &I2C{s: s, margin: DefaultMargin}, nil
}

// SetStartStopMargin sets how many times each START and STOP transition is
// repeated. Higher values give the lines more time to settle at the cost of
// speed.
func (i *I2C) SetStartStopMargin(n int) error {
	if n < 1 {
		return ErrInvalidMargin
	}
	i.s.mu.Lock()
	i.margin = n
	i.s.mu.Unlock()
	return nil
}

// SetFast selects fast (true) or slow (false) mode. The default is slow.
func (i *I2C) SetFast(fast bool) {
	i.s.mu.Lock()
	i.fast = fast
	i.s.mu.Unlock()
}

// Write writes w to the device at addr.
func (i *I2C) Write(addr uint16, w []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	if len(w) == 0 {
		return ErrEmptyBuffer
	}
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	t := i.newTx(addr)
	t.address(false, 0)
	t.write(w, 1)
	return i.exec(t)
}

// Read reads len(r) bytes from the device at addr.
//
// r is left untouched when the address is not acknowledged.
func (i *I2C) Read(addr uint16, r []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	if len(r) == 0 {
		return ErrEmptyBuffer
	}
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	t := i.newTx(addr)
	t.address(true, 0)
	t.read(r)
	return i.exec(t)
}

// WriteRead writes w then reads len(r) bytes from the device at addr, with a
// repeated START in between.
//
// r is left untouched when a byte is not acknowledged.
func (i *I2C) WriteRead(addr uint16, w, r []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	if len(w) == 0 || len(r) == 0 {
		return ErrEmptyBuffer
	}
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	t := i.newTx(addr)
	t.address(false, 0)
	t.write(w, 1)
	t.address(true, len(w)+1)
	t.read(r)
	return i.exec(t)
}

// Probe sends the address of a device for writing then a STOP. It returns an
// error wrapping ErrNoAck if no device acknowledged.
func (i *I2C) Probe(addr uint16) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	t := i.newTx(addr)
	t.address(false, 0)
	return i.exec(t)
}

// Tx implements i2c.Bus.
func (i *I2C) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) != 0 && len(r) != 0:
		return i.WriteRead(addr, w, r)
	case len(w) != 0:
		return i.Write(addr, w)
	case len(r) != 0:
		return i.Read(addr, r)
	default:
		return ErrEmptyBuffer
	}
}

// SetSpeed implements i2c.Bus.
//
// 3 phases clocking stretches each bit over 3 half periods so the engine
// clock is set to 3/2 of f.
func (i *I2C) SetSpeed(f physic.Frequency) error {
	if f > 10*physic.MegaHertz {
		return errors.Errorf("ftdihal: invalid speed %s; maximum supported clock is 10MHz", f)
	}
	if f < 100*physic.Hertz {
		return errors.Errorf("ftdihal: invalid speed %s; minimum supported clock is 100Hz; did you forget to multiply by physic.KiloHertz?", f)
	}
	i.s.mu.Lock()
	defer i.s.mu.Unlock()
	_, err := i.s.setFrequency(f * 3 / 2)
	return err
}

// Duplex implements conn.Conn.
func (i *I2C) Duplex() conn.Duplex {
	return conn.Half
}

// String implements i2c.Bus.
func (i *I2C) String() string {
	return "ftdihal-i2c"
}

// Close implements i2c.BusCloser.
//
// The pins stay owned by the bus until the session is closed.
func (i *I2C) Close() error {
	return nil
}

//

func checkAddr(addr uint16) error {
	if addr > 0x7F {
		return errors.Wrapf(ErrInvalidAddress, "0x%x", addr)
	}
	return nil
}

// acked returns true if the sampled bit is an acknowledgement. Only bit 0 is
// meaningful.
func acked(v byte) bool {
	return v&1 == 0
}

// i2cStep is a part of a transaction that ends at a point where its
// acknowledgement can be checked.
type i2cStep struct {
	c *mpsse.Cmd
	// index of the byte the step acknowledges, for NAKError.
	index int
	// r receives the response of a read step. It is nil for other steps.
	r []byte
}

// i2cTx encodes one transaction.
type i2cTx struct {
	addr      uint16
	value     byte
	direction byte
	margin    int
	steps     []i2cStep
}

// newTx must be called with mu held.
func (i *I2C) newTx(addr uint16) *i2cTx {
	b := &i.s.reg.banks[0]
	return &i2cTx{addr: addr, value: b.value, direction: b.direction, margin: i.margin}
}

// exec runs t in the current mode and returns the first acknowledgement
// failure.
//
// Must be called with mu held.
func (i *I2C) exec(t *i2cTx) error {
	t.stop(t.steps[len(t.steps)-1].c)
	if i.fast {
		c := mpsse.New()
		for _, st := range t.steps {
			c.Append(st.c)
		}
		resp, err := i.s.run(c.SendImmediate())
		if err != nil {
			return err
		}
		// The read buffers are only filled once every acknowledgement passed.
		all := resp
		for _, st := range t.steps {
			b := resp[:st.c.ReadLen()]
			resp = resp[st.c.ReadLen():]
			if st.r == nil && st.check(b) != nil {
				return i.logNAK(&NAKError{Addr: t.addr, Index: st.index})
			}
		}
		for _, st := range t.steps {
			if st.r != nil {
				copy(st.r, all[:st.c.ReadLen()])
			}
			all = all[st.c.ReadLen():]
		}
		return nil
	}
	for _, st := range t.steps {
		b, err := i.s.run(st.c.SendImmediate())
		if err != nil {
			return err
		}
		if err := st.check(b); err != nil {
			return i.logNAK(&NAKError{Addr: t.addr, Index: st.index})
		}
	}
	return nil
}

func (i *I2C) logNAK(err error) error {
	if err != nil {
		i.s.p.log.Debug("i2c", zap.Error(err))
	}
	return err
}

// check copies the response of a read step or verifies the acknowledgement
// of any other step.
func (st *i2cStep) check(b []byte) error {
	if st.r != nil {
		copy(st.r, b)
		return nil
	}
	if !acked(b[0]) {
		return ErrNoAck
	}
	return nil
}

// address adds a START followed by the address byte.
func (t *i2cTx) address(read bool, index int) {
	c := mpsse.New()
	t.start(c)
	b := byte(t.addr << 1)
	if read {
		b |= 1
	}
	t.writeByte(c, b)
	t.steps = append(t.steps, i2cStep{c: c, index: index})
}

// write adds one step per byte, first being the index of w[0].
func (t *i2cTx) write(w []byte, first int) {
	for j, b := range w {
		c := mpsse.New()
		t.writeByte(c, b)
		t.steps = append(t.steps, i2cStep{c: c, index: first + j})
	}
}

// read adds a step reading len(r) bytes. The last byte is not acknowledged,
// to tell the device to stop sending.
func (t *i2cTx) read(r []byte) {
	c := mpsse.New()
	for j := range r {
		c.SetLower(t.value, i2cSCL|t.direction)
		c.ClockBitsIn(gpio.RisingEdge, 8)
		c.SetLower(t.value, i2cSCL|i2cSDA|t.direction)
		if j == len(r)-1 {
			c.ClockBitsOut(gpio.FallingEdge, 0x80, 1)
		} else {
			c.ClockBitsOut(gpio.FallingEdge, 0x00, 1)
		}
	}
	t.steps = append(t.steps, i2cStep{c: c, index: -1, r: r})
}

// writeByte clocks out b then samples the acknowledgement.
func (t *i2cTx) writeByte(c *mpsse.Cmd, b byte) {
	c.SetLower(t.value, i2cSCL|i2cSDA|t.direction)
	c.ClockBitsOut(gpio.FallingEdge, b, 8)
	// Release SDA so the device can pull it low.
	c.SetLower(t.value, i2cSCL|t.direction)
	c.ClockBitsIn(gpio.RisingEdge, 1)
}

// start is a START or a repeated START: SDA falls while SCL is high, then
// SCL falls.
func (t *i2cTx) start(c *mpsse.Cmd) {
	out := i2cSCL | i2cSDA | t.direction
	for j := 0; j < t.margin; j++ {
		c.SetLower(t.value|i2cSCL|i2cSDA, out)
	}
	for j := 0; j < t.margin; j++ {
		c.SetLower(t.value|i2cSCL, out)
	}
	for j := 0; j < t.margin; j++ {
		c.SetLower(t.value, out)
	}
}

// stop is a STOP: SCL rises then SDA rises while SCL is high. Both lines are
// released afterward.
func (t *i2cTx) stop(c *mpsse.Cmd) {
	out := i2cSCL | i2cSDA | t.direction
	for j := 0; j < t.margin; j++ {
		c.SetLower(t.value, out)
	}
	for j := 0; j < t.margin; j++ {
		c.SetLower(t.value|i2cSCL, out)
	}
	for j := 0; j < t.margin; j++ {
		c.SetLower(t.value|i2cSCL|i2cSDA, out)
	}
	c.SetLower(t.value, t.direction)
}

var _ i2c.BusCloser = &I2C{}
