// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Interfacing SPI:
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_114_FTDI_Hi_Speed_USB_To_SPI_Example.pdf

package hal

import (
	"strconv"

	"github.com/pkg/errors"
	"periph.io/x/ftdihal/mpsse"
	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
)

// Polarity is the idle level of SCK.
//
// Clock phase is not configurable: data is always sampled on the leading
// edge.
type Polarity uint8

const (
	// IdleLow is SPI mode 0: data out on the falling edge, in on the rising
	// edge.
	IdleLow Polarity = iota
	// IdleHigh is SPI mode 2: data out on the rising edge, in on the falling
	// edge.
	IdleHigh
)

func (p Polarity) String() string {
	switch p {
	case IdleLow:
		return "IdleLow"
	case IdleHigh:
		return "IdleHigh"
	default:
		return "Polarity(" + strconv.Itoa(int(p)) + ")"
	}
}

const (
	spiSCK  byte = 0x01 // D0
	spiMOSI byte = 0x02 // D1
)

// SPI is a SPI bus on D0 (SCK), D1 (MOSI) and D2 (MISO), MSB first.
//
// It has no chip select; use Device to get one.
type SPI struct {
	s   *Session
	pol Polarity

	maxFreq physic.Frequency
}

// SPI acquires D0, D1 and D2 as a SPI bus in IdleLow polarity.
func (s *Session) SPI() (*SPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(OwnerSPI, AD0, AD1, AD2); err != nil {
		return nil, err
	}
	b := &s.reg.banks[0]
	b.direction = b.direction&^i2cMask | spiSCK | spiMOSI
	b.value &^= i2cMask
	if _, err := s.run(s.setBank(mpsse.New(), 0).SendImmediate()); err != nil {
		return nil, err
	}
	return &SPI{s: s}, nil
}

// SetPolarity changes the clock polarity and puts SCK at its new idle level.
func (p *SPI) SetPolarity(pol Polarity) error {
	if pol != IdleLow && pol != IdleHigh {
		return errors.Errorf("ftdihal: invalid polarity %s", pol)
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.setPolarity(pol)
}

// setPolarity must be called with mu held.
func (p *SPI) setPolarity(pol Polarity) error {
	p.pol = pol
	p.s.reg.set(AD0, pol == IdleHigh)
	_, err := p.s.run(p.s.setBank(mpsse.New(), 0).SendImmediate())
	return err
}

// Write clocks out w.
func (p *SPI) Write(w []byte) error {
	return p.exec(nil, []Operation{WriteOp(w)})
}

// Read clocks in len(r) bytes.
func (p *SPI) Read(r []byte) error {
	return p.exec(nil, []Operation{ReadOp(r)})
}

// Transfer clocks out all of w and stores the first len(r) bytes clocked in
// into r. The rest is discarded.
//
// r cannot be longer than w.
func (p *SPI) Transfer(w, r []byte) error {
	return p.exec(nil, []Operation{TransferOp(w, r)})
}

// TransferInPlace clocks out b and replaces it with the bytes clocked in.
func (p *SPI) TransferInPlace(b []byte) error {
	return p.exec(nil, []Operation{TransferInPlaceOp(b)})
}

// Device acquires cs as an active low chip select for a device on this bus.
func (p *SPI) Device(cs Pin) (*SPIDevice, error) {
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.acquire(OwnerSPI, cs); err != nil {
		return nil, err
	}
	s.reg.output(cs, true)
	if _, err := s.run(s.setBank(mpsse.New(), cs.bank()).SendImmediate()); err != nil {
		return nil, err
	}
	return &SPIDevice{bus: p, cs: cs}, nil
}

// Tx implements spi.Conn.
//
// A nil w clocks in len(r) bytes and a nil r discards what is clocked in.
func (p *SPI) Tx(w, r []byte) error {
	return p.exec(nil, []Operation{txOp(w, r)})
}

// TxPackets implements spi.Conn.
func (p *SPI) TxPackets(pkts []spi.Packet) error {
	ops, err := packetOps(pkts)
	if err != nil {
		return err
	}
	return p.exec(nil, ops)
}

// Duplex implements conn.Conn.
func (p *SPI) Duplex() conn.Duplex {
	return conn.Full
}

// String implements conn.Conn.
func (p *SPI) String() string {
	return "ftdihal-spi"
}

// Connect implements spi.Port.
//
// Only Mode0 and Mode2 with 8 bits words are supported. The bus is left
// unchanged when the arguments are rejected.
func (p *SPI) Connect(f physic.Frequency, m spi.Mode, bits int) (spi.Conn, error) {
	if f > mpsse.MaxFrequency {
		return nil, errors.Errorf("ftdihal: invalid speed %s; maximum supported clock is 30MHz", f)
	}
	if f < 100*physic.Hertz {
		return nil, errors.Errorf("ftdihal: invalid speed %s; minimum supported clock is 100Hz; did you forget to multiply by physic.MegaHertz?", f)
	}
	if bits != 8 {
		return nil, errors.New("ftdihal: only 8 bits words are supported")
	}
	pol := IdleLow
	switch m {
	case spi.Mode0:
	case spi.Mode2:
		pol = IdleHigh
	default:
		return nil, errors.Errorf("ftdihal: unsupported mode %v; only Mode0 and Mode2 are supported", m)
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.maxFreq != 0 && f > p.maxFreq {
		f = p.maxFreq
	}
	if _, err := p.s.setFrequency(f); err != nil {
		return nil, err
	}
	if err := p.setPolarity(pol); err != nil {
		return nil, err
	}
	return p, nil
}

// LimitSpeed implements spi.PortCloser.
func (p *SPI) LimitSpeed(f physic.Frequency) error {
	if f < 100*physic.Hertz || f > mpsse.MaxFrequency {
		return errors.Errorf("ftdihal: invalid speed %s", f)
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.maxFreq = f
	if p.s.freq > f {
		_, err := p.s.setFrequency(f)
		return err
	}
	return nil
}

// Close implements spi.PortCloser.
//
// The pins stay owned by the bus until the session is closed.
func (p *SPI) Close() error {
	return nil
}

// edges returns the edges on which data is clocked out and in.
func (p *SPI) edges() (gpio.Edge, gpio.Edge) {
	if p.pol == IdleHigh {
		return gpio.RisingEdge, gpio.FallingEdge
	}
	return gpio.FallingEdge, gpio.RisingEdge
}

// exec runs ops as one command batch, framed by cs when not nil.
func (p *SPI) exec(cs *Pin, ops []Operation) error {
	for i := range ops {
		if err := ops[i].validate(); err != nil {
			return err
		}
	}
	s := p.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out, in := p.edges()
	c := mpsse.New()
	if cs != nil {
		s.reg.set(*cs, false)
		s.setBank(c, cs.bank())
	}
	for i := range ops {
		ops[i].encode(c, out, in)
	}
	if cs != nil {
		s.reg.set(*cs, true)
		s.setBank(c, cs.bank())
	}
	resp, err := s.run(c.SendImmediate())
	if err != nil {
		return err
	}
	for i := range ops {
		resp = ops[i].scatter(resp)
	}
	return nil
}

var _ spi.Conn = &SPI{}
var _ spi.PortCloser = &SPI{}
