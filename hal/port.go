// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"encoding/hex"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// pollInterval slows down the busy loop waiting for the chip's response.
const pollInterval = 50 * time.Microsecond

// maxPending is the transmit buffer of the FT232H, the smallest of the MPSSE
// capable chips supported.
const maxPending = 1024

// port is the I/O layer shared by the MPSSE and the bit-bang sessions.
type port struct {
	d           Device
	log         *zap.Logger
	clk         clock.Clock
	readTimeout time.Duration
	// maxPending bounds the response bytes left for the chip to buffer.
	maxPending int
}

// setup configures the USB side of the device.
func (p *port) setup(s *Settings) error {
	if s.Reset {
		if err := p.d.Reset(); err != nil {
			return errors.Wrap(err, "ftdihal: reset")
		}
	}
	if err := p.d.Purge(); err != nil {
		return errors.Wrap(err, "ftdihal: purge")
	}
	if err := p.d.SetChunkSize(s.ReadChunkSize, s.WriteChunkSize); err != nil {
		return errors.Wrap(err, "ftdihal: set chunk size")
	}
	if err := p.d.SetTimeouts(s.ReadTimeout, s.WriteTimeout); err != nil {
		return errors.Wrap(err, "ftdihal: set timeouts")
	}
	if err := p.d.SetLatencyTimer(s.LatencyTimer); err != nil {
		return errors.Wrap(err, "ftdihal: set latency timer")
	}
	p.readTimeout = s.ReadTimeout
	p.maxPending = min(s.ReadChunkSize, maxPending)
	return nil
}

func (p *port) setBitMode(mask byte, mode BitMode) error {
	p.log.Debug("bitmode", zap.Stringer("mode", mode), zap.Uint8("mask", mask))
	return errors.Wrapf(p.d.SetBitMode(mask, mode), "ftdihal: set bitmode %s", mode)
}

// write sends all of b.
func (p *port) write(b []byte) error {
	if ce := p.log.Check(zap.DebugLevel, "write"); ce != nil {
		ce.Write(zap.String("data", hex.EncodeToString(b)))
	}
	for len(b) != 0 {
		n, err := p.d.Write(b)
		if err != nil {
			return errors.Wrap(err, "ftdihal: write")
		}
		if n == 0 {
			return errors.New("ftdihal: write: device accepted no data")
		}
		b = b[n:]
	}
	return nil
}

// readFull reads exactly len(b) bytes, polling the device until the read
// timeout expires.
func (p *port) readFull(b []byte) error {
	deadline := p.clk.Now().Add(p.readTimeout)
	for off := 0; off < len(b); {
		n, err := p.d.Read(b[off:])
		if err != nil {
			return errors.Wrap(err, "ftdihal: read")
		}
		off += n
		if n != 0 {
			continue
		}
		if !p.clk.Now().Before(deadline) {
			return errors.Wrapf(ErrTimeout, "ftdihal: read %d of %d bytes", off, len(b))
		}
		p.clk.Sleep(pollInterval)
	}
	if ce := p.log.Check(zap.DebugLevel, "read"); ce != nil {
		ce.Write(zap.String("data", hex.EncodeToString(b)))
	}
	return nil
}

// waitByte waits until at least one byte is available, then drains the
// device. It returns the last byte received.
func (p *port) waitByte() (byte, error) {
	deadline := p.clk.Now().Add(p.readTimeout)
	for {
		last, n, err := p.drain()
		if err != nil || n != 0 {
			return last, err
		}
		if !p.clk.Now().Before(deadline) {
			return 0, errors.Wrap(ErrTimeout, "ftdihal: no sample received")
		}
		p.clk.Sleep(pollInterval)
	}
}

// drain discards the bytes pending on the device. It returns the last one
// and how many were discarded.
func (p *port) drain() (byte, int, error) {
	var buf [64]byte
	var last byte
	total := 0
	for {
		n, err := p.d.Read(buf[:])
		if err != nil {
			return last, total, errors.Wrap(err, "ftdihal: drain")
		}
		if n == 0 {
			return last, total, nil
		}
		last = buf[n-1]
		total += n
	}
}
