// Copyright 2019 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdiusb

import (
	"context"
	"io"
	"time"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"periph.io/x/ftdihal/hal"
)

// Dev is an opened interface of a FTDI chip.
//
// It implements hal.Device.
type Dev struct {
	desc  Desc
	iface Interface

	ctrl controller
	in   reader
	out  writer
	// closers release the USB resources, in order.
	closers []func() error

	packet       int
	readChunk    int
	writeChunk   int
	readTimeout  time.Duration
	writeTimeout time.Duration
	bitbang      bool
	// pending is payload received from the chip but not returned yet.
	pending []byte
	buf     []byte
}

func (d *Dev) String() string {
	return d.desc.String() + "/" + d.iface.String()
}

// Desc returns the description of the chip.
func (d *Dev) Desc() Desc {
	return d.desc
}

// Close releases the interface and closes the device.
func (d *Dev) Close() error {
	var err error
	for _, c := range d.closers {
		err = multierr.Append(err, c())
	}
	d.closers = nil
	return err
}

// Write sends b in chunks of the configured write chunk size.
func (d *Dev) Write(b []byte) (int, error) {
	total := 0
	for len(b) != 0 {
		n := len(b)
		if n > d.writeChunk {
			n = d.writeChunk
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.writeTimeout)
		w, err := d.out.WriteContext(ctx, b[:n])
		cancel()
		total += w
		if err != nil {
			return total, errors.Wrap(err, "ftdiusb: write")
		}
		if w == 0 {
			return total, io.ErrShortWrite
		}
		b = b[w:]
	}
	return total, nil
}

// Read returns the bytes received from the chip.
//
// It does at most one bulk transfer, which the chip completes at the latest
// when its latency timer expires, so it returns 0 bytes when nothing is
// pending.
func (d *Dev) Read(b []byte) (int, error) {
	if len(d.pending) == 0 {
		if err := d.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(b, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

// Reset resets the SIO state of the interface.
func (d *Dev) Reset() error {
	d.pending = nil
	return d.control("reset", sioReset, sioResetSIO, uint16(d.iface))
}

// Purge discards the buffered data in both directions.
func (d *Dev) Purge() error {
	d.pending = nil
	if err := d.control("purge RX", sioReset, sioResetPurgeRX, uint16(d.iface)); err != nil {
		return err
	}
	return d.control("purge TX", sioReset, sioResetPurgeTX, uint16(d.iface))
}

// SetChunkSize sets the size of the bulk transfers.
//
// The read chunk size is rounded up to a multiple of the packet size, since
// each packet carries its own status bytes.
func (d *Dev) SetChunkSize(read, write int) error {
	if read <= 0 || write <= 0 {
		return errors.Errorf("ftdiusb: invalid chunk sizes %d, %d", read, write)
	}
	if r := read % d.packet; r != 0 {
		read += d.packet - r
	}
	d.readChunk = read
	d.writeChunk = write
	d.buf = nil
	return nil
}

// SetTimeouts sets the bulk transfer timeouts.
func (d *Dev) SetTimeouts(read, write time.Duration) error {
	if read <= 0 || write <= 0 {
		return errors.Errorf("ftdiusb: invalid timeouts %s, %s", read, write)
	}
	d.readTimeout = read
	d.writeTimeout = write
	return nil
}

// SetLatencyTimer sets the delay after which the chip sends back a partially
// filled packet.
func (d *Dev) SetLatencyTimer(l time.Duration) error {
	ms := l / time.Millisecond
	if ms < 1 || ms > 255 {
		return errors.Errorf("ftdiusb: invalid latency %s", l)
	}
	return d.control("set latency timer", sioSetLatency, uint16(ms), uint16(d.iface))
}

// SetBitMode changes the mode of the interface.
func (d *Dev) SetBitMode(mask byte, mode hal.BitMode) error {
	if err := d.control("set bitmode", sioSetBitMode, uint16(mask)|uint16(mode)<<8, uint16(d.iface)); err != nil {
		return err
	}
	d.bitbang = mode != hal.BitModeReset
	return nil
}

// SetBaudRate sets the baud rate, which is the sampling rate in the bit-bang
// modes.
//
// As with libftdi, the rate is multiplied by 4 when a bit-bang mode is
// enabled.
func (d *Dev) SetBaudRate(hz int) error {
	if hz <= 0 {
		return errors.Errorf("ftdiusb: invalid baud rate %d", hz)
	}
	if d.bitbang {
		hz *= 4
	}
	value, index, actual := baudRate(hz, d.desc.Type, d.iface)
	// Same 5% tolerance as libftdi.
	if actual*20 > hz*21 || hz*20 > actual*21 {
		return errors.Errorf("ftdiusb: unsupported baud rate %d; closest is %d", hz, actual)
	}
	return d.control("set baud rate", sioSetBaudRate, value, index)
}

//

func (d *Dev) control(op string, request uint8, value, index uint16) error {
	_, err := d.ctrl.Control(requestType, request, value, index, nil)
	return errors.Wrap(err, "ftdiusb: "+op)
}

// fill does one bulk IN transfer and keeps its payload.
func (d *Dev) fill() error {
	if d.buf == nil {
		d.buf = make([]byte, d.readChunk)
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.readTimeout)
	defer cancel()
	n, err := d.in.ReadContext(ctx, d.buf)
	d.pending = stripStatus(d.pending[:0], d.buf[:n], d.packet)
	if err != nil && !isTimeout(err) {
		return errors.Wrap(err, "ftdiusb: read")
	}
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || err == gousb.TransferTimedOut || err == gousb.TransferCancelled
}

// controller is implemented by *gousb.Device.
type controller interface {
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
}

// reader is implemented by *gousb.InEndpoint.
type reader interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

// writer is implemented by *gousb.OutEndpoint.
type writer interface {
	WriteContext(ctx context.Context, buf []byte) (int, error)
}

func newDev(desc Desc, i Interface, ctrl controller, in reader, out writer, packet int) *Dev {
	if packet <= statusBytes {
		packet = defaultPacketSize
	}
	return &Dev{
		desc:         desc,
		iface:        i,
		ctrl:         ctrl,
		in:           in,
		out:          out,
		packet:       packet,
		readChunk:    4096,
		writeChunk:   4096,
		readTimeout:  time.Second,
		writeTimeout: time.Second,
	}
}

var _ hal.Device = &Dev{}
