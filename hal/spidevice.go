// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"github.com/pkg/errors"
	"periph.io/x/ftdihal/mpsse"
	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/spi"
)

// SPIDevice is a device on a SPI bus, selected by an active low chip select.
type SPIDevice struct {
	bus *SPI
	cs  Pin
}

// Transaction asserts the chip select, runs ops in order then deasserts it.
//
// The whole transaction is sent as one command batch, so no other peripheral
// of the session can use the chip in between. Read buffers are filled once
// the transaction completed.
func (d *SPIDevice) Transaction(ops ...Operation) error {
	return d.bus.exec(&d.cs, ops)
}

// Write is a transaction with a single write.
func (d *SPIDevice) Write(w []byte) error {
	return d.Transaction(WriteOp(w))
}

// Read is a transaction with a single read.
func (d *SPIDevice) Read(r []byte) error {
	return d.Transaction(ReadOp(r))
}

// Transfer is a transaction with a single transfer.
func (d *SPIDevice) Transfer(w, r []byte) error {
	return d.Transaction(TransferOp(w, r))
}

// TransferInPlace is a transaction with a single in place transfer.
func (d *SPIDevice) TransferInPlace(b []byte) error {
	return d.Transaction(TransferInPlaceOp(b))
}

// Tx implements spi.Conn.
func (d *SPIDevice) Tx(w, r []byte) error {
	return d.Transaction(txOp(w, r))
}

// TxPackets implements spi.Conn.
//
// All the packets are sent in one transaction; KeepCS is implied.
func (d *SPIDevice) TxPackets(pkts []spi.Packet) error {
	ops, err := packetOps(pkts)
	if err != nil {
		return err
	}
	return d.Transaction(ops...)
}

// Duplex implements conn.Conn.
func (d *SPIDevice) Duplex() conn.Duplex {
	return conn.Full
}

// String implements conn.Conn.
func (d *SPIDevice) String() string {
	return "ftdihal-spi(" + d.cs.String() + ")"
}

// Operation is one step of a SPI transaction.
type Operation struct {
	kind opKind
	w, r []byte
}

type opKind uint8

const (
	opWrite opKind = iota
	opRead
	opTransfer
)

// WriteOp clocks out w.
func WriteOp(w []byte) Operation {
	return Operation{kind: opWrite, w: w}
}

// ReadOp clocks in len(r) bytes.
func ReadOp(r []byte) Operation {
	return Operation{kind: opRead, r: r}
}

// TransferOp clocks out w and keeps the first len(r) bytes clocked in.
func TransferOp(w, r []byte) Operation {
	return Operation{kind: opTransfer, w: w, r: r}
}

// TransferInPlaceOp clocks out b and replaces it with the bytes clocked in.
func TransferInPlaceOp(b []byte) Operation {
	return Operation{kind: opTransfer, w: b, r: b}
}

func txOp(w, r []byte) Operation {
	switch {
	case len(r) == 0:
		return WriteOp(w)
	case len(w) == 0:
		return ReadOp(r)
	default:
		return TransferOp(w, r)
	}
}

func packetOps(pkts []spi.Packet) ([]Operation, error) {
	ops := make([]Operation, 0, len(pkts))
	for _, p := range pkts {
		if p.BitsPerWord != 0 && p.BitsPerWord != 8 {
			return nil, errors.New("ftdihal: only 8 bits words are supported")
		}
		ops = append(ops, txOp(p.W, p.R))
	}
	return ops, nil
}

func (o *Operation) validate() error {
	switch o.kind {
	case opWrite:
		if len(o.w) == 0 {
			return ErrEmptyBuffer
		}
	case opRead:
		if len(o.r) == 0 {
			return ErrEmptyBuffer
		}
	default:
		if len(o.w) == 0 || len(o.r) == 0 {
			return ErrEmptyBuffer
		}
		if len(o.r) > len(o.w) {
			return ErrReadTooLong
		}
	}
	return nil
}

func (o *Operation) encode(c *mpsse.Cmd, out, in gpio.Edge) {
	switch o.kind {
	case opWrite:
		c.ClockBytesOut(out, o.w)
	case opRead:
		c.ClockBytesIn(in, len(o.r))
	default:
		c.ClockBytes(out, in, o.w)
	}
}

// scatter consumes the response of o from b and returns the rest.
func (o *Operation) scatter(b []byte) []byte {
	switch o.kind {
	case opWrite:
		return b
	case opRead:
		copy(o.r, b)
		return b[len(o.r):]
	default:
		copy(o.r, b[:len(o.w)])
		return b[len(o.w):]
	}
}

var _ spi.Conn = &SPIDevice{}
