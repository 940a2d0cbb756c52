// Copyright 2019 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdiusb

import (
	"strconv"
)

// Vendor requests of the FTDI SIO protocol.
//
// https://github.com/torvalds/linux/blob/master/drivers/usb/serial/ftdi_sio.h
const (
	requestType = 0x40 // Host to device, vendor, device.

	sioReset          = 0x00
	sioSetBaudRate    = 0x03
	sioSetLatency     = 0x09
	sioSetBitMode     = 0x0B
	sioResetSIO       = 0
	sioResetPurgeRX   = 1
	sioResetPurgeTX   = 2
	statusBytes       = 2
	defaultPacketSize = 512
)

// VendorID is FTDI's USB vendor ID.
const VendorID = 0x0403

// Type is the FTDI chip model.
type Type uint8

// Supported chips.
const (
	TypeUnknown Type = iota
	TypeFT232R
	TypeFT2232C
	TypeFT2232H
	TypeFT4232H
	TypeFT232H
)

func (t Type) String() string {
	switch t {
	case TypeFT232R:
		return "FT232R"
	case TypeFT2232C:
		return "FT2232C"
	case TypeFT2232H:
		return "FT2232H"
	case TypeFT4232H:
		return "FT4232H"
	case TypeFT232H:
		return "FT232H"
	default:
		return "Unknown"
	}
}

// typeFromBCD returns the chip model and its number of interfaces from the
// bcdDevice field of the device descriptor.
func typeFromBCD(bcd uint16) (Type, int) {
	switch bcd {
	case 0x0500:
		return TypeFT2232C, 2
	case 0x0600:
		return TypeFT232R, 1
	case 0x0700:
		return TypeFT2232H, 2
	case 0x0800:
		return TypeFT4232H, 4
	case 0x0900:
		return TypeFT232H, 1
	default:
		return TypeUnknown, 1
	}
}

// highSpeed returns true for the chips with a 120MHz base clock.
func (t Type) highSpeed() bool {
	return t == TypeFT2232H || t == TypeFT4232H || t == TypeFT232H
}

// Interface is one of the independent ports of a chip. It is also the index
// used by the vendor requests.
type Interface uint8

// Interfaces.
const (
	InterfaceA Interface = 1 + iota
	InterfaceB
	InterfaceC
	InterfaceD
)

func (i Interface) String() string {
	if i >= InterfaceA && i <= InterfaceD {
		return string(rune('A' + i - 1))
	}
	return "Interface(" + strconv.Itoa(int(i)) + ")"
}

// number is the USB interface number.
func (i Interface) number() int {
	return int(i) - 1
}

// endpoints returns the IN and OUT endpoint numbers, without the direction
// bit: A uses 0x81 and 0x02, B 0x83 and 0x04 and so on.
func (i Interface) endpoints() (int, int) {
	return 2*int(i) - 1, 2 * int(i)
}

// baudRate computes the value and index of the SIO_SET_BAUDRATE request and
// the baud rate actually achieved.
//
// It is the algorithm used by libftdi.
func baudRate(baud int, t Type, i Interface) (uint16, uint16, int) {
	const hClk = 120000000
	const cClk = 48000000
	var best int
	var encoded uint32
	if t.highSpeed() && baud*10 > hClk/0x3FFF {
		best, encoded = clockBits(baud, hClk, 10)
		encoded |= 0x20000
	} else {
		best, encoded = clockBits(baud, cClk, 16)
	}
	value := uint16(encoded)
	index := uint16(encoded >> 16)
	if t.highSpeed() || t == TypeFT2232C {
		// Multi interface chips have the interface in the low byte.
		index = index<<8 | uint16(i)
	}
	return value, index, best
}

// clockBits returns the closest baud rate and its encoded divisor, which has
// 3 fractional bits.
func clockBits(baud, clk, clkDiv int) (int, uint32) {
	fracCode := [8]uint32{0, 3, 2, 4, 1, 5, 6, 7}
	switch {
	case baud >= clk/clkDiv:
		return clk / clkDiv, 0
	case baud >= clk/(clkDiv+clkDiv/2):
		return clk / (clkDiv + clkDiv/2), 1
	case baud >= clk/(2*clkDiv):
		return clk / (2 * clkDiv), 2
	}
	// Divide by 16 to have 3 fractional bits and one bit for rounding.
	div := clk * 16 / clkDiv / baud
	div = div/2 + div&1
	if div > 0x20000 {
		div = 0x1FFFF
	}
	best := clk * 16 / clkDiv / div
	best = best/2 + best&1
	return best, uint32(div>>3) | fracCode[div&7]<<14
}

// stripStatus appends to dst the payload of src, a bulk IN transfer made of
// packets of size packet, each starting with 2 modem status bytes.
func stripStatus(dst, src []byte, packet int) []byte {
	for len(src) != 0 {
		n := packet
		if n > len(src) {
			n = len(src)
		}
		if n > statusBytes {
			dst = append(dst, src[statusBytes:n]...)
		}
		src = src[n:]
	}
	return dst
}
