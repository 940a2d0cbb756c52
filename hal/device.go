// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"io"
	"strconv"
	"time"
)

// Device is an opened FTDI interface.
//
// It is implemented by periph.io/x/ftdihal/hostextra/ftdiusb over libusb and
// by periph.io/x/ftdihal/hostextra/d2xx over the FTDI proprietary driver.
type Device interface {
	io.Closer
	// Write sends bytes to the chip.
	Write(b []byte) (int, error)
	// Read returns the bytes already received from the chip. It may return 0
	// bytes and no error when nothing is pending.
	Read(b []byte) (int, error)
	// Reset resets the USB port of the chip.
	Reset() error
	// Purge discards the pending bytes in both directions.
	Purge() error
	// SetChunkSize sets the USB transfer sizes.
	SetChunkSize(read, write int) error
	// SetTimeouts sets the USB transfer timeouts.
	SetTimeouts(read, write time.Duration) error
	// SetLatencyTimer sets the delay after which a partially filled buffer is
	// sent back to the host.
	SetLatencyTimer(d time.Duration) error
	// SetBitMode changes the mode of operation of the interface.
	//
	// mask sets which pins are outputs in the bit-bang modes.
	SetBitMode(mask byte, mode BitMode) error
	// SetBaudRate sets the sampling rate in the bit-bang modes.
	SetBaudRate(hz int) error
}

// BitMode is the mode of operation of an interface.
type BitMode uint8

const (
	// BitModeReset resets all pins to their default value.
	BitModeReset BitMode = 0x00
	// BitModeAsyncBitbang sets the DBus to asynchronous bit-bang.
	BitModeAsyncBitbang BitMode = 0x01
	// BitModeMPSSE switches to MPSSE mode (FT2232, FT2232H, FT4232H and
	// FT232H).
	BitModeMPSSE BitMode = 0x02
	// BitModeSyncBitbang sets the DBus to synchronous bit-bang (FT232R,
	// FT245R, FT2232, FT2232H, FT4232H and FT232H).
	BitModeSyncBitbang BitMode = 0x04
	// BitModeCbusBitbang sets the CBus in 4 bits bit-bang mode (FT232R and
	// FT232H).
	BitModeCbusBitbang BitMode = 0x20
)

func (b BitMode) String() string {
	switch b {
	case BitModeReset:
		return "Reset"
	case BitModeAsyncBitbang:
		return "AsyncBitbang"
	case BitModeMPSSE:
		return "MPSSE"
	case BitModeSyncBitbang:
		return "SyncBitbang"
	case BitModeCbusBitbang:
		return "CbusBitbang"
	default:
		return "BitMode(" + strconv.Itoa(int(b)) + ")"
	}
}
