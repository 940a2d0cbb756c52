// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package d2xx

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/ftdihal/hal"
)

// Info is the information gathered about the connected FTDI device.
//
// The data is gathered from the USB descriptor.
type Info struct {
	// Index is the position in the driver's device list.
	Index int
	// Type is the FTDI device type.
	Type DevType
	// VenID is the vendor ID from the USB descriptor information. It is expected
	// to be 0x0403 (FTDI).
	VenID uint16
	// DevID is the product ID from the USB descriptor information. It is
	// expected to be one of 0x6001, 0x6010, 0x6011 or 0x6014.
	DevID uint16
}

func (i *Info) String() string {
	return i.Type.String() + "(" + strconv.Itoa(i.Index) + ")"
}

// Dev is an opened D2XX device.
//
// It implements hal.Device. Each interface of a multi-interface chip is a
// separate device for the driver.
type Dev struct {
	info Info

	mu     sync.Mutex
	h      d2xxHandle
	closed bool
}

func (d *Dev) String() string {
	return d.info.String()
}

// Info returns the device information.
func (d *Dev) Info() Info {
	return d.info
}

// Close closes the handle. It is safe to call it multiple times.
func (d *Dev) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return toErr("Close", d.h.d2xxClose())
}

// Write implements hal.Device.
func (d *Dev) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n, e := d.h.d2xxWrite(b)
	if e != 0 {
		return n, toErr("Write", e)
	}
	if n != len(b) {
		return n, errors.Errorf("d2xx: Write: wrote %d bytes out of %d", n, len(b))
	}
	return n, nil
}

// Read implements hal.Device.
//
// It only reads what the driver already received.
func (d *Dev) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	p, e := d.h.d2xxGetQueueStatus()
	if p == 0 || e != 0 {
		return 0, toErr("Read/GetQueueStatus", e)
	}
	v := int(p)
	if v > len(b) {
		v = len(b)
	}
	n, e := d.h.d2xxRead(b[:v])
	return n, toErr("Read", e)
}

// Reset implements hal.Device.
func (d *Dev) Reset() error {
	return toErr("Reset", d.h.d2xxResetDevice())
}

// Purge implements hal.Device.
func (d *Dev) Purge() error {
	return toErr("Purge", d.h.d2xxPurge(purgeRX|purgeTX))
}

// SetChunkSize implements hal.Device.
//
// The driver requires multiples of 64 bytes.
func (d *Dev) SetChunkSize(read, write int) error {
	if read < 64 || read > 65536 || read%64 != 0 || write < 64 || write > 65536 || write%64 != 0 {
		return errors.Errorf("d2xx: invalid chunk sizes %d, %d", read, write)
	}
	return toErr("SetUSBParameters", d.h.d2xxSetUSBParameters(read, write))
}

// SetTimeouts implements hal.Device.
func (d *Dev) SetTimeouts(read, write time.Duration) error {
	if read < time.Millisecond || write < time.Millisecond {
		return errors.Errorf("d2xx: invalid timeouts %s, %s", read, write)
	}
	return toErr("SetTimeouts", d.h.d2xxSetTimeouts(int(read/time.Millisecond), int(write/time.Millisecond)))
}

// SetLatencyTimer implements hal.Device.
func (d *Dev) SetLatencyTimer(l time.Duration) error {
	if l < time.Millisecond || l > 255*time.Millisecond {
		return errors.Errorf("d2xx: invalid latency timer %s", l)
	}
	return toErr("SetLatencyTimer", d.h.d2xxSetLatencyTimer(uint8(l/time.Millisecond)))
}

// SetBitMode implements hal.Device.
func (d *Dev) SetBitMode(mask byte, mode hal.BitMode) error {
	return toErr("SetBitMode", d.h.d2xxSetBitMode(mask, byte(mode)))
}

// SetBaudRate implements hal.Device.
//
// The driver takes care of the bit-bang multiplier.
func (d *Dev) SetBaudRate(hz int) error {
	if hz <= 0 || int64(hz) >= 1<<31 {
		return errors.Errorf("d2xx: invalid baud rate %d", hz)
	}
	return toErr("SetBaudRate", d.h.d2xxSetBaudRate(uint32(hz)))
}

var _ hal.Device = &Dev{}
