// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrPinInUse is returned when acquiring a pin that already has an owner.
	//
	// It always denotes a wiring or programming mistake: the pin stays owned
	// until the session is closed.
	ErrPinInUse = errors.New("ftdihal: pin already in use")
	// ErrNoAck is returned when an I²C target did not acknowledge a byte.
	ErrNoAck = errors.New("ftdihal: no acknowledge")
	// ErrEmptyBuffer is returned for a zero length read or write.
	ErrEmptyBuffer = errors.New("ftdihal: empty buffer")
	// ErrReadTooLong is returned by SPI transfers when the read buffer is
	// longer than the write buffer.
	ErrReadTooLong = errors.New("ftdihal: read buffer longer than write buffer")
	// ErrInvalidAddress is returned for an I²C address that doesn't fit in 7
	// bits.
	ErrInvalidAddress = errors.New("ftdihal: invalid I²C address")
	// ErrInvalidMargin is returned for an I²C START/STOP margin of 0.
	ErrInvalidMargin = errors.New("ftdihal: START/STOP margin must be at least 1")
	// ErrInvalidPin is returned for a pin that doesn't exist.
	ErrInvalidPin = errors.New("ftdihal: invalid pin")
	// ErrUpperBank is returned when using C0~C7 in synchronous bit-bang mode.
	ErrUpperBank = errors.New("ftdihal: upper pin bank is not available in bit-bang mode")
	// ErrTimeout is returned when the device didn't send back the expected
	// bytes in time.
	ErrTimeout = errors.New("ftdihal: timeout")
	// ErrClosed is returned when using a closed session.
	ErrClosed = errors.New("ftdihal: session closed")
	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("ftdihal: already initialized")
)

// AllocationError is returned when a pin is requested for a use while it is
// already owned.
type AllocationError struct {
	Pin   Pin
	Want  Owner
	Owner Owner
}

func (a *AllocationError) Error() string {
	return fmt.Sprintf("ftdihal: %s requested as %s is already used as %s", a.Pin, a.Want, a.Owner)
}

// Unwrap returns ErrPinInUse.
func (a *AllocationError) Unwrap() error {
	return ErrPinInUse
}

// NAKError is returned when an I²C target did not acknowledge.
//
// Index is 0 for the address byte and i+1 for the i-th written byte. For a
// write-then-read, the second address byte is at len(w)+1.
type NAKError struct {
	Addr  uint16
	Index int
}

func (n *NAKError) Error() string {
	if n.Index == 0 {
		return fmt.Sprintf("ftdihal: no acknowledge from address 0x%02x", n.Addr)
	}
	return fmt.Sprintf("ftdihal: no acknowledge from address 0x%02x at byte %d", n.Addr, n.Index)
}

// Unwrap returns ErrNoAck.
func (n *NAKError) Unwrap() error {
	return ErrNoAck
}
