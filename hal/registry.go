// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"strconv"

	"github.com/pkg/errors"
)

// Pin is a GPIO line of the interface.
type Pin uint8

// Pins of the lower bank (ADBUS or BDBUS) then of the upper bank (ACBUS or
// BCBUS).
const (
	AD0 Pin = iota
	AD1
	AD2
	AD3
	AD4
	AD5
	AD6
	AD7
	AC0
	AC1
	AC2
	AC3
	AC4
	AC5
	AC6
	AC7
)

func (p Pin) String() string {
	switch {
	case p < AC0:
		return "AD" + strconv.Itoa(int(p))
	case p <= AC7:
		return "AC" + strconv.Itoa(int(p-AC0))
	default:
		return "Pin(" + strconv.Itoa(int(p)) + ")"
	}
}

func (p Pin) bank() int {
	return int(p >> 3)
}

func (p Pin) mask() byte {
	return 1 << (p & 7)
}

func (p Pin) valid() bool {
	return p <= AC7
}

// Owner is the use a pin was acquired for.
type Owner uint8

// Pin owners.
const (
	OwnerNone Owner = iota
	OwnerI2C
	OwnerSPI
	OwnerOutput
	OwnerInput
)

func (o Owner) String() string {
	switch o {
	case OwnerNone:
		return "none"
	case OwnerI2C:
		return "I²C"
	case OwnerSPI:
		return "SPI"
	case OwnerOutput:
		return "output"
	case OwnerInput:
		return "input"
	default:
		return "Owner(" + strconv.Itoa(int(o)) + ")"
	}
}

// bank is the cached state of 8 pins.
//
// The chip can't report back the direction of its pins so the cache is
// authoritative.
type bank struct {
	direction byte
	value     byte
	owners    [8]Owner
}

// registry arbitrates the ownership of the pins of both banks.
type registry struct {
	banks [2]bank
}

// allocate assigns all of pins to w, or none of them.
func (r *registry) allocate(w Owner, pins ...Pin) error {
	for _, p := range pins {
		if !p.valid() {
			return errors.Wrap(ErrInvalidPin, p.String())
		}
		if o := r.owner(p); o != OwnerNone {
			return &AllocationError{Pin: p, Want: w, Owner: o}
		}
	}
	for _, p := range pins {
		r.banks[p.bank()].owners[p&7] = w
	}
	return nil
}

func (r *registry) owner(p Pin) Owner {
	if !p.valid() {
		return OwnerNone
	}
	return r.banks[p.bank()].owners[p&7]
}

// output marks p as an output at level l.
func (r *registry) output(p Pin, l bool) {
	b := &r.banks[p.bank()]
	b.direction |= p.mask()
	r.set(p, l)
}

// input marks p as an input.
func (r *registry) input(p Pin) {
	r.banks[p.bank()].direction &^= p.mask()
}

func (r *registry) set(p Pin, l bool) {
	b := &r.banks[p.bank()]
	if l {
		b.value |= p.mask()
	} else {
		b.value &^= p.mask()
	}
}
