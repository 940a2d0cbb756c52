// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
)

func newI2C(t *testing.T, fast bool) (*fakeMPSSE, *fakeI2CTarget, *I2C) {
	t.Helper()
	f := newFakeMPSSE()
	target := &fakeI2CTarget{addr: 0x50}
	f.target = target
	s := newSession(t, f)
	bus, err := s.I2C()
	if err != nil {
		t.Fatal(err)
	}
	bus.SetFast(fast)
	return f, target, bus
}

func TestI2C_init(t *testing.T) {
	f := newFakeMPSSE()
	s := newSession(t, f)
	m := f.mark()
	if _, err := s.I2C(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x80, 0x00, 0x00, 0x8C, 0x87}, f.stream(m)); diff != "" {
		t.Fatal(diff)
	}
}

func TestI2C_Probe_encoding(t *testing.T) {
	f, _, bus := newI2C(t, true)
	if err := bus.SetStartStopMargin(1); err != nil {
		t.Fatal(err)
	}
	m := f.mark()
	if err := bus.Probe(0x50); err != nil {
		t.Fatal(err)
	}
	want := []byte{
		// START
		0x80, 0x03, 0x03,
		0x80, 0x01, 0x03,
		0x80, 0x00, 0x03,
		// Address
		0x80, 0x00, 0x03,
		0x13, 0x07, 0xA0,
		0x80, 0x00, 0x01,
		0x22, 0x00,
		// STOP
		0x80, 0x00, 0x03,
		0x80, 0x01, 0x03,
		0x80, 0x03, 0x03,
		0x80, 0x00, 0x00,
		0x87,
	}
	if diff := cmp.Diff(want, f.stream(m)); diff != "" {
		t.Fatal(diff)
	}
}

func TestI2C_Read_encoding(t *testing.T) {
	f, target, bus := newI2C(t, true)
	if err := bus.SetStartStopMargin(1); err != nil {
		t.Fatal(err)
	}
	target.mem = []byte{0x12, 0x34}
	m := f.mark()
	r := make([]byte, 2)
	if err := bus.Read(0x50, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x12, 0x34}, r); diff != "" {
		t.Fatal(diff)
	}
	got := f.stream(m)
	// Skip START and the address.
	got = got[9+11:]
	want := []byte{
		0x80, 0x00, 0x01,
		0x22, 0x07,
		0x80, 0x00, 0x03,
		0x13, 0x00, 0x00,
		0x80, 0x00, 0x01,
		0x22, 0x07,
		0x80, 0x00, 0x03,
		0x13, 0x00, 0x80,
	}
	if diff := cmp.Diff(want, got[:len(want)]); diff != "" {
		t.Fatal(diff)
	}
}

// Both modes must put the same bytes on the wire, only the flushing differs.
func TestI2C_modesEquivalent(t *testing.T) {
	ops := []struct {
		name string
		fn   func(bus *I2C) error
	}{
		{"probe", func(bus *I2C) error { return bus.Probe(0x50) }},
		{"write", func(bus *I2C) error { return bus.Write(0x50, []byte{1, 2, 3}) }},
		{"read", func(bus *I2C) error { return bus.Read(0x50, make([]byte, 3)) }},
		{"writeread", func(bus *I2C) error { return bus.WriteRead(0x50, []byte{7}, make([]byte, 2)) }},
	}
	for _, op := range ops {
		for _, margin := range []int{1, 3, 10} {
			var streams [2][]byte
			var events [2][]string
			for i, fast := range []bool{false, true} {
				f, target, bus := newI2C(t, fast)
				if err := bus.SetStartStopMargin(margin); err != nil {
					t.Fatal(err)
				}
				m := f.mark()
				if err := op.fn(bus); err != nil {
					t.Fatalf("%s/%d/%t: %v", op.name, margin, fast, err)
				}
				for _, w := range f.writes[m:] {
					if w[len(w)-1] != 0x87 {
						t.Fatalf("%s/%d/%t: not flushed: %x", op.name, margin, fast, w)
					}
					streams[i] = append(streams[i], w[:len(w)-1]...)
				}
				events[i] = target.events
			}
			if diff := cmp.Diff(streams[0], streams[1]); diff != "" {
				t.Fatalf("%s/%d: (-slow +fast):\n%s", op.name, margin, diff)
			}
			if diff := cmp.Diff(events[0], events[1]); diff != "" {
				t.Fatalf("%s/%d: (-slow +fast):\n%s", op.name, margin, diff)
			}
		}
	}
}

func TestI2C_WriteRead_events(t *testing.T) {
	_, target, bus := newI2C(t, false)
	r := make([]byte, 2)
	if err := bus.WriteRead(0x50, []byte{1, 2}, r); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"start", "addr a0", "w 01", "w 02",
		"start", "addr a1", "ack", "nak",
		"stop",
	}
	if diff := cmp.Diff(want, target.events); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]byte{1, 2}, r); diff != "" {
		t.Fatal(diff)
	}
}

func TestI2C_roundTrip(t *testing.T) {
	for _, fast := range []bool{false, true} {
		_, _, bus := newI2C(t, fast)
		w := []byte{0xDE, 0xAD, 0xBE, 0xEF}
		if err := bus.Write(0x50, w); err != nil {
			t.Fatal(err)
		}
		r := make([]byte, len(w))
		if err := bus.Read(0x50, r); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(w, r) {
			t.Fatalf("%t: %x != %x", fast, w, r)
		}
	}
}

func TestI2C_Tx(t *testing.T) {
	_, _, bus := newI2C(t, true)
	if err := bus.Tx(0x50, []byte{0x55, 0x66}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 2)
	if err := bus.Tx(0x50, nil, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0x55, 0x66}, r); diff != "" {
		t.Fatal(diff)
	}
	if err := bus.Tx(0x50, nil, nil); err != ErrEmptyBuffer {
		t.Fatal(err)
	}
}

func TestI2C_acked(t *testing.T) {
	for v := 0; v < 256; v++ {
		if acked(byte(v)) != (v&1 == 0) {
			t.Fatalf("%#x", v)
		}
	}
}

func TestI2C_nak(t *testing.T) {
	data := []struct {
		name   string
		nakAt  int
		read   bool
		fn     func(bus *I2C) error
		addr   uint16
		index  int
		writes int // writes in slow mode
	}{
		{"probe", 0, false, func(bus *I2C) error { return bus.Probe(0x51) }, 0x51, 0, 1},
		{"address", 0, false, func(bus *I2C) error { return bus.Write(0x51, []byte{1, 2, 3}) }, 0x51, 0, 1},
		{"data", 2, false, func(bus *I2C) error { return bus.Write(0x50, []byte{1, 2, 3}) }, 0x50, 2, 3},
		{"read", 0, true, func(bus *I2C) error { return bus.Read(0x50, make([]byte, 2)) }, 0x50, 0, 1},
		{"restart", 0, true, func(bus *I2C) error {
			return bus.WriteRead(0x50, []byte{1, 2}, make([]byte, 2))
		}, 0x50, 3, 4},
	}
	for _, line := range data {
		for _, fast := range []bool{false, true} {
			f, target, bus := newI2C(t, fast)
			target.nakAt = line.nakAt
			target.nakRead = line.read
			m := f.mark()
			err := line.fn(bus)
			if !errors.Is(err, ErrNoAck) {
				t.Fatalf("%s/%t: %v", line.name, fast, err)
			}
			var nak *NAKError
			if !errors.As(err, &nak) {
				t.Fatalf("%s/%t: %v", line.name, fast, err)
			}
			if diff := cmp.Diff(&NAKError{Addr: line.addr, Index: line.index}, nak); diff != "" {
				t.Fatalf("%s/%t: %s", line.name, fast, diff)
			}
			n := f.mark() - m
			if fast {
				if n != 1 {
					t.Fatalf("%s: %d writes", line.name, n)
				}
				// The transaction ran to completion.
				if target.events[len(target.events)-1] != "stop" {
					t.Fatalf("%s: %v", line.name, target.events)
				}
				continue
			}
			if n != line.writes {
				t.Fatalf("%s: %d writes, want %d", line.name, n, line.writes)
			}
			// The transaction was aborted before the STOP, except when the
			// failed step was the last one.
			if line.name != "probe" {
				for _, e := range target.events {
					if e == "stop" {
						t.Fatalf("%s: %v", line.name, target.events)
					}
				}
			}
		}
	}
}

func TestI2C_nak_readUntouched(t *testing.T) {
	for _, fast := range []bool{false, true} {
		_, target, bus := newI2C(t, fast)
		target.nakRead = true
		r := []byte{0x11, 0x22}
		if err := bus.Read(0x50, r); !errors.Is(err, ErrNoAck) {
			t.Fatalf("%t: %v", fast, err)
		}
		if diff := cmp.Diff([]byte{0x11, 0x22}, r); diff != "" {
			t.Fatalf("%t: %s", fast, diff)
		}

		_, target, bus = newI2C(t, fast)
		target.nakAt = 2
		if err := bus.WriteRead(0x50, []byte{1, 2}, r); !errors.Is(err, ErrNoAck) {
			t.Fatalf("%t: %v", fast, err)
		}
		if diff := cmp.Diff([]byte{0x11, 0x22}, r); diff != "" {
			t.Fatalf("%t: %s", fast, diff)
		}
	}
}

func TestI2C_invalid(t *testing.T) {
	f, _, bus := newI2C(t, false)
	m := f.mark()
	if err := bus.Write(0x80, []byte{1}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatal(err)
	}
	if err := bus.Probe(0xFFFF); !errors.Is(err, ErrInvalidAddress) {
		t.Fatal(err)
	}
	if err := bus.Write(0x50, nil); err != ErrEmptyBuffer {
		t.Fatal(err)
	}
	if err := bus.Read(0x50, []byte{}); err != ErrEmptyBuffer {
		t.Fatal(err)
	}
	if err := bus.WriteRead(0x50, []byte{1}, nil); err != ErrEmptyBuffer {
		t.Fatal(err)
	}
	if err := bus.SetStartStopMargin(0); err != ErrInvalidMargin {
		t.Fatal(err)
	}
	if f.mark() != m {
		t.Fatal("invalid call touched the bus")
	}
}

func TestI2C_SetSpeed(t *testing.T) {
	f, _, bus := newI2C(t, false)
	if err := bus.SetSpeed(100 * physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	// 150kHz
	if f.divisor != 199 {
		t.Fatal(f.divisor)
	}
	if err := bus.SetSpeed(11 * physic.MegaHertz); err == nil {
		t.Fatal("expected failure")
	}
	if err := bus.SetSpeed(10 * physic.Hertz); err == nil {
		t.Fatal("expected failure")
	}
	if s := bus.String(); s != "ftdihal-i2c" {
		t.Fatal(s)
	}
}
