// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/ftdihal/mpsse"
)

// fakeDevice implements the USB side of Device and records the calls.
type fakeDevice struct {
	mu      sync.Mutex
	calls   []string
	writes  [][]byte
	out     []byte
	readMax int
	// outMax, when set, is the size of the chip's transmit buffer. A write
	// overflowing it stalls the engine, reported as an error.
	outMax int
	closed bool
	// process is called for every Write.
	process func(b []byte)
}

func (f *fakeDevice) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.calls = append(f.calls, "Close")
	return nil
}

func (f *fakeDevice) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, errors.New("closed")
	}
	f.writes = append(f.writes, append([]byte(nil), b...))
	f.process(b)
	if f.outMax != 0 && len(f.out) > f.outMax {
		return 0, fmt.Errorf("engine stalled with %d bytes pending", len(f.out))
	}
	return len(b), nil
}

func (f *fakeDevice) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(b)
	if f.readMax != 0 && n > f.readMax {
		n = f.readMax
	}
	n = copy(b[:n], f.out)
	f.out = f.out[n:]
	return n, nil
}

func (f *fakeDevice) Reset() error {
	f.record("Reset")
	return nil
}

func (f *fakeDevice) Purge() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "Purge")
	f.out = nil
	return nil
}

func (f *fakeDevice) SetChunkSize(read, write int) error {
	f.record(fmt.Sprintf("SetChunkSize(%d, %d)", read, write))
	return nil
}

func (f *fakeDevice) SetTimeouts(read, write time.Duration) error {
	f.record(fmt.Sprintf("SetTimeouts(%s, %s)", read, write))
	return nil
}

func (f *fakeDevice) SetLatencyTimer(d time.Duration) error {
	f.record(fmt.Sprintf("SetLatencyTimer(%s)", d))
	return nil
}

func (f *fakeDevice) SetBitMode(mask byte, mode BitMode) error {
	f.record(fmt.Sprintf("SetBitMode(%d, %s)", mask, mode))
	return nil
}

func (f *fakeDevice) SetBaudRate(hz int) error {
	f.record(fmt.Sprintf("SetBaudRate(%d)", hz))
	return nil
}

func (f *fakeDevice) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

// stream returns everything written since the mark, in order.
func (f *fakeDevice) stream(mark int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []byte
	for _, w := range f.writes[mark:] {
		out = append(out, w...)
	}
	return out
}

func (f *fakeDevice) mark() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeDevice) pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}

// fakeMPSSE interprets MPSSE command streams.
//
// D1 is looped back to D2 for byte streams unless miso is set. An I²C target
// can be attached to D0~D2.
type fakeMPSSE struct {
	fakeDevice
	value     [2]byte
	direction [2]byte
	// in is the level of the pins not driven by the chip.
	in       [2]byte
	loopback bool
	divisor  int
	// miso, when set, is what D2 sees instead of D1.
	miso func() byte
	// mute drops every response.
	mute   bool
	target *fakeI2CTarget
}

func newFakeMPSSE() *fakeMPSSE {
	f := &fakeMPSSE{in: [2]byte{0xFF, 0xFF}}
	f.process = f.run
	return f
}

func (f *fakeMPSSE) respond(b ...byte) {
	if !f.mute {
		f.out = append(f.out, b...)
	}
}

func (f *fakeMPSSE) levels(bank int) byte {
	return f.value[bank]&f.direction[bank] | f.in[bank]&^f.direction[bank]
}

func (f *fakeMPSSE) run(b []byte) {
	for len(b) != 0 {
		op := b[0]
		switch {
		case op == mpsse.OpSetLower || op == mpsse.OpSetUpper:
			bank := 0
			if op == mpsse.OpSetUpper {
				bank = 1
			}
			prev := f.levels(0)
			f.value[bank], f.direction[bank] = b[1], b[2]
			if bank == 0 && f.target != nil {
				f.target.lines(prev, f.levels(0))
			}
			b = b[3:]
		case op == mpsse.OpReadLower:
			f.respond(f.levels(0))
			b = b[1:]
		case op == mpsse.OpReadUpper:
			f.respond(f.levels(1))
			b = b[1:]
		case op == mpsse.OpLoopbackEnable:
			f.loopback = true
			b = b[1:]
		case op == mpsse.OpLoopbackDisable:
			f.loopback = false
			b = b[1:]
		case op == mpsse.OpClockDivisor:
			f.divisor = int(b[1]) | int(b[2])<<8
			b = b[3:]
		case op == mpsse.OpSendImmediate, op == mpsse.OpClock30MHz, op == mpsse.OpClock6MHz,
			op == mpsse.OpClock3Phase, op == mpsse.OpClock2Phase, op == mpsse.OpClockNormal:
			b = b[1:]
		case op&0xC0 == 0 && op&(mpsse.OpDataOut|mpsse.OpDataIn) != 0:
			b = f.data(op, b)
		default:
			f.respond(mpsse.InvalidCommand, op)
			b = b[1:]
		}
	}
}

// data handles a serial data opcode and returns the rest of the stream.
func (f *fakeMPSSE) data(op byte, b []byte) []byte {
	out := op&mpsse.OpDataOut != 0
	in := op&mpsse.OpDataIn != 0
	if op&mpsse.OpDataBit != 0 {
		bits := int(b[1]) + 1
		b = b[2:]
		var v byte
		if out {
			v = b[0]
			b = b[1:]
		}
		switch {
		case f.target != nil && out:
			f.target.bitsOut(v, bits)
		case f.target != nil && in:
			f.respond(f.target.bitsIn(bits))
		case in:
			f.respond(f.sample(v))
		}
		return b
	}
	n := int(b[1]) | int(b[2])<<8 + 1
	b = b[3:]
	if !out {
		for i := 0; i < n; i++ {
			f.respond(f.sample(0xFF))
		}
		return b
	}
	if in {
		for _, v := range b[:n] {
			f.respond(f.sample(v))
		}
	}
	return b[n:]
}

func (f *fakeMPSSE) sample(mosi byte) byte {
	if f.miso != nil && !f.loopback {
		return f.miso()
	}
	return mosi
}

// fakeI2CTarget is an I²C device with a byte FIFO: a write transaction stores
// the bytes from offset 0, a read transaction returns them from offset 0.
type fakeI2CTarget struct {
	addr uint16
	mem  []byte
	// nakAt is the 1-based index of the written data byte to not acknowledge.
	nakAt int
	// nakRead refuses read transactions.
	nakRead bool

	events   []string
	wantAddr bool
	selected bool
	read     bool
	ack      bool
	index    int
	rptr     int
}

func (t *fakeI2CTarget) lines(prev, now byte) {
	const scl, sda = 0x01, 0x02
	switch {
	case prev&scl != 0 && prev&sda != 0 && now&scl != 0 && now&sda == 0:
		t.events = append(t.events, "start")
		t.wantAddr = true
		t.selected = false
	case prev&scl != 0 && prev&sda == 0 && now&scl != 0 && now&sda != 0:
		t.events = append(t.events, "stop")
		t.selected = false
	}
}

func (t *fakeI2CTarget) bitsOut(v byte, bits int) {
	if bits == 1 {
		if v&0x80 != 0 {
			t.events = append(t.events, "nak")
		} else {
			t.events = append(t.events, "ack")
		}
		return
	}
	if t.wantAddr {
		t.wantAddr = false
		t.selected = uint16(v>>1) == t.addr
		t.read = v&1 != 0
		t.ack = t.selected && !(t.read && t.nakRead)
		t.index = 0
		t.rptr = 0
		if t.selected && !t.read {
			t.mem = t.mem[:0]
		}
		t.events = append(t.events, fmt.Sprintf("addr %02x", v))
		return
	}
	t.index++
	t.ack = t.selected && t.index != t.nakAt
	if t.selected {
		t.mem = append(t.mem, v)
	}
	t.events = append(t.events, fmt.Sprintf("w %02x", v))
}

func (t *fakeI2CTarget) bitsIn(bits int) byte {
	if bits == 1 {
		// Only bit 0 is meaningful; the others are garbage.
		if t.ack {
			return 0x5A
		}
		return 0x5B
	}
	if !t.selected || !t.read || t.rptr >= len(t.mem) {
		return 0xFF
	}
	v := t.mem[t.rptr]
	t.rptr++
	return v
}

// fakeSync emulates synchronous bit-bang mode: every byte written is sampled
// before being applied.
type fakeSync struct {
	fakeDevice
	idle byte
	pins byte
	mask byte
	// wire computes the level of the lines once the outputs are applied.
	wire func(pins byte) byte
}

func newFakeSync(idle byte) *fakeSync {
	f := &fakeSync{idle: idle, pins: idle}
	f.process = f.run
	return f
}

func (f *fakeSync) SetBitMode(mask byte, mode BitMode) error {
	f.mu.Lock()
	f.mask = mask
	f.mu.Unlock()
	return f.fakeDevice.SetBitMode(mask, mode)
}

func (f *fakeSync) run(b []byte) {
	for _, v := range b {
		f.out = append(f.out, f.pins)
		p := v&f.mask | f.idle&^f.mask
		if f.wire != nil {
			p = f.wire(p)
		}
		f.pins = p
	}
}
