// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package mpsse encodes command streams for the FTDI Multi-Protocol
// Synchronous Serial Engine.
//
// A Cmd accumulates opcodes and counts the bytes the engine will send back
// for them, so the caller can read exactly that many once the stream has been
// flushed with SendImmediate. Responses come back in the order the operations
// were appended.
//
// MPSSE basics:
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_135_MPSSE_Basics.pdf
//
// MPSSE and MCU emulation modes:
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_108_Command_Processor_for_MPSSE_and_MCU_Host_Bus_Emulation_Modes.pdf
package mpsse

import (
	"encoding/hex"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// Opcodes.
const (
	// Serial data clocked on TCK, on pins D1 (out) and D2 (in).
	//
	// Long streams: [1, 65536] bytes, the length is sent minus one.
	//   <op>, <LengthLow-1>, <LengthHigh-1>, <byte0>, ..., <byteN>
	//
	// Short streams (OpDataBit): [1, 8] bits.
	//   <op>, <Length-1>, <byte>
	OpDataOut     byte = 0x10 // Enable output, default on rising edge
	OpDataIn      byte = 0x20 // Enable input, default on rising edge
	OpDataOutFall byte = 0x01 // Output on falling edge instead
	OpDataInFall  byte = 0x04 // Input on falling edge instead
	OpDataBit     byte = 0x02 // Bits instead of bytes

	// GPIO, 8 pins at a time. Direction 1 means output.
	//
	// <op>, <value>, <direction>
	OpSetLower byte = 0x80
	OpSetUpper byte = 0x82
	// <op>, returns <value>
	OpReadLower byte = 0x81
	OpReadUpper byte = 0x83

	// Connects TDI and TDO together.
	OpLoopbackEnable  byte = 0x84
	OpLoopbackDisable byte = 0x85

	// <op>, <valueL-1>, <valueH-1>
	OpClockDivisor byte = 0x86
	// Flush the buffer back to the host.
	OpSendImmediate byte = 0x87
	OpClock30MHz    byte = 0x8A
	OpClock6MHz     byte = 0x8B
	// Data is valid on both clock edges. Needed for I²C.
	OpClock3Phase byte = 0x8C
	OpClock2Phase byte = 0x8D
	OpClockAdaptive byte = 0x96
	OpClockNormal   byte = 0x97

	// InvalidCommand is sent back by the engine, followed by the offending
	// byte, when it receives an unknown opcode.
	InvalidCommand byte = 0xFA
)

// MaxChunk is the longest payload a single byte stream opcode can carry.
const MaxChunk = 65536

// MaxFrequency is the fastest clock the engine can generate.
const MaxFrequency = 30 * physic.MegaHertz

// Cmd is a command batch.
//
// The zero value is ready to use.
type Cmd struct {
	b []byte
	r int
	// ops holds where each operation starts in b and how many response bytes
	// it yields.
	ops []span
}

type span struct {
	off int
	r   int
}

// New returns an empty command batch.
func New() *Cmd {
	return &Cmd{}
}

// SetLower sets the value and direction of the pins D0~D7.
func (c *Cmd) SetLower(value, direction byte) *Cmd {
	c.begin(0)
	c.b = append(c.b, OpSetLower, value, direction)
	return c
}

// SetUpper sets the value and direction of the pins C0~C7.
func (c *Cmd) SetUpper(value, direction byte) *Cmd {
	c.begin(0)
	c.b = append(c.b, OpSetUpper, value, direction)
	return c
}

// ReadLower samples D0~D7. It yields one response byte.
func (c *Cmd) ReadLower() *Cmd {
	c.begin(1)
	c.b = append(c.b, OpReadLower)
	return c
}

// ReadUpper samples C0~C7. It yields one response byte.
func (c *Cmd) ReadUpper() *Cmd {
	c.begin(1)
	c.b = append(c.b, OpReadUpper)
	return c
}

// ClockBitsOut clocks out the n most significant bits of b, MSB first.
//
// n must be in [1, 8].
func (c *Cmd) ClockBitsOut(e gpio.Edge, b byte, n int) *Cmd {
	checkBits(n)
	c.begin(0)
	c.b = append(c.b, OpDataOut|OpDataBit|outEdge(e), byte(n-1), b)
	return c
}

// ClockBitsIn clocks in n bits, MSB first. It yields one response byte.
//
// n must be in [1, 8].
func (c *Cmd) ClockBitsIn(e gpio.Edge, n int) *Cmd {
	checkBits(n)
	c.begin(1)
	c.b = append(c.b, OpDataIn|OpDataBit|inEdge(e), byte(n-1))
	return c
}

// ClockBytesOut clocks out data MSB first.
func (c *Cmd) ClockBytesOut(e gpio.Edge, data []byte) *Cmd {
	checkLen(len(data))
	op := OpDataOut | outEdge(e)
	for len(data) != 0 {
		n := min(len(data), MaxChunk)
		c.stream(op, n, data[:n], 0)
		data = data[n:]
	}
	return c
}

// ClockBytesIn clocks in n bytes MSB first. It yields n response bytes.
func (c *Cmd) ClockBytesIn(e gpio.Edge, n int) *Cmd {
	checkLen(n)
	op := OpDataIn | inEdge(e)
	for n != 0 {
		l := min(n, MaxChunk)
		c.stream(op, l, nil, l)
		n -= l
	}
	return c
}

// ClockBytes clocks out data while clocking in as many bytes. It yields
// len(data) response bytes.
func (c *Cmd) ClockBytes(out, in gpio.Edge, data []byte) *Cmd {
	checkLen(len(data))
	op := OpDataOut | OpDataIn | outEdge(out) | inEdge(in)
	for len(data) != 0 {
		n := min(len(data), MaxChunk)
		c.stream(op, n, data[:n], n)
		data = data[n:]
	}
	return c
}

// Enable3Phase makes data valid on both clock edges, as I²C requires.
func (c *Cmd) Enable3Phase() *Cmd {
	c.begin(0)
	c.b = append(c.b, OpClock3Phase)
	return c
}

// Disable3Phase restores normal 2 phases data clocking.
func (c *Cmd) Disable3Phase() *Cmd {
	c.begin(0)
	c.b = append(c.b, OpClock2Phase)
	return c
}

// EnableLoopback connects TDI to TDO inside the chip.
func (c *Cmd) EnableLoopback() *Cmd {
	c.begin(0)
	c.b = append(c.b, OpLoopbackEnable)
	return c
}

// DisableLoopback disconnects TDI from TDO.
func (c *Cmd) DisableLoopback() *Cmd {
	c.begin(0)
	c.b = append(c.b, OpLoopbackDisable)
	return c
}

// DisableAdaptive stops waiting for RTCK on D7.
func (c *Cmd) DisableAdaptive() *Cmd {
	c.begin(0)
	c.b = append(c.b, OpClockNormal)
	return c
}

// Clock sets TCK to the closest frequency not above f and returns it.
//
// The 30MHz base is used when possible, the 6MHz one otherwise.
func (c *Cmd) Clock(f physic.Frequency) (physic.Frequency, error) {
	base, div, clk, err := Divisor(f)
	if err != nil {
		return 0, err
	}
	c.begin(0)
	c.b = append(c.b, clk)
	c.begin(0)
	c.b = append(c.b, OpClockDivisor, byte(div-1), byte((div-1)>>8))
	return base / physic.Frequency(div), nil
}

// Divisor returns the base clock, divisor and base clock opcode to use for
// frequency f.
func Divisor(f physic.Frequency) (physic.Frequency, int, byte, error) {
	if f <= 0 || f > MaxFrequency {
		return 0, 0, 0, errors.Errorf("mpsse: invalid clock frequency %s; must be in ]0, %s]", f, MaxFrequency)
	}
	clk := OpClock30MHz
	base := MaxFrequency
	div := base / f
	if base%f != 0 {
		div++
	}
	if div > MaxChunk {
		clk = OpClock6MHz
		base /= 5
		div = base / f
		if base%f != 0 {
			div++
		}
		if div > MaxChunk {
			return 0, 0, 0, errors.Errorf("mpsse: clock frequency %s is too low", f)
		}
	}
	return base, int(div), clk, nil
}

// BadCommand appends an invalid opcode. The engine answers with
// InvalidCommand followed by op, which yields two response bytes.
func (c *Cmd) BadCommand(op byte) *Cmd {
	c.begin(2)
	c.b = append(c.b, op)
	return c
}

// SendImmediate asks the engine to flush its response buffer to the host now
// instead of waiting for it to fill or for the latency timer.
func (c *Cmd) SendImmediate() *Cmd {
	c.begin(0)
	c.b = append(c.b, OpSendImmediate)
	return c
}

// Append appends the operations of o.
func (c *Cmd) Append(o *Cmd) *Cmd {
	for _, op := range o.ops {
		c.ops = append(c.ops, span{off: len(c.b) + op.off, r: op.r})
	}
	c.b = append(c.b, o.b...)
	c.r += o.r
	return c
}

// Split cuts c into batches yielding at most max response bytes each, so the
// engine never has more than max bytes waiting to be read. Byte streams that
// yield responses are cut as needed. Every batch but the last ends with
// SendImmediate.
//
// It returns c alone when it already fits. max must be at least 2.
func (c *Cmd) Split(max int) []*Cmd {
	if max < 2 {
		panic(errors.Errorf("mpsse: invalid split size %d", max))
	}
	if c.r <= max {
		return []*Cmd{c}
	}
	var out []*Cmd
	cur := New()
	flush := func() {
		if cur.Len() != 0 {
			out = append(out, cur.SendImmediate())
			cur = New()
		}
	}
	for i, op := range c.ops {
		end := len(c.b)
		if i+1 < len(c.ops) {
			end = c.ops[i+1].off
		}
		raw := c.b[op.off:end]
		if cur.r+op.r <= max {
			cur.begin(op.r)
			cur.b = append(cur.b, raw...)
			continue
		}
		if !isStream(raw[0]) {
			flush()
			cur.begin(op.r)
			cur.b = append(cur.b, raw...)
			continue
		}
		var data []byte
		if raw[0]&OpDataOut != 0 {
			data = raw[3:]
		}
		for off := 0; off < op.r; {
			if cur.r == max {
				flush()
			}
			l := min(max-cur.r, op.r-off)
			var d []byte
			if data != nil {
				d = data[off : off+l]
			}
			cur.stream(raw[0], l, d, l)
			off += l
		}
	}
	if cur.Len() != 0 {
		out = append(out, cur)
	}
	return out
}

// Bytes returns the opcode stream.
func (c *Cmd) Bytes() []byte {
	return c.b
}

// Len returns the length of the opcode stream.
func (c *Cmd) Len() int {
	return len(c.b)
}

// ReadLen returns the number of bytes the engine will send back.
func (c *Cmd) ReadLen() int {
	return c.r
}

func (c *Cmd) String() string {
	return hex.EncodeToString(c.b)
}

//

// begin records the start of an operation yielding r response bytes.
func (c *Cmd) begin(r int) {
	c.ops = append(c.ops, span{off: len(c.b), r: r})
	c.r += r
}

// stream appends a byte stream operation of n bytes. data is nil when
// nothing is clocked out.
func (c *Cmd) stream(op byte, n int, data []byte, r int) {
	c.begin(r)
	c.b = append(c.b, op, byte(n-1), byte((n-1)>>8))
	c.b = append(c.b, data...)
}

// isStream returns true for the byte stream opcodes.
func isStream(op byte) bool {
	return op&0xC0 == 0 && op&(OpDataOut|OpDataIn) != 0 && op&OpDataBit == 0
}

func outEdge(e gpio.Edge) byte {
	if e == gpio.FallingEdge {
		return OpDataOutFall
	}
	return 0
}

func inEdge(e gpio.Edge) byte {
	if e == gpio.FallingEdge {
		return OpDataInFall
	}
	return 0
}

func checkBits(n int) {
	if n < 1 || n > 8 {
		panic(errors.Errorf("mpsse: invalid bit count %d", n))
	}
}

func checkLen(n int) {
	if n <= 0 {
		panic(errors.New("mpsse: empty payload"))
	}
}
