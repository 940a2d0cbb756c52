// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mpsse

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

func TestCmd(t *testing.T) {
	data := []struct {
		name  string
		c     *Cmd
		want  []byte
		reads int
	}{
		{"set lower", New().SetLower(0x12, 0xFB), []byte{0x80, 0x12, 0xFB}, 0},
		{"set upper", New().SetUpper(0x01, 0x03), []byte{0x82, 0x01, 0x03}, 0},
		{"read", New().ReadLower().ReadUpper(), []byte{0x81, 0x83}, 2},
		{"bits out falling", New().ClockBitsOut(gpio.FallingEdge, 0xA5, 8), []byte{0x13, 0x07, 0xA5}, 0},
		{"bits out rising", New().ClockBitsOut(gpio.RisingEdge, 0x80, 1), []byte{0x12, 0x00, 0x80}, 0},
		{"bits in rising", New().ClockBitsIn(gpio.RisingEdge, 1), []byte{0x22, 0x00}, 1},
		{"bits in falling", New().ClockBitsIn(gpio.FallingEdge, 8), []byte{0x26, 0x07}, 1},
		{"bytes out", New().ClockBytesOut(gpio.FallingEdge, []byte{1, 2, 3}), []byte{0x11, 0x02, 0x00, 1, 2, 3}, 0},
		{"bytes in", New().ClockBytesIn(gpio.RisingEdge, 4), []byte{0x20, 0x03, 0x00}, 4},
		{"bytes mode0", New().ClockBytes(gpio.FallingEdge, gpio.RisingEdge, []byte{0xDE, 0xAD}), []byte{0x31, 0x01, 0x00, 0xDE, 0xAD}, 2},
		{"bytes mode2", New().ClockBytes(gpio.RisingEdge, gpio.FallingEdge, []byte{0xBE}), []byte{0x34, 0x00, 0x00, 0xBE}, 1},
		{"clocking", New().Enable3Phase().Disable3Phase().DisableAdaptive(), []byte{0x8C, 0x8D, 0x97}, 0},
		{"loopback", New().EnableLoopback().DisableLoopback(), []byte{0x84, 0x85}, 0},
		{"bad command", New().BadCommand(0xAA).SendImmediate(), []byte{0xAA, 0x87}, 2},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			if diff := cmp.Diff(line.want, line.c.Bytes()); diff != "" {
				t.Fatalf("Bytes() mismatch (-want +got):\n%s", diff)
			}
			if r := line.c.ReadLen(); r != line.reads {
				t.Fatalf("ReadLen() = %d; want %d", r, line.reads)
			}
			if l := line.c.Len(); l != len(line.want) {
				t.Fatalf("Len() = %d; want %d", l, len(line.want))
			}
		})
	}
}

func TestCmd_zero(t *testing.T) {
	var c Cmd
	c.SendImmediate()
	if s := c.String(); s != "87" {
		t.Fatalf("String() = %q", s)
	}
}

func TestCmd_Append(t *testing.T) {
	a := New().SetLower(0, 1).ClockBitsIn(gpio.RisingEdge, 1)
	b := New().ReadLower().SendImmediate()
	a.Append(b)
	want := []byte{0x80, 0x00, 0x01, 0x22, 0x00, 0x81, 0x87}
	if diff := cmp.Diff(want, a.Bytes()); diff != "" {
		t.Fatalf("Bytes() mismatch (-want +got):\n%s", diff)
	}
	if a.ReadLen() != 2 {
		t.Fatalf("ReadLen() = %d", a.ReadLen())
	}
}

func TestCmd_chunks(t *testing.T) {
	data := make([]byte, MaxChunk+3)
	c := New().ClockBytes(gpio.FallingEdge, gpio.RisingEdge, data)
	if c.ReadLen() != len(data) {
		t.Fatalf("ReadLen() = %d", c.ReadLen())
	}
	b := c.Bytes()
	if len(b) != len(data)+6 {
		t.Fatalf("len = %d", len(b))
	}
	if !bytes.Equal(b[:3], []byte{0x31, 0xFF, 0xFF}) {
		t.Fatalf("first header %#x", b[:3])
	}
	second := b[3+MaxChunk:]
	if !bytes.Equal(second[:3], []byte{0x31, 0x02, 0x00}) {
		t.Fatalf("second header %#x", second[:3])
	}

	c = New().ClockBytesIn(gpio.RisingEdge, 2*MaxChunk)
	want := []byte{0x20, 0xFF, 0xFF, 0x20, 0xFF, 0xFF}
	if diff := cmp.Diff(want, c.Bytes()); diff != "" {
		t.Fatalf("Bytes() mismatch (-want +got):\n%s", diff)
	}
}

func TestCmd_Split(t *testing.T) {
	c := New().ReadLower().SendImmediate()
	if parts := c.Split(2); len(parts) != 1 || parts[0] != c {
		t.Fatalf("Split() = %v", parts)
	}
	data := []struct {
		name  string
		c     *Cmd
		max   int
		want  [][]byte
		reads []int
	}{
		{
			"duplex stream",
			New().SetLower(1, 1).ClockBytes(gpio.FallingEdge, gpio.RisingEdge, []byte{1, 2, 3, 4, 5}).ReadLower().SendImmediate(),
			2,
			[][]byte{
				{0x80, 0x01, 0x01, 0x31, 0x01, 0x00, 0x01, 0x02, 0x87},
				{0x31, 0x01, 0x00, 0x03, 0x04, 0x87},
				{0x31, 0x00, 0x00, 0x05, 0x81, 0x87},
			},
			[]int{2, 2, 2},
		},
		{
			"input stream",
			New().ClockBytesIn(gpio.RisingEdge, 5),
			4,
			[][]byte{{0x20, 0x03, 0x00, 0x87}, {0x20, 0x00, 0x00}},
			[]int{4, 1},
		},
		{
			"whole operations",
			New().BadCommand(0xAA).BadCommand(0xAB).SendImmediate(),
			3,
			[][]byte{{0xAA, 0x87}, {0xAB, 0x87}},
			[]int{2, 2},
		},
		{
			"output stream",
			New().ClockBytesOut(gpio.FallingEdge, []byte{1, 2, 3}).ReadLower().ReadLower().ReadLower(),
			2,
			[][]byte{{0x11, 0x02, 0x00, 1, 2, 3, 0x81, 0x81, 0x87}, {0x81}},
			[]int{2, 1},
		},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			var got [][]byte
			var reads []int
			for _, p := range line.c.Split(line.max) {
				got = append(got, p.Bytes())
				reads = append(reads, p.ReadLen())
			}
			if diff := cmp.Diff(line.want, got); diff != "" {
				t.Fatalf("Split() mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(line.reads, reads); diff != "" {
				t.Fatalf("ReadLen() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCmd_Split_appended(t *testing.T) {
	a := New().ClockBytesIn(gpio.RisingEdge, 3)
	a.Append(New().ReadLower().ReadUpper())
	parts := a.Split(3)
	if len(parts) != 2 {
		t.Fatalf("Split() = %v", parts)
	}
	if diff := cmp.Diff([]byte{0x81, 0x83}, parts[1].Bytes()); diff != "" {
		t.Fatal(diff)
	}
}

func TestCmd_panics(t *testing.T) {
	data := []struct {
		name string
		f    func()
	}{
		{"empty out", func() { New().ClockBytesOut(gpio.FallingEdge, nil) }},
		{"empty in", func() { New().ClockBytesIn(gpio.RisingEdge, 0) }},
		{"empty duplex", func() { New().ClockBytes(gpio.FallingEdge, gpio.RisingEdge, []byte{}) }},
		{"zero bits", func() { New().ClockBitsOut(gpio.FallingEdge, 0, 0) }},
		{"nine bits", func() { New().ClockBitsIn(gpio.RisingEdge, 9) }},
		{"split", func() { New().ReadLower().Split(1) }},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			line.f()
		})
	}
}

func TestClock(t *testing.T) {
	data := []struct {
		f    physic.Frequency
		want physic.Frequency
		cmd  []byte
	}{
		{30 * physic.MegaHertz, 30 * physic.MegaHertz, []byte{0x8A, 0x86, 0x00, 0x00}},
		{100 * physic.KiloHertz, 100 * physic.KiloHertz, []byte{0x8A, 0x86, 0x2B, 0x01}},
		{150 * physic.KiloHertz, 150 * physic.KiloHertz, []byte{0x8A, 0x86, 0xC7, 0x00}},
		{7 * physic.MegaHertz, 6 * physic.MegaHertz, []byte{0x8A, 0x86, 0x04, 0x00}},
		{400 * physic.Hertz, 6 * physic.MegaHertz / 15000, []byte{0x8B, 0x86, 0x97, 0x3A}},
	}
	for _, line := range data {
		c := New()
		got, err := c.Clock(line.f)
		if err != nil {
			t.Fatalf("Clock(%s): %v", line.f, err)
		}
		if got != line.want {
			t.Errorf("Clock(%s) = %s; want %s", line.f, got, line.want)
		}
		if diff := cmp.Diff(line.cmd, c.Bytes()); diff != "" {
			t.Errorf("Clock(%s) mismatch (-want +got):\n%s", line.f, diff)
		}
	}
}

func TestClock_invalid(t *testing.T) {
	for _, f := range []physic.Frequency{0, -1, 31 * physic.MegaHertz, 10 * physic.Hertz} {
		c := New()
		if _, err := c.Clock(f); err == nil {
			t.Errorf("Clock(%s) succeeded", f)
		}
		if c.Len() != 0 {
			t.Errorf("Clock(%s) appended %d bytes", f, c.Len())
		}
	}
}
