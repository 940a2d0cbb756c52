// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pinview

import (
	"bytes"
	"testing"

	"github.com/maruel/ansi256"
	"periph.io/x/ftdihal/hal"
	"periph.io/x/periph/conn/gpio"
)

func TestShow(t *testing.T) {
	b := bytes.Buffer{}
	d := New(&b, hal.AD0, hal.AC3)
	if s := d.String(); s != "PinView" {
		t.Fatal(s)
	}
	if err := d.Show([]gpio.Level{gpio.High, gpio.Low}); err != nil {
		t.Fatal(err)
	}
	want := "\r\033[0m" +
		"AD0" + ansi256.Default.Block(high) + "\033[0m " +
		"AC3" + ansi256.Default.Block(low) + "\033[0m "
	if s := b.String(); s != want {
		t.Fatalf("%q != %q", s, want)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if s := b.String(); s != want+"\n\033[0m" {
		t.Fatalf("%q", s)
	}
}

func TestShow_mismatch(t *testing.T) {
	b := bytes.Buffer{}
	d := New(&b, hal.AD0)
	if err := d.Show(nil); err == nil {
		t.Fatal("expected failure")
	}
	if b.Len() != 0 {
		t.Fatal("unexpected output")
	}
}

func TestShowBanks(t *testing.T) {
	b := bytes.Buffer{}
	d := New(&b, hal.AD1, hal.AD2, hal.AC0, hal.AC7)
	if err := d.ShowBanks(0x02, 0x80); err != nil {
		t.Fatal(err)
	}
	want := "\r\033[0m" +
		"AD1" + ansi256.Default.Block(high) + "\033[0m " +
		"AD2" + ansi256.Default.Block(low) + "\033[0m " +
		"AC0" + ansi256.Default.Block(low) + "\033[0m " +
		"AC7" + ansi256.Default.Block(high) + "\033[0m "
	if s := b.String(); s != want {
		t.Fatalf("%q != %q", s, want)
	}
}
