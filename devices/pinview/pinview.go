// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pinview renders the level of FTDI pins on a terminal using ANSI
// color codes.
//
// Useful to watch inputs while wiring a board.
package pinview // import "periph.io/x/ftdihal/devices/pinview"

import (
	"bytes"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	"periph.io/x/ftdihal/hal"
	"periph.io/x/periph/conn/gpio"
)

var (
	high = color.NRGBA{0x00, 0xFF, 0x00, 0xFF}
	low  = color.NRGBA{0x40, 0x00, 0x00, 0xFF}
)

// Dev is a one line view of a set of pins that outputs to the console.
type Dev struct {
	w    io.Writer
	pins []hal.Pin
	buf  bytes.Buffer
}

// New returns a Dev that displays pins at the console.
//
// w defaults to stdout.
func New(w io.Writer, pins ...hal.Pin) *Dev {
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Dev{w: w, pins: pins}
}

func (d *Dev) String() string {
	return "PinView"
}

// Halt implements conn.Resource.
//
// It resets the colors and moves to the next line so the terminal is not
// corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Show redraws the line with levels, one per pin passed to New.
func (d *Dev) Show(levels []gpio.Level) error {
	if len(levels) != len(d.pins) {
		return errors.Errorf("pinview: got %d levels for %d pins", len(levels), len(d.pins))
	}
	// Redraw in place.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i, p := range d.pins {
		c := low
		if levels[i] {
			c = high
		}
		_, _ = d.buf.WriteString(p.String())
		_, _ = io.WriteString(&d.buf, ansi256.Default.Block(c))
		_, _ = d.buf.WriteString("\033[0m ")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

// ShowBanks redraws the line from the raw values of the lower and upper
// banks.
func (d *Dev) ShowBanks(lower, upper byte) error {
	levels := make([]gpio.Level, len(d.pins))
	for i, p := range d.pins {
		v := lower
		if p >= hal.AC0 {
			v = upper
		}
		levels[i] = v&(1<<(uint(p)&7)) != 0
	}
	return d.Show(levels)
}
