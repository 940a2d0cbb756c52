// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"periph.io/x/periph/conn/physic"
)

// Settings configures a session at initialization.
type Settings struct {
	// Reset resets the USB port before configuring it.
	Reset bool
	// ReadChunkSize and WriteChunkSize are the USB transfer sizes, in bytes.
	// They must be multiples of 64 in [64, 65536].
	ReadChunkSize  int
	WriteChunkSize int
	// ReadTimeout bounds how long a read waits for the chip's response.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// LatencyTimer is the delay after which the chip sends back a partially
	// filled buffer. It has a 1ms resolution.
	LatencyTimer time.Duration
	// Frequency is the MPSSE clock, or the sampling rate in synchronous
	// bit-bang mode.
	Frequency physic.Frequency
}

// DefaultSettings returns the settings used by InitDefault.
func DefaultSettings() Settings {
	return Settings{
		Reset:          true,
		ReadChunkSize:  4096,
		WriteChunkSize: 4096,
		ReadTimeout:    time.Second,
		WriteTimeout:   time.Second,
		LatencyTimer:   16 * time.Millisecond,
		Frequency:      100 * physic.KiloHertz,
	}
}

// Validate returns an error if a setting is out of range.
func (s *Settings) Validate() error {
	if s.ReadChunkSize < 64 || s.ReadChunkSize > 65536 || s.ReadChunkSize%64 != 0 {
		return errors.Errorf("ftdihal: invalid read chunk size %d; must be a multiple of 64 in [64, 65536]", s.ReadChunkSize)
	}
	if s.WriteChunkSize < 64 || s.WriteChunkSize > 65536 || s.WriteChunkSize%64 != 0 {
		return errors.Errorf("ftdihal: invalid write chunk size %d; must be a multiple of 64 in [64, 65536]", s.WriteChunkSize)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		return errors.New("ftdihal: timeouts must be positive")
	}
	if s.LatencyTimer < time.Millisecond || s.LatencyTimer > 255*time.Millisecond {
		return errors.Errorf("ftdihal: invalid latency timer %s; must be in [1ms, 255ms]", s.LatencyTimer)
	}
	if s.Frequency <= 0 || s.Frequency > 30*physic.MegaHertz {
		return errors.Errorf("ftdihal: invalid frequency %s; must be in ]0, 30MHz]", s.Frequency)
	}
	return nil
}

// Option customizes a session.
type Option func(*options)

// WithLogger logs the traffic with the device at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithClock replaces the clock used for read deadlines.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clk = c
	}
}

type options struct {
	log *zap.Logger
	clk clock.Clock
}

func newOptions(opts []Option) options {
	o := options{log: zap.NewNop(), clk: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
