// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hal emulates SPI, I²C and GPIO buses on a FTDI interface.
//
// Open an interface with one of the transports, then initialize it:
//
//   d, err := ftdiusb.OpenFirst(ftdiusb.InterfaceA)
//   ...
//   s, err := hal.Open(d).InitDefault()
//   ...
//   defer s.Close()
//   bus, err := s.I2C()
//
// Each pin can only be acquired once per session. Acquiring a pin twice
// returns an error wrapping ErrPinInUse; it is a wiring mistake in the
// program and is not meant to be recovered from.
//
// Interfaces without MPSSE, like the C and D interfaces of a FT4232H, can
// still be used as GPIOs with OpenSync.
//
// Pins
//
// I²C and SPI both use D0, D1 and D2. I²C needs D1 and D2 wired together
// with pull-up resistors on SCL and SDA.
//
// Datasheets
//
// http://www.ftdichip.com/Support/Documents/DataSheets/ICs/DS_FT232H.pdf
//
// http://www.ftdichip.com/Support/Documents/DataSheets/ICs/DS_FT2232H.pdf
//
// http://www.ftdichip.com/Support/Documents/DataSheets/ICs/DS_FT4232H.pdf
package hal
