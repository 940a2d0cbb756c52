// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ftdihal is for documentation only. Explains how to setup the host.
//
// The MPSSE engine of FTDI chips is exposed by periph.io/x/ftdihal/hal as I²C,
// SPI and GPIO. The chip itself is reached through one of the transports in
// periph.io/x/ftdihal/hostextra.
//
// libusb
//
// hostextra/ftdiusb requires cgo and libusb-1.0. You need to install
// pkg-config and the libusb headers, run:
//
//  sudo apt install pkg-config libusb-1.0-0-dev
//
// On MacOS, install them with Homebrew:
//
//  brew install pkgconfig libusb
//
// D2XX
//
// hostextra/d2xx uses the FTDI proprietary driver. It is only built with the
// d2xx build tag, except on Windows where the DLL is loaded at runtime.
package ftdihal
