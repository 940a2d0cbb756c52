// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package d2xx exposes FTDI devices opened through the FTDI proprietary D2XX
// driver as hal.Device.
//
// It is an alternative to periph.io/x/ftdihal/hostextra/ftdiusb when libusb
// is not an option, mainly on Windows.
//
// Debian
//
// The static library is not redistributed. Download libftd2xx from
// http://www.ftdichip.com/Drivers/D2XX.htm, copy ftd2xx.h, WinTypes.h and
// libftd2xx.a in this directory under linux_amd64 or linux_arm, then build with
// cgo and the d2xx build tag:
//
//  go build -tags d2xx ./cmd/ftdihal
//
// Run this command after connecting your FTDI device to temporarily disable
// linux's native driver:
//
//  sudo modprobe -r ftdi_sio usbserial
//
// Windows
//
// Install the driver from http://www.ftdichip.com/Drivers/D2XX.htm. The DLL
// is loaded at runtime, no cgo is needed.
//
// Without the driver, the package still compiles and Open returns an error.
//
// Datasheets
//
// http://www.ftdichip.com/Support/Documents/DataSheets/ICs/DS_FT232H.pdf
//
// http://www.ftdichip.com/Support/Documents/DataSheets/ICs/DS_FT2232H.pdf
package d2xx
