// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hostextra loads the drivers of the FTDI transports.
//
// Subpackages contain the transports, each exposing an opened FTDI interface
// as a hal.Device: ftdiusb over libusb and d2xx over the FTDI driver.
package hostextra
