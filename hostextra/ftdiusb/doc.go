// Copyright 2019 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ftdiusb talks to FTDI chips directly over libusb, without the FTDI
// proprietary driver.
//
// It implements the few vendor requests of the SIO protocol needed to drive
// an interface in MPSSE or bit-bang mode and exposes each opened interface as
// a hal.Device.
//
// On linux, the ftdi_sio kernel driver is detached from the interface when it
// is opened. The user needs write access to the USB device node, usually
// granted with an udev rule like:
//
//   SUBSYSTEM=="usb", ATTR{idVendor}=="0403", MODE="0666"
//
// Requires libusb-1.0 and cgo.
package ftdiusb
