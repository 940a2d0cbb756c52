// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This file is the abstraction layer against the various OS specific
// implementations.
//
// It converts the int error value into error type.
//
// D2XX programmer's guide; Explains how to use the DLL provided by ftdi.
// http://www.ftdichip.com/Support/Documents/ProgramGuides/D2XX_Programmer's_Guide(FT_000071).pdf

package d2xx

import (
	"strconv"

	"github.com/pkg/errors"
)

// Version returns the version number of the D2xx driver currently used.
func Version() (uint8, uint8, uint8) {
	return d2xxGetLibraryVersion()
}

func numDevices() (int, error) {
	num, e := d2xxCreateDeviceInfoList()
	if e != 0 {
		return 0, toErr("GetNumDevices initialization failed", e)
	}
	return num, nil
}

func openHandle(i int) (d2xxHandle, int) {
	h, e := d2xxOpen(i)
	return h, e
}

// DevType is the FTDI device type as reported by the driver.
type DevType uint32

// Values of FT_DEVICE.
const (
	DevTypeBM DevType = iota
	DevTypeAM
	DevType100AX
	DevTypeUnknown
	DevType2232C
	DevType232R
	DevType2232H
	DevType4232H
	DevType232H
	DevTypeXSeries
)

func (d DevType) String() string {
	switch d {
	case DevTypeBM:
		return "FTBM"
	case DevTypeAM:
		return "FTAM"
	case DevType100AX:
		return "FT100AX"
	case DevType2232C:
		return "FT2232C"
	case DevType232R:
		return "FT232R"
	case DevType2232H:
		return "FT2232H"
	case DevType4232H:
		return "FT4232H"
	case DevType232H:
		return "FT232H"
	case DevTypeXSeries:
		return "FTXSeries"
	default:
		return "Unknown"
	}
}

const missing = -1
const noCGO = -2

// FT_Purge mask.
const (
	purgeRX = 1
	purgeTX = 2
)

func toErr(s string, e int) error {
	msg := ""
	switch e {
	case missing:
		// when the library d2xx couldn't be loaded at runtime.
		msg = "couldn't load driver; visit https://periph.io/x/ftdihal/hostextra/d2xx"
	case noCGO:
		msg = "can't be used without cgo and the d2xx build tag"
	case 0: // FT_OK
		return nil
	case 1: // FT_INVALID_HANDLE
		msg = "invalid handle"
	case 2: // FT_DEVICE_NOT_FOUND
		msg = "device not found"
	case 3: // FT_DEVICE_NOT_OPENED
		msg = "device busy; is the ftdi_sio kernel driver loaded?"
	case 4: // FT_IO_ERROR
		msg = "I/O error"
	case 5: // FT_INSUFFICIENT_RESOURCES
		msg = "insufficient resources"
	case 6: // FT_INVALID_PARAMETER
		msg = "invalid parameter"
	case 7: // FT_INVALID_BAUD_RATE
		msg = "invalid baud rate"
	case 8: // FT_DEVICE_NOT_OPENED_FOR_ERASE
		msg = "device not opened for erase"
	case 9: // FT_DEVICE_NOT_OPENED_FOR_WRITE
		msg = "device not opened for write"
	case 10: // FT_FAILED_TO_WRITE_DEVICE
		msg = "failed to write device"
	case 11: // FT_EEPROM_READ_FAILED
		msg = "eeprom read failed"
	case 12: // FT_EEPROM_WRITE_FAILED
		msg = "eeprom write failed"
	case 13: // FT_EEPROM_ERASE_FAILED
		msg = "eeprom erase failed"
	case 14: // FT_EEPROM_NOT_PRESENT
		msg = "eeprom not present"
	case 15: // FT_EEPROM_NOT_PROGRAMMED
		msg = "eeprom not programmed"
	case 16: // FT_INVALID_ARGS
		msg = "invalid argument"
	case 17: // FT_NOT_SUPPORTED
		msg = "not supported"
	case 18: // FT_OTHER_ERROR
		msg = "other error"
	case 19: // FT_DEVICE_LIST_NOT_READY
		msg = "device list not ready"
	default:
		msg = "unknown status " + strconv.Itoa(e)
	}
	return errors.New("d2xx: " + s + ": " + msg)
}

// Common functions that must be implemented in addition to
// d2xxGetLibraryVersion(), d2xxCreateDeviceInfoList() and d2xxOpen().
type d2xxHandle interface {
	d2xxClose() int
	d2xxResetDevice() int
	d2xxPurge(mask uint32) int
	d2xxGetDeviceInfo() (DevType, uint16, uint16, int)
	d2xxSetUSBParameters(in, out int) int
	d2xxSetTimeouts(readMS, writeMS int) int
	d2xxSetLatencyTimer(delayMS uint8) int
	d2xxSetBaudRate(hz uint32) int
	d2xxGetQueueStatus() (uint32, int)
	d2xxRead(b []byte) (int, int)
	d2xxWrite(b []byte) (int, int)
	d2xxSetBitMode(mask, mode byte) int
}

// handle is a d2xx handle.
type handle uintptr

var _ d2xxHandle = handle(0)
