// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build d2xx && cgo && !windows

package d2xx

/*
#include "ftd2xx.h"
*/
import "C"
import (
	"unsafe"
)

const disabled = false

// Library functions.

func d2xxGetLibraryVersion() (uint8, uint8, uint8) {
	var v C.DWORD
	C.FT_GetLibraryVersion(&v)
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

func d2xxCreateDeviceInfoList() (int, int) {
	var num C.DWORD
	e := C.FT_CreateDeviceInfoList(&num)
	return int(num), int(e)
}

// Device functions.

func d2xxOpen(i int) (handle, int) {
	var h C.FT_HANDLE
	e := C.FT_Open(C.int(i), &h)
	if uintptr(h) == 0 && e == 0 {
		panic("unexpected")
	}
	return handle(h), int(e)
}

func (h handle) d2xxClose() int {
	return int(C.FT_Close(h.toH()))
}

func (h handle) d2xxResetDevice() int {
	return int(C.FT_ResetDevice(h.toH()))
}

func (h handle) d2xxPurge(mask uint32) int {
	return int(C.FT_Purge(h.toH(), C.ULONG(mask)))
}

func (h handle) d2xxGetDeviceInfo() (DevType, uint16, uint16, int) {
	var dev C.FT_DEVICE
	var id C.DWORD
	if e := C.FT_GetDeviceInfo(h.toH(), &dev, &id, nil, nil, nil); e != 0 {
		return DevTypeUnknown, 0, 0, int(e)
	}
	return DevType(dev), uint16(id >> 16), uint16(id), 0
}

func (h handle) d2xxSetUSBParameters(in, out int) int {
	return int(C.FT_SetUSBParameters(h.toH(), C.DWORD(in), C.DWORD(out)))
}

func (h handle) d2xxSetTimeouts(readMS, writeMS int) int {
	return int(C.FT_SetTimeouts(h.toH(), C.DWORD(readMS), C.DWORD(writeMS)))
}

func (h handle) d2xxSetLatencyTimer(delayMS uint8) int {
	return int(C.FT_SetLatencyTimer(h.toH(), C.UCHAR(delayMS)))
}

func (h handle) d2xxSetBaudRate(hz uint32) int {
	return int(C.FT_SetBaudRate(h.toH(), C.DWORD(hz)))
}

func (h handle) d2xxGetQueueStatus() (uint32, int) {
	var v C.DWORD
	e := C.FT_GetQueueStatus(h.toH(), &v)
	return uint32(v), int(e)
}

func (h handle) d2xxRead(b []byte) (int, int) {
	var bytesRead C.DWORD
	e := C.FT_Read(h.toH(), C.LPVOID(unsafe.Pointer(&b[0])), C.DWORD(len(b)), &bytesRead)
	return int(bytesRead), int(e)
}

func (h handle) d2xxWrite(b []byte) (int, int) {
	var bytesSent C.DWORD
	e := C.FT_Write(h.toH(), C.LPVOID(unsafe.Pointer(&b[0])), C.DWORD(len(b)), &bytesSent)
	return int(bytesSent), int(e)
}

func (h handle) d2xxSetBitMode(mask, mode byte) int {
	return int(C.FT_SetBitMode(h.toH(), C.UCHAR(mask), C.UCHAR(mode)))
}

func (h handle) toH() C.FT_HANDLE {
	return C.FT_HANDLE(h)
}
