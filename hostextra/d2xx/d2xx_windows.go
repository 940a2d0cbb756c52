// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package d2xx

import (
	"syscall"
	"unsafe"
)

var disabled = true

// Library functions.

func d2xxGetLibraryVersion() (uint8, uint8, uint8) {
	var v uint32
	if pGetLibraryVersion != nil {
		pGetLibraryVersion.Call(uintptr(unsafe.Pointer(&v)))
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

func d2xxCreateDeviceInfoList() (int, int) {
	if disabled {
		return 0, missing
	}
	var num uint32
	r1, _, _ := pCreateDeviceInfoList.Call(uintptr(unsafe.Pointer(&num)))
	return int(num), int(r1)
}

// Device functions.

func d2xxOpen(i int) (handle, int) {
	if disabled {
		return 0, missing
	}
	var h handle
	r1, _, _ := pOpen.Call(uintptr(i), uintptr(unsafe.Pointer(&h)))
	return h, int(r1)
}

func (h handle) d2xxClose() int {
	r1, _, _ := pClose.Call(h.toH())
	return int(r1)
}

func (h handle) d2xxResetDevice() int {
	r1, _, _ := pResetDevice.Call(h.toH())
	return int(r1)
}

func (h handle) d2xxPurge(mask uint32) int {
	r1, _, _ := pPurge.Call(h.toH(), uintptr(mask))
	return int(r1)
}

func (h handle) d2xxGetDeviceInfo() (DevType, uint16, uint16, int) {
	var d uint32
	var id uint32
	if r1, _, _ := pGetDeviceInfo.Call(h.toH(), uintptr(unsafe.Pointer(&d)), uintptr(unsafe.Pointer(&id)), 0, 0, 0); r1 != 0 {
		return DevTypeUnknown, 0, 0, int(r1)
	}
	return DevType(d), uint16(id >> 16), uint16(id), 0
}

func (h handle) d2xxSetUSBParameters(in, out int) int {
	r1, _, _ := pSetUSBParameters.Call(h.toH(), uintptr(in), uintptr(out))
	return int(r1)
}

func (h handle) d2xxSetTimeouts(readMS, writeMS int) int {
	r1, _, _ := pSetTimeouts.Call(h.toH(), uintptr(readMS), uintptr(writeMS))
	return int(r1)
}

func (h handle) d2xxSetLatencyTimer(delayMS uint8) int {
	r1, _, _ := pSetLatencyTimer.Call(h.toH(), uintptr(delayMS))
	return int(r1)
}

func (h handle) d2xxSetBaudRate(hz uint32) int {
	r1, _, _ := pSetBaudRate.Call(h.toH(), uintptr(hz))
	return int(r1)
}

func (h handle) d2xxGetQueueStatus() (uint32, int) {
	var v uint32
	r1, _, _ := pGetQueueStatus.Call(h.toH(), uintptr(unsafe.Pointer(&v)))
	return v, int(r1)
}

func (h handle) d2xxRead(b []byte) (int, int) {
	var bytesRead uint32
	r1, _, _ := pRead.Call(h.toH(), uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(unsafe.Pointer(&bytesRead)))
	return int(bytesRead), int(r1)
}

func (h handle) d2xxWrite(b []byte) (int, int) {
	var bytesSent uint32
	r1, _, _ := pWrite.Call(h.toH(), uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(unsafe.Pointer(&bytesSent)))
	return int(bytesSent), int(r1)
}

func (h handle) d2xxSetBitMode(mask, mode byte) int {
	r1, _, _ := pSetBitMode.Call(h.toH(), uintptr(mask), uintptr(mode))
	return int(r1)
}

func (h handle) toH() uintptr {
	return uintptr(h)
}

//

var (
	pClose                *syscall.Proc
	pCreateDeviceInfoList *syscall.Proc
	pGetDeviceInfo        *syscall.Proc
	pGetLibraryVersion    *syscall.Proc
	pGetQueueStatus       *syscall.Proc
	pOpen                 *syscall.Proc
	pPurge                *syscall.Proc
	pRead                 *syscall.Proc
	pResetDevice          *syscall.Proc
	pSetBaudRate          *syscall.Proc
	pSetBitMode           *syscall.Proc
	pSetLatencyTimer      *syscall.Proc
	pSetTimeouts          *syscall.Proc
	pSetUSBParameters     *syscall.Proc
	pWrite                *syscall.Proc
)

func init() {
	if dll, _ := syscall.LoadDLL("ftd2xx.dll"); dll != nil {
		// If any function is not found, disable the support.
		disabled = false
		find := func(n string) *syscall.Proc {
			s, _ := dll.FindProc(n)
			if s == nil {
				disabled = true
			}
			return s
		}
		pClose = find("FT_Close")
		pCreateDeviceInfoList = find("FT_CreateDeviceInfoList")
		pGetDeviceInfo = find("FT_GetDeviceInfo")
		pGetLibraryVersion = find("FT_GetLibraryVersion")
		pGetQueueStatus = find("FT_GetQueueStatus")
		pOpen = find("FT_Open")
		pPurge = find("FT_Purge")
		pRead = find("FT_Read")
		pResetDevice = find("FT_ResetDevice")
		pSetBaudRate = find("FT_SetBaudRate")
		pSetBitMode = find("FT_SetBitMode")
		pSetLatencyTimer = find("FT_SetLatencyTimer")
		pSetTimeouts = find("FT_SetTimeouts")
		pSetUSBParameters = find("FT_SetUSBParameters")
		pWrite = find("FT_Write")
	}
}
