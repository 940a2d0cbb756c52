// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package d2xx

import (
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/periph"
)

// All returns the devices found by the driver during periph.Init().
//
// The devices are not opened.
func All() []Info {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	out := make([]Info, len(drv.all))
	copy(out, drv.all)
	return out
}

// Open opens the device at index i in the driver's device list.
//
// It does not require periph.Init() to have been called.
func Open(i int) (*Dev, error) {
	drv.mu.Lock()
	defer drv.mu.Unlock()
	return drv.open(i)
}

//

var drv driver

// driver implements periph.Driver.
type driver struct {
	mu  sync.Mutex
	all []Info

	numDevices func() (int, error)
	d2xxOpen   func(i int) (d2xxHandle, int)
}

func (d *driver) String() string {
	return "d2xx"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

// Init enumerates the devices. Each one is opened once to read its
// descriptor, then closed so it can be opened by Open.
func (d *driver) Init() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	num, err := d.numDevices()
	if err != nil {
		return true, err
	}
	d.all = nil
	for i := 0; i < num; i++ {
		dev, err1 := d.open(i)
		if err1 != nil {
			// Keep enumerating; the last error is returned so the user can
			// learn how to fix the problem.
			err = err1
			continue
		}
		d.all = append(d.all, dev.info)
		if err1 := dev.Close(); err1 != nil {
			err = err1
		}
	}
	return true, err
}

// open opens a device.
//
// Must be called with mu held.
func (d *driver) open(i int) (*Dev, error) {
	if i < 0 {
		return nil, errors.Errorf("d2xx: invalid device index %d", i)
	}
	h, e := d.d2xxOpen(i)
	if e != 0 {
		return nil, toErr("Open", e)
	}
	dev := &Dev{info: Info{Index: i}, h: h}
	if dev.info.Type, dev.info.VenID, dev.info.DevID, e = h.d2xxGetDeviceInfo(); e != 0 {
		h.d2xxClose()
		return nil, toErr("GetDeviceInfo", e)
	}
	return dev, nil
}

func (d *driver) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = nil
	d.numDevices = numDevices
	d.d2xxOpen = openHandle
}

func init() {
	drv.reset()
	if !disabled {
		periph.MustRegister(&drv)
	}
}

var _ periph.Driver = &drv
