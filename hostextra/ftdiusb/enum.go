// Copyright 2019 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdiusb

import (
	"fmt"
	"sort"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"periph.io/x/periph"
)

// Desc describes a FTDI chip on an USB bus.
type Desc struct {
	Bus        int
	Address    int
	VendorID   uint16
	ProductID  uint16
	Type       Type
	Interfaces int
}

func (d *Desc) String() string {
	return fmt.Sprintf("%s(%d:%d)", d.Type, d.Bus, d.Address)
}

// All returns the FTDI chips connected, sorted by bus and address.
//
// The devices are not opened.
func All() ([]Desc, error) {
	ctx, err := newContext()
	if err != nil {
		return nil, err
	}
	defer ctx.Close()
	var out descriptors
	_, err = ctx.OpenDevices(func(d *gousb.DeviceDesc) bool {
		if d.Vendor == VendorID {
			out = append(out, fromDesc(d))
		}
		return false
	})
	if err != nil {
		return nil, errors.Wrap(err, "ftdiusb: enumerate")
	}
	sort.Sort(out)
	return out, nil
}

// Open opens interface i of the chip described by d.
func Open(d Desc, i Interface) (*Dev, error) {
	if i < InterfaceA || int(i) > d.Interfaces {
		return nil, errors.Errorf("ftdiusb: %s has no interface %s", &d, i)
	}
	ctx, err := newContext()
	if err != nil {
		return nil, err
	}
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == d.Bus && desc.Address == d.Address
	})
	if len(devs) == 0 {
		ctx.Close()
		if err == nil {
			err = errors.New("not found")
		}
		return nil, errors.Wrapf(err, "ftdiusb: open %s", &d)
	}
	for _, extra := range devs[1:] {
		extra.Close()
	}
	dev := devs[0]
	closers := []func() error{ctx.Close, dev.Close}
	fail := func(err error, op string) (*Dev, error) {
		for j := len(closers) - 1; j >= 0; j-- {
			closers[j]()
		}
		return nil, errors.Wrapf(err, "ftdiusb: %s %s", op, &d)
	}
	if err := dev.SetAutoDetach(true); err != nil {
		return fail(err, "detach kernel driver of")
	}
	cfg, err := dev.Config(1)
	if err != nil {
		return fail(err, "configure")
	}
	closers = append(closers, cfg.Close)
	intf, err := cfg.Interface(i.number(), 0)
	if err != nil {
		return fail(err, "claim interface of")
	}
	closers = append(closers, func() error {
		intf.Close()
		return nil
	})
	epIn, epOut := i.endpoints()
	in, err := intf.InEndpoint(epIn)
	if err != nil {
		return fail(err, "open IN endpoint of")
	}
	out, err := intf.OutEndpoint(epOut)
	if err != nil {
		return fail(err, "open OUT endpoint of")
	}
	ftdi := newDev(d, i, dev, in, out, in.Desc.MaxPacketSize)
	// Release in the reverse order of acquisition.
	for j := len(closers) - 1; j >= 0; j-- {
		ftdi.closers = append(ftdi.closers, closers[j])
	}
	return ftdi, nil
}

// OpenFirst opens interface i of the first FTDI chip found that has it.
func OpenFirst(i Interface) (*Dev, error) {
	all, err := All()
	if err != nil {
		return nil, err
	}
	for _, d := range all {
		if int(i) <= d.Interfaces {
			return Open(d, i)
		}
	}
	return nil, errors.Errorf("ftdiusb: no FTDI chip with interface %s found", i)
}

//

// newContext initializes libusb. gousb panics when it fails, which happens
// on hosts without usbfs.
func newContext() (ctx *gousb.Context, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("ftdiusb: libusb initialization failed: %v", r)
		}
	}()
	return gousb.NewContext(), nil
}

type descriptors []Desc

func (d descriptors) Len() int      { return len(d) }
func (d descriptors) Swap(i, j int) { d[i], d[j] = d[j], d[i] }
func (d descriptors) Less(i, j int) bool {
	if d[i].Bus != d[j].Bus {
		return d[i].Bus < d[j].Bus
	}
	return d[i].Address < d[j].Address
}

func fromDesc(d *gousb.DeviceDesc) Desc {
	t, n := typeFromBCD(uint16(d.Device))
	return Desc{
		Bus:        d.Bus,
		Address:    d.Address,
		VendorID:   uint16(d.Vendor),
		ProductID:  uint16(d.Product),
		Type:       t,
		Interfaces: n,
	}
}

// driver implements periph.Driver.
//
// It only checks that libusb works and that at least one FTDI chip is
// connected; the chips are opened explicitly.
type driver struct {
}

func (d *driver) String() string {
	return "ftdiusb"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

func (d *driver) Init() (bool, error) {
	all, err := All()
	if err != nil {
		return false, err
	}
	if len(all) == 0 {
		return false, errors.New("no FTDI chip found")
	}
	return true, nil
}

func init() {
	periph.MustRegister(&driver{})
}

var _ periph.Driver = &driver{}
