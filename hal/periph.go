// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"sync"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
)

// RegisterI2C registers the I²C bus of the session in i2creg as name.
//
// The pins are acquired on the first i2creg.Open() and every later open
// returns the same bus.
func (s *Session) RegisterI2C(name string) error {
	var once sync.Once
	var bus *I2C
	var err error
	return i2creg.Register(name, nil, -1, func() (i2c.BusCloser, error) {
		once.Do(func() {
			bus, err = s.I2C()
		})
		if err != nil {
			return nil, err
		}
		return bus, nil
	})
}

// RegisterSPI registers the SPI bus of the session in spireg as name.
//
// The pins are acquired on the first spireg.Open() and every later open
// returns the same port.
func (s *Session) RegisterSPI(name string) error {
	var once sync.Once
	var port *SPI
	var err error
	return spireg.Register(name, nil, -1, func() (spi.PortCloser, error) {
		once.Do(func() {
			port, err = s.SPI()
		})
		if err != nil {
			return nil, err
		}
		return port, nil
	})
}
