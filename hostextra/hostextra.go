// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hostextra

import (
	_ "periph.io/x/ftdihal/hostextra/d2xx"
	_ "periph.io/x/ftdihal/hostextra/ftdiusb"
	"periph.io/x/periph"
	"periph.io/x/periph/host"
)

// Init calls host.Init(), which calls periph.Init() and returns it as-is.
//
// The difference with host.Init() is that hostextra.Init() also loads the
// FTDI transports, which depend on libusb or on the D2XX driver. A transport
// that finds no chip shows up in State.Failed, not as an error.
func Init() (*periph.State, error) {
	return host.Init()
}
