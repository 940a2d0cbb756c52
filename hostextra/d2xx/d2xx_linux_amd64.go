// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build d2xx && cgo

package d2xx

/*
#cgo LDFLAGS: ${SRCDIR}/linux_amd64/libftd2xx.a
*/
import "C"
