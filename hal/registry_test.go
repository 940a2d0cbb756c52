// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestPin_String(t *testing.T) {
	data := []struct {
		p    Pin
		want string
	}{
		{AD0, "AD0"},
		{AD7, "AD7"},
		{AC0, "AC0"},
		{AC7, "AC7"},
		{16, "Pin(16)"},
	}
	for _, line := range data {
		if s := line.p.String(); s != line.want {
			t.Fatalf("%d: %q != %q", line.p, s, line.want)
		}
	}
}

func TestRegistry_allocate(t *testing.T) {
	var r registry
	if err := r.allocate(OwnerI2C, AD0, AD1, AD2); err != nil {
		t.Fatal(err)
	}
	err := r.allocate(OwnerSPI, AD3, AD2)
	var a *AllocationError
	if !errors.As(err, &a) {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&AllocationError{Pin: AD2, Want: OwnerSPI, Owner: OwnerI2C}, a); diff != "" {
		t.Fatal(diff)
	}
	if !errors.Is(err, ErrPinInUse) {
		t.Fatal(err)
	}
	// Nothing was allocated.
	if o := r.owner(AD3); o != OwnerNone {
		t.Fatal(o)
	}
	if err := r.allocate(OwnerOutput, AD3, AC7); err != nil {
		t.Fatal(err)
	}
	if o := r.owner(AC7); o != OwnerOutput {
		t.Fatal(o)
	}
	if err := r.allocate(OwnerInput, 16); !errors.Is(err, ErrInvalidPin) {
		t.Fatal(err)
	}
	if o := r.owner(16); o != OwnerNone {
		t.Fatal(o)
	}
}

func TestRegistry_state(t *testing.T) {
	var r registry
	r.output(AD3, true)
	r.output(AC1, false)
	r.set(AC1, true)
	r.output(AD4, true)
	r.input(AD4)
	want := [2]bank{{direction: 0x08, value: 0x18}, {direction: 0x02, value: 0x02}}
	if diff := cmp.Diff(want, r.banks, cmp.AllowUnexported(bank{})); diff != "" {
		t.Fatal(diff)
	}
}

func TestSession_pinInUse(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	f := newFakeMPSSE()
	s := newSession(t, f, WithLogger(zap.New(core)))
	if _, err := s.I2C(); err != nil {
		t.Fatal(err)
	}
	m := f.mark()
	if _, err := s.SPI(); !errors.Is(err, ErrPinInUse) {
		t.Fatal(err)
	}
	if _, err := s.OutputPin(AD1); !errors.Is(err, ErrPinInUse) {
		t.Fatal(err)
	}
	if _, err := s.InputPin(AD2); !errors.Is(err, ErrPinInUse) {
		t.Fatal(err)
	}
	if f.mark() != m {
		t.Fatal("failed allocation touched the bus")
	}
	if logs.FilterMessage("pin allocation").Len() != 3 {
		t.Fatal(logs.All())
	}
	if _, err := s.OutputPin(AD3); err != nil {
		t.Fatal(err)
	}
	owners := map[Pin]Owner{AD0: OwnerI2C, AD1: OwnerI2C, AD2: OwnerI2C, AD3: OwnerOutput, AD4: OwnerNone}
	for p, want := range owners {
		if o := s.Owner(p); o != want {
			t.Fatalf("%s: %s != %s", p, o, want)
		}
	}
}
