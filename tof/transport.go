// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"periph.io/x/conn/v3/i2c"
)

// DebugF the debug function type.
type DebugF func(string, ...interface{})

// Transport exchanges register reads and writes with a sensor. Each call is a
// single I2C transaction. It owns no protocol state.
type Transport struct {
	d     *i2c.Dev
	debug DebugF
}

// NewTransport returns a Transport talking to addr on bus b.
func NewTransport(b i2c.Bus, addr uint16) *Transport {
	return &Transport{d: &i2c.Dev{Bus: b, Addr: addr}, debug: noop}
}

// EnableDebug sets the function used to trace register traffic.
func (t *Transport) EnableDebug(f DebugF) {
	if f == nil {
		f = noop
	}
	t.debug = f
}

func (t *Transport) String() string {
	return t.d.String()
}

// Read fills b with the registers starting at reg.
func (t *Transport) Read(reg byte, b []byte) error {
	if err := t.d.Tx([]byte{reg}, b); err != nil {
		t.debug("read %#02x failed: %v", reg, err)
		return &TransportError{Op: "read", Reg: reg, Err: err}
	}
	t.debug("read %#02x: % x", reg, b)
	return nil
}

// Write writes data to the registers starting at reg.
func (t *Transport) Write(reg byte, data ...byte) error {
	w := make([]byte, 1, len(data)+1)
	w[0] = reg
	w = append(w, data...)
	t.debug("write %#02x: % x", reg, data)
	if err := t.d.Tx(w, nil); err != nil {
		t.debug("write %#02x failed: %v", reg, err)
		return &TransportError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

// ReadByte reads a single register.
func (t *Transport) ReadByte(reg byte) (byte, error) {
	var b [1]byte
	err := t.Read(reg, b[:])
	return b[0], err
}

// WriteMasked replaces the bits selected by mask in reg with val.
func (t *Transport) WriteMasked(reg, mask, val byte) error {
	cur, err := t.ReadByte(reg)
	if err != nil {
		return err
	}
	t.debug("masked %#02x: current %#02x mask %#02x value %#02x", reg, cur, mask, val)
	return t.Write(reg, (cur&^mask)|(val&mask))
}

func noop(string, ...interface{}) {}
