// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// ErrNoPowerPin is returned by operations needing a chip enable line when the
// driver was given none.
var ErrNoPowerPin = errors.New("tof: no chip enable pin")

// Power drives the chip enable (or XSHUT) line of a sensor. Halt releases
// the line low, powering the chip down.
type Power struct {
	mu     sync.Mutex
	pin    gpio.PinOut
	settle time.Duration
	on     bool
}

// NewPower returns a Power on pin. settle is waited after every edge so the
// chip's I2C interface is back before the next access. pin may be nil, in
// which case every operation fails with ErrNoPowerPin except Halt.
func NewPower(pin gpio.PinOut, settle time.Duration) *Power {
	return &Power{pin: pin, settle: settle}
}

// Available reports whether a pin is wired.
func (p *Power) Available() bool {
	return p.pin != nil
}

// On power cycles the chip: low, wait, high, wait.
func (p *Power) On() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(p.settle)
	if err := p.out(gpio.High); err != nil {
		return err
	}
	p.on = true
	time.Sleep(p.settle)
	return nil
}

// Off drives the line low.
func (p *Power) Off() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.out(gpio.Low); err != nil {
		return err
	}
	p.on = false
	return nil
}

// Toggle pulses the line low then high, resetting the chip, and waits for
// it to come back.
func (p *Power) Toggle() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.out(gpio.Low); err != nil {
		return err
	}
	if err := p.out(gpio.High); err != nil {
		return err
	}
	p.on = true
	time.Sleep(p.settle)
	return nil
}

// IsOn reports the last level driven.
func (p *Power) IsOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

func (p *Power) out(l gpio.Level) error {
	if p.pin == nil {
		return ErrNoPowerPin
	}
	if err := p.pin.Out(l); err != nil {
		return fmt.Errorf("tof: chip enable %s: %w", p.pin, err)
	}
	return nil
}

func (p *Power) String() string {
	if p.pin == nil {
		return "tof power: none"
	}
	return "tof power: " + p.pin.String()
}

// Halt implements conn.Resource. It powers the chip down.
func (p *Power) Halt() error {
	if p.pin == nil {
		return nil
	}
	return p.Off()
}

var _ conn.Resource = &Power{}
