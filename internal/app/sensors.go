// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package app holds the command implementations.
package app

import (
	"fmt"
	"log"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/config"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof8801"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/vi5300"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
)

// Pins are the optional lines of a sensor.
type Pins struct {
	Enable    gpio.PinOut
	Interrupt gpio.PinIn
}

// LookupPins resolves the gpioreg names of a sensor. Empty names stay nil.
func LookupPins(enable, irq string) (Pins, error) {
	var p Pins
	if enable != "" {
		pin := gpioreg.ByName(enable)
		if pin == nil {
			return p, fmt.Errorf("unknown enable pin %q", enable)
		}
		p.Enable = pin
	}
	if irq != "" {
		pin := gpioreg.ByName(irq)
		if pin == nil {
			return p, fmt.Errorf("unknown interrupt pin %q", irq)
		}
		p.Interrupt = pin
	}
	return p, nil
}

// DriverOpts is what both drivers share in their Opts.
type DriverOpts struct {
	Pins
	// PollPeriod is used when no interrupt line is wired.
	PollPeriod  time.Duration
	FirmwareDir string
	Logger      *log.Logger
}

// DefaultAddress returns the factory I2C address of chip.
func DefaultAddress(chip string) (uint16, error) {
	switch chip {
	case config.ChipTOF8801:
		return tof8801.DefaultAddress, nil
	case config.ChipVI5300:
		return vi5300.DefaultAddress, nil
	default:
		return 0, fmt.Errorf("unknown chip %q", chip)
	}
}

// OpenSensor initializes one sensor of the given chip.
func OpenSensor(bus i2c.Bus, chip string, addr uint16, o *DriverOpts) (tof.Sensor, error) {
	var poll time.Duration
	if o.Interrupt == nil {
		poll = o.PollPeriod
	}
	var src tof.FirmwareSource
	if o.FirmwareDir != "" {
		src = tof.DirSource(o.FirmwareDir)
	}
	switch chip {
	case config.ChipTOF8801:
		opts := tof8801.DefaultOpts
		opts.Enable = o.Enable
		opts.Interrupt = o.Interrupt
		opts.PollPeriod = poll
		opts.Firmware = src
		opts.Logger = o.Logger
		d, err := tof8801.NewI2C(bus, addr, &opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	case config.ChipVI5300:
		opts := vi5300.DefaultOpts
		opts.XShut = o.Enable
		opts.Interrupt = o.Interrupt
		opts.PollPeriod = poll
		opts.Firmware = src
		opts.Logger = o.Logger
		d, err := vi5300.NewI2C(bus, addr, &opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown chip %q", chip)
	}
}

// OpenSensors initializes every configured sensor and attaches it to a new
// registry. On failure the sensors opened so far are halted.
func OpenSensors(bus i2c.Bus, cfg *config.Config, logger *log.Logger) (*tof.Registry, error) {
	reg := tof.NewRegistry()
	for _, s := range cfg.Sensors {
		pins, err := LookupPins(s.Enable, s.IRQ)
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("sensor %s: %w", s.Name, err)
		}
		dev, err := OpenSensor(bus, s.Chip, s.Addr, &DriverOpts{
			Pins:        pins,
			PollPeriod:  time.Duration(cfg.PollMS) * time.Millisecond,
			FirmwareDir: cfg.FirmwareDir,
			Logger:      logger,
		})
		if err != nil {
			reg.Close()
			return nil, fmt.Errorf("sensor %s: %w", s.Name, err)
		}
		if err := reg.Attach(s.Name, dev); err != nil {
			dev.Halt()
			reg.Close()
			return nil, err
		}
		log.Printf("sensor %s: %s at %#02x", s.Name, dev, s.Addr)
	}
	return reg, nil
}
