// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import "github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"

// PowerOff stops any capture, disables the chip interrupts and drives chip
// enable low. Until PowerOn, operations that talk to the chip fail with
// tof.ErrPoweredOff and the tracked application is unknown.
//
// It needs a chip enable line and fails with tof.ErrNoPowerPin otherwise.
func (d *Dev) PowerOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	if !d.power.Available() {
		return tof.ErrNoPowerPin
	}
	if d.off {
		return nil
	}
	if d.info.App == AppMeasure {
		if err := d.stopLocked(); err != nil {
			return err
		}
		if err := d.t.WriteMasked(regIntEn, irqAll, 0); err != nil {
			return err
		}
	}
	if err := d.power.Off(); err != nil {
		return err
	}
	d.off = true
	d.info = InfoRecord{}
	d.capturing = false
	d.calApplied = false
	return nil
}

// PowerOn powers the chip back up after PowerOff and brings up App0 as
// NewI2C does, downloading firmware when the chip starts in its bootloader.
// The calibration held in memory is kept and written with the next start;
// the cached clock trim is written right away. It is a no-op on a powered
// chip.
func (d *Dev) PowerOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	if !d.power.Available() {
		return tof.ErrNoPowerPin
	}
	if !d.off {
		return nil
	}
	// On failure the chip stays marked off so PowerOn can be retried.
	if err := d.initLocked(false); err != nil {
		return err
	}
	d.off = false
	return nil
}

// Powered reports whether the chip is powered, that is not turned off with
// PowerOff.
func (d *Dev) Powered() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.off
}
