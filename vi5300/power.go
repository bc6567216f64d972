// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vi5300

import "github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"

// PowerOff stops any capture, masks the data ready interrupt and drives
// XShut low. The chip loses its firmware; PowerOn brings it back. Until then
// captures, settings and calibrations fail with tof.ErrPoweredOff.
//
// It needs a shutdown line and fails with tof.ErrNoPowerPin otherwise.
func (d *Dev) PowerOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal != nil {
		return tof.ErrCalibrationBusy
	}
	if !d.power.Available() {
		return tof.ErrNoPowerPin
	}
	if d.off {
		return nil
	}
	if err := d.stopLocked(); err != nil {
		return err
	}
	if err := d.t.WriteMasked(regIntrMask, intrReady, 0); err != nil {
		return err
	}
	if err := d.power.Off(); err != nil {
		return err
	}
	d.off = true
	d.firmware = ""
	return nil
}

// PowerOn powers the chip back up after PowerOff and initializes it as
// NewI2C does: firmware download, then the current settings, calibration
// results included. It is a no-op on a powered chip.
func (d *Dev) PowerOn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal != nil {
		return tof.ErrCalibrationBusy
	}
	if !d.power.Available() {
		return tof.ErrNoPowerPin
	}
	if !d.off {
		return nil
	}
	if err := d.initLocked(d.settings); err != nil {
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
