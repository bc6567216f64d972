// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import (
	"errors"
	"fmt"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

// FactoryCalibrationTimeout bounds FactoryCalibrate.
var FactoryCalibrationTimeout = 15 * time.Second

var errCalibrationTimeout = errors.New("tof8801: no calibration record")

// FactoryCalibrate runs the chip's factory calibration and returns the
// calibration record. The record becomes the one applied on the next start.
//
// The chip must face a target-free field of view. Any running capture is
// stopped. The call blocks until the record is read or the timeout expires;
// meanwhile every other operation fails with tof.ErrCalibrationBusy.
func (d *Dev) FactoryCalibrate() ([]byte, error) {
	ch, err := d.beginFactoryCalibration()
	if err != nil {
		return nil, err
	}
	blob, err := d.awaitCalibration(ch)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calibrating = false
	d.calResult = nil
	if err != nil {
		return nil, &tof.CalibrationError{Op: "factory", Err: err}
	}
	d.factoryCal = blob
	d.algState = nil
	d.calApplied = false
	return append([]byte(nil), blob...), nil
}

func (d *Dev) beginFactoryCalibration() (chan []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return nil, tof.ErrCalibrationBusy
	}
	if d.off {
		return nil, tof.ErrPoweredOff
	}
	if d.info.App != AppMeasure {
		return nil, tof.ErrWrongMode
	}
	if err := d.stopLocked(); err != nil {
		return nil, err
	}
	ch := make(chan []byte, 1)
	// Routing is set up before the command so the record cannot be missed.
	d.calibrating = true
	d.calResult = ch
	if err := d.t.Write(regCommand, cmdFactoryCalib); err != nil {
		d.calibrating = false
		d.calResult = nil
		return nil, &tof.CalibrationError{Op: "factory", Err: err}
	}
	return ch, nil
}

func (d *Dev) awaitCalibration(ch chan []byte) ([]byte, error) {
	polls := int(FactoryCalibrationTimeout/calibPoll) + 1
	for i := 0; i < polls; i++ {
		if d.loop == nil {
			if err := d.HandleInterrupt(); err != nil {
				return nil, err
			}
		}
		select {
		case blob := <-ch:
			return blob, nil
		default:
		}
		sleep(calibPoll)
	}
	return nil, errCalibrationTimeout
}

// ApplyFactoryCalibration loads a calibration record, such as one returned
// by FactoryCalibrate and stored since. It is written with the next start.
func (d *Dev) ApplyFactoryCalibration(blob []byte) error {
	if len(blob) != FactoryCalibrationSize {
		return fmt.Errorf("tof8801: factory calibration is %d bytes, want %d", len(blob), FactoryCalibrationSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	if d.info.App != AppMeasure {
		return tof.ErrWrongMode
	}
	d.factoryCal = append([]byte(nil), blob...)
	// Algorithm state belongs to the previous calibration.
	d.algState = nil
	d.calApplied = false
	return nil
}

// ApplyAlgState loads algorithm state data to be written with the next
// start. It requires a factory calibration.
func (d *Dev) ApplyAlgState(state []byte) error {
	if len(state) > AlgStateSize {
		return fmt.Errorf("tof8801: algorithm state is %d bytes, max %d", len(state), AlgStateSize)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	if d.info.App != AppMeasure {
		return tof.ErrWrongMode
	}
	if d.factoryCal == nil {
		return errors.New("tof8801: algorithm state needs a factory calibration")
	}
	d.algState = append([]byte(nil), state...)
	d.calApplied = false
	return nil
}

// FactoryCalibration returns the loaded calibration record, or nil.
func (d *Dev) FactoryCalibration() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.factoryCal...)
}

// CalibrationApplied reports whether the loaded calibration was written to
// the running application. It is cleared on every application switch and
// reset.
func (d *Dev) CalibrationApplied() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calApplied
}

// XTalkPeak returns the crosstalk reported by the last result frame that
// carried one.
func (d *Dev) XTalkPeak() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.xtalkPeak
}

// CalibrateCrosstalk latches the last reported crosstalk peak as the
// crosstalk calibration value and returns it.
//
// App0 compensates crosstalk on its own and has no register to load a value
// into, so the value is only recorded for the host, as Crosstalk reports it.
// It is never written to the chip.
func (d *Dev) CalibrateCrosstalk() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return 0, tof.ErrCalibrationBusy
	}
	if d.xtalkPeak == 0 {
		return 0, &tof.CalibrationError{Op: "crosstalk", Err: errors.New("no crosstalk reported yet")}
	}
	d.xtalk = d.xtalkPeak
	return d.xtalk, nil
}

// Crosstalk returns the value latched by the last CalibrateCrosstalk, or 0.
func (d *Dev) Crosstalk() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.xtalk
}
