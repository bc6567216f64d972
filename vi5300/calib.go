// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vi5300

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

// Calibration is the per unit calibration data.
type Calibration struct {
	// XTalk is the crosstalk compensation found by CalibrateCrosstalk.
	XTalk int8
	// XTalkPeak is the crosstalk peak count measured with it.
	XTalkPeak uint16
	// Offset in mm found by CalibrateOffset.
	Offset int16
}

const (
	// OffsetSamples is the number of results averaged by CalibrateOffset.
	OffsetSamples = 30
	// OffsetTarget is the distance in mm of the calibration target.
	OffsetTarget = 50
	// maxOffsetPolls bounds CalibrateOffset, empty polls included.
	maxOffsetPolls = 10 * OffsetSamples
)

// XTalkCalibrationTimeout bounds CalibrateCrosstalk.
var XTalkCalibrationTimeout = time.Second

var errCalibrationTimeout = errors.New("timed out")

type calKind int

const (
	calXTalk calKind = iota + 1
	calOffset
)

// calRun is the state of a running calibration, fed by HandleInterrupt.
type calRun struct {
	kind    calKind
	done    bool
	err     error
	xtalk   int8
	peak    uint16
	sum     int
	samples []tof.Sample
}

// add accumulates a result corrected for pileup only.
func (c *calRun) add(raw tof.Raw, t time.Duration) {
	if len(c.samples) >= OffsetSamples {
		return
	}
	r := tof.Correct(raw, 0)
	c.sum += r.Millimeter
	c.samples = append(c.samples, r.Sample(t))
	c.done = len(c.samples) == OffsetSamples
}

func (k calKind) String() string {
	if k == calXTalk {
		return "crosstalk"
	}
	return "offset"
}

// readXTalk reads the crosstalk calibration result.
func (d *Dev) readXTalk() error {
	sp, err := d.t.ReadByte(regSpecial)
	if err != nil {
		return err
	}
	if sp != specialXTalk {
		return fmt.Errorf("vi5300: crosstalk result not ready (%#02x)", sp)
	}
	var b [xtalkResult]byte
	if err := d.t.Read(regScratch, b[:]); err != nil {
		return err
	}
	d.cal.xtalk = int8(b[0])
	d.cal.peak = binary.LittleEndian.Uint16(b[1:])
	d.cal.done = true
	return nil
}

// begin claims the result pipeline for a calibration. Any running capture
// is stopped.
func (d *Dev) begin(kind calKind) (*calRun, error) {
	if d.cal != nil {
		return nil, tof.ErrCalibrationBusy
	}
	if d.off {
		return nil, tof.ErrPoweredOff
	}
	if err := d.stopLocked(); err != nil {
		return nil, err
	}
	d.cal = &calRun{kind: kind}
	return d.cal, nil
}

// await drives the interrupt pipeline until run completes, fails or polls
// runs out.
func (d *Dev) await(run *calRun, poll time.Duration, polls int) error {
	for i := 0; i < polls; i++ {
		sleep(poll)
		if d.loop == nil {
			// The error is recorded in run.
			_ = d.HandleInterrupt()
		}
		d.mu.Lock()
		done, err := run.done, run.err
		d.mu.Unlock()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return errCalibrationTimeout
}

// CalibrateCrosstalk measures the crosstalk of the cover glass and writes
// the resulting compensation to the chip. The chip must face a target-free
// field of view.
//
// Meanwhile every other operation fails with tof.ErrCalibrationBusy.
func (d *Dev) CalibrateCrosstalk() (Calibration, error) {
	d.mu.Lock()
	run, err := d.begin(calXTalk)
	if err == nil {
		if err = d.command(cmdXTalkTrim); err != nil {
			d.cal = nil
		}
	}
	d.mu.Unlock()
	if err != nil {
		return Calibration{}, calibrationError(calXTalk, err)
	}
	err = d.await(run, calibPoll, int(XTalkCalibrationTimeout/calibPoll)+1)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cal = nil
	if err != nil {
		return Calibration{}, calibrationError(calXTalk, err)
	}
	d.calib.XTalk = run.xtalk
	d.calib.XTalkPeak = run.peak
	if err := d.writeXTalkConfig(byte(run.xtalk)); err != nil {
		return Calibration{}, calibrationError(calXTalk, err)
	}
	return d.calib, nil
}

// CalibrateOffset measures the offset against a target at OffsetTarget mm.
// It averages OffsetSamples results of a continuous capture and returns the
// offset and the samples it was computed from. The offset is applied to the
// results that follow.
//
// Meanwhile every other operation fails with tof.ErrCalibrationBusy.
func (d *Dev) CalibrateOffset() (int16, []tof.Sample, error) {
	d.mu.Lock()
	run, err := d.begin(calOffset)
	if err == nil {
		if err = d.startLocked(tof.Continuous); err != nil {
			d.cal = nil
		}
	}
	d.mu.Unlock()
	if err != nil {
		return 0, nil, calibrationError(calOffset, err)
	}
	err = d.await(run, calibPoll, maxOffsetPolls)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cal = nil
	if serr := d.stopLocked(); serr != nil {
		d.capturing = false
		if err == nil {
			err = serr
		}
	}
	if err != nil {
		return 0, nil, calibrationError(calOffset, err)
	}
	offset := int16(run.sum/OffsetSamples - OffsetTarget)
	d.calib.Offset = offset
	d.settings.Offset = offset
	return offset, run.samples, nil
}

func calibrationError(k calKind, err error) error {
	if errors.Is(err, tof.ErrCalibrationBusy) {
		return err
	}
	return &tof.CalibrationError{Op: k.String(), Err: err}
}

// Calibration returns the calibration data.
func (d *Dev) Calibration() Calibration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calib
}

// SetCalibration loads calibration data, such as stored from a previous
// calibration run. The crosstalk compensation is written to the chip and
// the offset applies to the results that follow.
func (d *Dev) SetCalibration(c Calibration) error {
	return d.reconfigure(func() error {
		if err := d.writeXTalkConfig(byte(c.XTalk)); err != nil {
			return err
		}
		d.calib = c
		d.settings.Offset = c.Offset
		return nil
	})
}
