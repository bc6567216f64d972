// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

// CaptureSettings is the measurement configuration written with every
// start command.
type CaptureSettings struct {
	// Iterations is the number of measurement iterations. The chip receives
	// it in thousands; 0 selects the application default.
	Iterations uint32
	// Period between measurements in milliseconds. 0 measures as fast as
	// possible.
	Period uint8
	// CaptureDelay before the first measurement.
	CaptureDelay uint8
	// NoiseThreshold adjusts the detection threshold.
	NoiseThreshold int8
	// AlgSetting and GPIOSetting are only honored by App0 version 2 and
	// later.
	AlgSetting  byte
	GPIOSetting byte
	// ClockIterations is derived from Iterations and cannot be set on its
	// own.
	ClockIterations uint16
}

const cmdDataSize = regCommand - regCmdData0

func (s *CaptureSettings) encode(flags byte) [cmdDataSize]byte {
	var b [cmdDataSize]byte
	b[0] = flags
	b[1] = s.AlgSetting
	b[2] = s.GPIOSetting
	b[3] = s.CaptureDelay
	b[4] = byte(s.NoiseThreshold)
	b[5] = s.Period
	binary.LittleEndian.PutUint16(b[6:], uint16(s.Iterations/1000))
	binary.LittleEndian.PutUint16(b[8:], s.ClockIterations)
	return b
}

func decodeSettings(b []byte) CaptureSettings {
	return CaptureSettings{
		AlgSetting:      b[1],
		GPIOSetting:     b[2],
		CaptureDelay:    b[3],
		NoiseThreshold:  int8(b[4]),
		Period:          b[5],
		Iterations:      1000 * uint32(binary.LittleEndian.Uint16(b[6:])),
		ClockIterations: binary.LittleEndian.Uint16(b[8:]),
	}
}

// clockIterations derives the oscillator correction window from the
// iteration count: one correction per thousand iterations, at least one when
// iterations are requested.
func clockIterations(iterations uint32) uint16 {
	k := iterations / 1000
	if k == 0 && iterations != 0 {
		k = 1
	}
	if k > 0xffff {
		k = 0xffff
	}
	return uint16(k)
}

// Start begins a capture. A capture already running in the same mode is left
// alone; in another mode it fails with tof.ErrBusy.
func (d *Dev) Start(m tof.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	return d.startLocked(m)
}

func (d *Dev) startLocked(m tof.Mode) error {
	if m != tof.Single && m != tof.Continuous {
		return fmt.Errorf("tof8801: invalid mode %s", m)
	}
	if d.off {
		return tof.ErrPoweredOff
	}
	if d.info.App != AppMeasure {
		return tof.ErrWrongMode
	}
	if d.capturing {
		if d.mode == m {
			return nil
		}
		return tof.ErrBusy
	}
	var flags byte
	if !d.calApplied {
		if d.factoryCal != nil {
			if err := d.t.Write(regFactoryCal, d.factoryCal...); err != nil {
				return err
			}
			flags |= flagFactoryCal
		}
		if d.algState != nil {
			if err := d.t.Write(regAlgState, d.algState...); err != nil {
				return err
			}
			flags |= flagAlgState
		}
	}
	data := d.settings.encode(flags)
	if err := d.t.Write(regCmdData0, append(data[:], cmdMeasure)...); err != nil {
		return err
	}
	d.calApplied = true
	d.capturing = true
	d.mode = m
	d.started = time.Now()
	return nil
}

// Stop ends the capture. Stopping an idle chip is a no-op.
func (d *Dev) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	return d.stopLocked()
}

func (d *Dev) stopLocked() error {
	if !d.capturing {
		return nil
	}
	if err := d.t.Write(regCommand, cmdStop); err != nil {
		return err
	}
	d.capturing = false
	return nil
}

// Capturing reports whether a capture is running.
func (d *Dev) Capturing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capturing
}

// Settings returns the current capture configuration.
func (d *Dev) Settings() CaptureSettings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// ReadBackSettings reads the command data registers, as written by the last
// start command, and decodes them.
func (d *Dev) ReadBackSettings() (CaptureSettings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.off {
		return CaptureSettings{}, tof.ErrPoweredOff
	}
	var b [cmdDataSize + 1]byte
	if err := d.t.Read(regCmdData0, b[:]); err != nil {
		return CaptureSettings{}, err
	}
	return decodeSettings(b[:]), nil
}

// update applies f to the settings. A running capture is stopped before and
// restarted after so a change never lands mid capture.
func (d *Dev) update(f func(s *CaptureSettings) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	s := d.settings
	if err := f(&s); err != nil {
		return err
	}
	if !d.capturing {
		d.settings = s
		return nil
	}
	m := d.mode
	if err := d.stopLocked(); err != nil {
		return err
	}
	d.settings = s
	return d.startLocked(m)
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return uint8(v)
}

// SetPeriod sets the measurement period in milliseconds, clamped to 255.
func (d *Dev) SetPeriod(ms int) error {
	return d.update(func(s *CaptureSettings) error {
		s.Period = clamp8(ms)
		return nil
	})
}

// SetIterations sets the iteration count and the derived clock correction
// iterations together.
func (d *Dev) SetIterations(n uint32) error {
	if n/1000 > 0xffff {
		return fmt.Errorf("tof8801: %d iterations out of range", n)
	}
	return d.update(func(s *CaptureSettings) error {
		s.Iterations = n
		s.ClockIterations = clockIterations(n)
		return nil
	})
}

// SetNoiseThreshold sets the noise threshold.
func (d *Dev) SetNoiseThreshold(v int8) error {
	return d.update(func(s *CaptureSettings) error {
		s.NoiseThreshold = v
		return nil
	})
}

// SetCaptureDelay sets the capture delay, clamped to 255.
func (d *Dev) SetCaptureDelay(v int) error {
	return d.update(func(s *CaptureSettings) error {
		s.CaptureDelay = clamp8(v)
		return nil
	})
}

// SetAlgSetting sets the algorithm setting byte.
func (d *Dev) SetAlgSetting(v byte) error {
	return d.update(func(s *CaptureSettings) error {
		if !d.isV2() {
			return ErrNotSupported
		}
		s.AlgSetting = v
		return nil
	})
}

// SetGPIOSetting sets the GPIO setting byte.
func (d *Dev) SetGPIOSetting(v byte) error {
	return d.update(func(s *CaptureSettings) error {
		if !d.isV2() {
			return ErrNotSupported
		}
		s.GPIOSetting = v
		return nil
	})
}

func (d *Dev) isV2() bool {
	return d.info.App == AppMeasure && d.info.Version >= 2
}

// Valid clock trim range.
const (
	MinClockTrim = -256
	MaxClockTrim = 255
)

// SetClockTrim sets the oscillator trim. The value is cached and written
// again every time App0 is entered; it is written now when App0 runs.
//
// A running App0 older than version 2 rejects the trim with ErrNotSupported
// and nothing is cached. A trim cached while App0 is not running is dropped
// if the App0 brought up later turns out not to support it.
func (d *Dev) SetClockTrim(trim int) error {
	if trim < MinClockTrim || trim > MaxClockTrim {
		return fmt.Errorf("tof8801: clock trim %d out of range [%d,%d]", trim, MinClockTrim, MaxClockTrim)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	if d.info.App == AppMeasure && !d.isV2() {
		return ErrNotSupported
	}
	d.clockTrim, d.clockTrimSet = trim, true
	if d.off || d.info.App != AppMeasure {
		return nil
	}
	if !d.capturing {
		return d.writeClockTrim(trim)
	}
	m := d.mode
	if err := d.stopLocked(); err != nil {
		return err
	}
	if err := d.writeClockTrim(trim); err != nil {
		return err
	}
	return d.startLocked(m)
}

// ClockTrim reads the oscillator trim back from the chip.
func (d *Dev) ClockTrim() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.off {
		return 0, tof.ErrPoweredOff
	}
	if d.info.App != AppMeasure {
		return 0, tof.ErrWrongMode
	}
	if err := d.command(cmdOscTrim, 0, 0); err != nil {
		return 0, err
	}
	var b [2]byte
	if err := d.t.Read(regTrimData, b[:]); err != nil {
		return 0, err
	}
	return decodeTrim(b), nil
}

// The trim is a 9 bit two's complement value, low byte first.
func encodeTrim(trim int) [2]byte {
	v := uint16(trim) & 0x1ff
	return [2]byte{byte(v), byte(v>>8) | trimWrite}
}

func decodeTrim(b [2]byte) int {
	v := int(b[0]) | int(b[1]&0x01)<<8
	if v&0x100 != 0 {
		v -= 0x200
	}
	return v
}

func (d *Dev) writeClockTrim(trim int) error {
	b := encodeTrim(trim)
	return d.command(cmdOscTrim, b[:]...)
}

// command issues an App0 command with its data and waits until the chip
// acknowledges it in the previous command register.
func (d *Dev) command(cmd byte, data ...byte) error {
	if len(data) > 0 {
		if err := d.t.Write(regCmdData0, data...); err != nil {
			return err
		}
	}
	if err := d.t.Write(regCommand, cmd); err != nil {
		return err
	}
	for i := 0; i < maxCmdRetry; i++ {
		prev, err := d.t.ReadByte(regPrevCommand)
		if err != nil {
			return err
		}
		if prev == cmd {
			return nil
		}
		sleep(waitPoll)
	}
	return fmt.Errorf("tof8801: command %#02x not acknowledged", cmd)
}
