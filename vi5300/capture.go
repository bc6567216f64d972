// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vi5300

import (
	"fmt"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

// Settings is the measurement configuration.
type Settings struct {
	// FrameRate in Hz. 0 measures as fast as possible.
	FrameRate int
	// IntegralCounts is the 24 bit integration length.
	IntegralCounts uint32
	// XTalkConfig is the crosstalk compensation written to the chip.
	XTalkConfig byte
	// Offset in mm is subtracted from every corrected result.
	Offset int16
}

// MaxIntegralCounts is the largest integration length.
const MaxIntegralCounts = 0xffffff

// Start begins a capture. A capture already running in the same mode is left
// alone; in another mode it fails with tof.ErrBusy.
func (d *Dev) Start(m tof.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal != nil {
		return tof.ErrCalibrationBusy
	}
	return d.startLocked(m)
}

func (d *Dev) startLocked(m tof.Mode) error {
	var cmd byte
	switch m {
	case tof.Single:
		cmd = cmdSingle
	case tof.Continuous:
		cmd = cmdContinuous
	default:
		return fmt.Errorf("vi5300: invalid mode %s", m)
	}
	if d.off {
		return tof.ErrPoweredOff
	}
	if d.capturing {
		if d.mode == m {
			return nil
		}
		return tof.ErrBusy
	}
	if err := d.command(cmd); err != nil {
		return err
	}
	d.capturing = true
	d.mode = m
	d.started = time.Now()
	return nil
}

// Stop ends the capture. Stopping an idle chip is a no-op.
func (d *Dev) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal != nil {
		return tof.ErrCalibrationBusy
	}
	return d.stopLocked()
}

func (d *Dev) stopLocked() error {
	if !d.capturing {
		return nil
	}
	if err := d.t.Write(regCmd, cmdStop); err != nil {
		return err
	}
	d.capturing = false
	return nil
}

// command waits for the CPU and issues cmd.
func (d *Dev) command(cmd byte) error {
	if err := d.waitCPUReady(); err != nil {
		return err
	}
	if err := d.rcoStable(); err != nil {
		return err
	}
	return d.t.Write(regCmd, cmd)
}

// Capturing reports whether a capture is running.
func (d *Dev) Capturing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capturing
}

// Settings returns the current configuration.
func (d *Dev) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// reconfigure runs f with the capture stopped, restarting it afterward.
func (d *Dev) reconfigure(f func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal != nil {
		return tof.ErrCalibrationBusy
	}
	if d.off {
		return tof.ErrPoweredOff
	}
	if !d.capturing {
		return f()
	}
	m := d.mode
	if err := d.stopLocked(); err != nil {
		return err
	}
	if err := f(); err != nil {
		return err
	}
	return d.startLocked(m)
}

// SetFrameRate sets the measurement rate in Hz. The inter frame delay is
// derived from the integration length read back from the chip. 0 removes
// the delay.
func (d *Dev) SetFrameRate(hz int) error {
	if hz < 0 {
		return fmt.Errorf("vi5300: invalid frame rate %d", hz)
	}
	return d.reconfigure(func() error {
		return d.setFrameRate(hz)
	})
}

func (d *Dev) setFrameRate(hz int) error {
	var delay uint16
	if hz != 0 {
		counts, err := d.readIntegralCounts()
		if err != nil {
			return err
		}
		delay = DelayCounts(hz, counts)
	}
	if err := d.writeDelay(delay); err != nil {
		return err
	}
	d.settings.FrameRate = hz
	return nil
}

// SetIntegralCounts sets the integration length. The frame delay is
// recomputed when a frame rate is set.
func (d *Dev) SetIntegralCounts(n uint32) error {
	if n > MaxIntegralCounts {
		return fmt.Errorf("vi5300: integral counts %d out of range", n)
	}
	return d.reconfigure(func() error {
		return d.setIntegralCounts(n)
	})
}

func (d *Dev) setIntegralCounts(n uint32) error {
	if err := d.writeUserCfg(cfgIntegSize, cfgIntegAddr, byte(n), byte(n>>8), byte(n>>16)); err != nil {
		return err
	}
	d.settings.IntegralCounts = n
	if d.settings.FrameRate != 0 {
		return d.writeDelay(DelayCounts(d.settings.FrameRate, n))
	}
	return nil
}

// IntegralCounts reads the integration length from the chip.
func (d *Dev) IntegralCounts() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal != nil {
		return 0, tof.ErrCalibrationBusy
	}
	return d.readIntegralCounts()
}

// DelayCounts reads the inter frame delay from the chip.
func (d *Dev) DelayCounts() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cal != nil {
		return 0, tof.ErrCalibrationBusy
	}
	var b [cfgDelaySize]byte
	if err := d.readUserCfg(cfgDelayAddr, b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func (d *Dev) readIntegralCounts() (uint32, error) {
	var b [cfgIntegSize]byte
	if err := d.readUserCfg(cfgIntegAddr, b[:]); err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

// The delay is sent high byte first.
func (d *Dev) writeDelay(delay uint16) error {
	return d.writeUserCfg(cfgDelaySize, cfgDelayAddr, byte(delay>>8), byte(delay))
}

// Timing of a frame in ns: integration counts tick at 146.3ns, delay counts
// at 40.9µs, plus a fixed 1.6ms overhead.
const (
	integTickNum   = 1463
	integTickDen   = 10
	frameOverhead  = 1600000
	delayTick      = 40900
	nsPerSecond    = 1000000000
	maxDelayCounts = 0xffff
)

// DelayCounts returns the inter frame delay giving hz frames per second for
// an integration length of counts. Rates the integration cannot keep up
// with get no delay.
func DelayCounts(hz int, counts uint32) uint16 {
	if hz <= 0 {
		return 0
	}
	ns := int64(nsPerSecond/hz) - int64(counts)*integTickNum/integTickDen - frameOverhead
	if ns <= 0 {
		return 0
	}
	ns /= delayTick
	if ns > maxDelayCounts {
		return maxDelayCounts
	}
	return uint16(ns)
}

// writeUserCfg writes a firmware parameter through the scratch pad.
func (d *Dev) writeUserCfg(size, addr byte, data ...byte) error {
	if err := d.rcoStable(); err != nil {
		return err
	}
	if err := d.t.Write(regScratch, append([]byte{cfgWrite, size, addr}, data...)...); err != nil {
		return err
	}
	return d.t.Write(regCmd, cmdUserCfg)
}

// readUserCfg reads a firmware parameter of len(b) bytes into b.
func (d *Dev) readUserCfg(addr byte, b []byte) error {
	if err := d.rcoStable(); err != nil {
		return err
	}
	if err := d.t.Write(regScratch, cfgRead, byte(len(b)), addr); err != nil {
		return err
	}
	if err := d.t.Write(regCmd, cmdUserCfg); err != nil {
		return err
	}
	sleep(cfgSettle)
	return d.t.Read(regScratch, b)
}

// applySettings writes the non zero fields of s.
func (d *Dev) applySettings(s Settings) error {
	d.settings.Offset = s.Offset
	if s.IntegralCounts != 0 {
		if s.IntegralCounts > MaxIntegralCounts {
			return fmt.Errorf("vi5300: integral counts %d out of range", s.IntegralCounts)
		}
		if err := d.setIntegralCounts(s.IntegralCounts); err != nil {
			return err
		}
	}
	if s.FrameRate != 0 {
		if s.FrameRate < 0 {
			return fmt.Errorf("vi5300: invalid frame rate %d", s.FrameRate)
		}
		if err := d.setFrameRate(s.FrameRate); err != nil {
			return err
		}
	}
	if s.XTalkConfig != 0 {
		return d.writeXTalkConfig(s.XTalkConfig)
	}
	return nil
}

// writeXTalkConfig writes the crosstalk compensation.
func (d *Dev) writeXTalkConfig(cfg byte) error {
	if err := d.waitCPUReady(); err != nil {
		return err
	}
	if err := d.writeUserCfg(cfgXTalkSize, cfgXTalkAddr, cfg); err != nil {
		return err
	}
	d.settings.XTalkConfig = cfg
	return nil
}
