// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

// App identifies the application running on the chip.
type App byte

const (
	AppUnknown    App = 0x00
	AppBootloader App = 0x80
	// AppMeasure is App0, the measurement application.
	AppMeasure App = 0xc0
	// AppReserved is App1. It is never entered.
	AppReserved App = 0xc1
)

func (a App) String() string {
	switch a {
	case AppBootloader:
		return "bootloader"
	case AppMeasure:
		return "app0"
	case AppReserved:
		return "app1"
	case AppUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("App(%#02x)", byte(a))
	}
}

func toApp(b byte) App {
	switch a := App(b); a {
	case AppBootloader, AppMeasure, AppReserved:
		return a
	default:
		return AppUnknown
	}
}

// InfoRecord is the record at the start of the register space describing
// the running application.
type InfoRecord struct {
	App App
	// Version is the major version of the running application.
	Version byte
	// Requested is the content of the application request register.
	Requested App
}

var (
	errCPUBusy   = errors.New("tof8801: cpu busy")
	errCPUAsleep = errors.New("tof8801: cpu asleep")
)

// App returns the tracked running application.
func (d *Dev) App() App {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.info.App
}

// ReadInfoRecord reads the info record from the chip and resynchronizes the
// tracked application with it.
func (d *Dev) ReadInfoRecord() (InfoRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.off {
		return InfoRecord{}, tof.ErrPoweredOff
	}
	err := d.readInfo()
	return d.info, err
}

func (d *Dev) readInfo() error {
	var b [infoRecordSize]byte
	if err := d.t.Read(regAppID, b[:]); err != nil {
		d.info = InfoRecord{}
		return err
	}
	d.info = InfoRecord{App: toApp(b[0]), Version: b[1], Requested: toApp(b[2])}
	return nil
}

// SwitchTo moves the chip to application a.
//
// From the bootloader, App0 is brought up by downloading the firmware images
// in turn and, failing that, by requesting the ROM application. If App0
// still does not run, the chip is reset back to its bootloader and an error
// is returned. App0 is left for the bootloader by request. Any transition
// involving App1 fails with a *tof.StateError.
//
// On return the tracked application matches the chip's info record.
func (d *Dev) SwitchTo(a App) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	if d.off {
		return tof.ErrPoweredOff
	}
	return d.switchLocked(a)
}

func (d *Dev) switchLocked(target App) error {
	if d.info.App == AppUnknown {
		if err := d.readInfo(); err != nil {
			return err
		}
	}
	if target == d.info.App {
		return nil
	}
	if target != AppBootloader && target != AppMeasure {
		return &tof.StateError{From: d.info.App.String(), To: target.String()}
	}
	d.calApplied = false
	switch d.info.App {
	case AppBootloader:
		err := d.fromBootloader()
		if err == nil {
			return nil
		}
		d.log.Printf("%s: %v; resetting to bootloader", d, err)
		if d.power.Available() {
			if terr := d.power.Toggle(); terr != nil {
				return terr
			}
			if werr := d.waitStartup(); werr != nil {
				return werr
			}
		}
		if rerr := d.readInfo(); rerr != nil {
			return rerr
		}
		return err
	case AppMeasure:
		if err := d.stopLocked(); err != nil {
			return err
		}
		if err := d.t.Write(regReqAppID, byte(AppBootloader)); err != nil {
			return err
		}
		if err := d.waitCPUReady(); err != nil {
			return err
		}
		if err := d.readInfo(); err != nil {
			return err
		}
		if d.info.App != AppBootloader {
			return &tof.StateError{From: d.info.App.String(), To: target.String()}
		}
		return nil
	default:
		return &tof.StateError{From: d.info.App.String(), To: target.String()}
	}
}

// fromBootloader brings up App0 from the bootloader.
func (d *Dev) fromBootloader() error {
	err := d.downloadFirmware()
	if err != nil {
		d.log.Printf("%s: %v; requesting %s", d, err, AppMeasure)
		if werr := d.t.Write(regReqAppID, byte(AppMeasure)); werr != nil {
			return werr
		}
		if werr := d.waitCPUReadyTimeout(100 * time.Millisecond); werr != nil {
			d.log.Printf("%s: %v", d, werr)
		}
		if rerr := d.readInfo(); rerr != nil {
			return rerr
		}
	}
	if d.info.App != AppMeasure {
		if err == nil {
			err = &tof.StateError{From: d.info.App.String(), To: AppMeasure.String()}
		}
		return err
	}
	return d.enterMeasure()
}

// downloadFirmware tries each configured image until App0 runs.
func (d *Dev) downloadFirmware() error {
	return tof.TryEach(d.opts.Firmware, d.opts.FirmwareNames, func(name string, raw []byte) error {
		img, err := ParseHex(bytes.NewReader(raw))
		if err != nil {
			return &tof.FirmwareError{Kind: tof.FirmwareDownloadFailed, Name: name, Err: err}
		}
		d.log.Printf("%s: downloading %s, %d bytes", d, name, img.Size())
		if err := d.download(img); err != nil {
			return &tof.FirmwareError{Kind: tof.FirmwareDownloadFailed, Name: name, Err: err}
		}
		if d.info.App != AppMeasure {
			return &tof.FirmwareError{Kind: tof.FirmwareVerificationFailed, Name: name}
		}
		return nil
	})
}

// download loads img through the bootloader and resynchronizes the info
// record.
func (d *Dev) download(img *Image) error {
	if d.info.App != AppBootloader {
		if err := d.switchLocked(AppBootloader); err != nil {
			return err
		}
	}
	bl := bootloader{t: d.t}
	if err := bl.load(img.Decode(d.opts.Salt), d.opts.Salt, time.Now().Add(d.opts.FirmwareTimeout)); err != nil {
		return err
	}
	sleep(i2cWait)
	return d.readInfo()
}

// bringUpMeasure gets a chip fresh out of reset into App0. A chip that
// already runs App0 still needs enterMeasure since its registers were reset.
func (d *Dev) bringUpMeasure() error {
	switch d.info.App {
	case AppMeasure:
		return d.enterMeasure()
	case AppBootloader:
		return d.switchLocked(AppMeasure)
	default:
		return &tof.StateError{From: d.info.App.String(), To: AppMeasure.String()}
	}
}

// enterMeasure prepares a freshly entered App0.
func (d *Dev) enterMeasure() error {
	if err := d.t.WriteMasked(regIntEn, irqAll, irqAll); err != nil {
		return err
	}
	if !d.clockTrimSet {
		return nil
	}
	if !d.isV2() {
		d.log.Printf("%s: %s version %d has no clock trim, dropping %d", d, d.info.App, d.info.Version, d.clockTrim)
		d.clockTrimSet = false
		return nil
	}
	return d.writeClockTrim(d.clockTrim)
}

// HardReset toggles chip enable, waits for the chip and restores App0 if it
// was running before. It fails with tof.ErrNoPowerPin when no chip enable
// line is wired.
func (d *Dev) HardReset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calibrating {
		return tof.ErrCalibrationBusy
	}
	if !d.power.Available() {
		return tof.ErrNoPowerPin
	}
	if d.off {
		return tof.ErrPoweredOff
	}
	wasMeasure := d.info.App == AppMeasure
	if wasMeasure {
		// Best effort, the chip is reset anyway.
		_ = d.stopLocked()
	}
	d.capturing = false
	d.calApplied = false
	if err := d.power.Toggle(); err != nil {
		return err
	}
	if err := d.waitStartup(); err != nil {
		return err
	}
	if err := d.readInfo(); err != nil {
		return err
	}
	if wasMeasure || d.info.App == AppMeasure {
		return d.bringUpMeasure()
	}
	return nil
}

// waitCPUReady polls the enable register until the CPU reports ready. A
// sleeping CPU is woken up and polled again.
func (d *Dev) waitCPUReady() error {
	sleep(i2cWait)
	var err error
	for retry := 0; retry < maxWaitRetry; retry++ {
		var st byte
		if st, err = d.t.ReadByte(regEnable); err != nil {
			continue
		}
		if st&enableCPUReady != 0 {
			return nil
		}
		if st&enablePON == 0 {
			d.log.Printf("%s: standby, waking up", d)
			if err = d.t.Write(regEnable, enableWakeup); err == nil {
				err = errCPUAsleep
			}
			sleep(i2cWait)
			continue
		}
		err = errCPUBusy
		sleep(waitPoll)
	}
	return err
}

// waitCPUReadyTimeout repeats waitCPUReady for about timeout.
func (d *Dev) waitCPUReadyTimeout(timeout time.Duration) error {
	attempts := int(timeout/(i2cWait+maxWaitRetry*waitPoll)) + 1
	var err error
	for i := 0; i < attempts; i++ {
		if err = d.waitCPUReady(); err == nil {
			return nil
		}
	}
	return fmt.Errorf("tof8801: waiting %s for cpu ready: %w", timeout, err)
}

// waitStartup is waitCPUReady escalating to chip enable toggles.
func (d *Dev) waitStartup() error {
	for toggles := 0; ; toggles++ {
		err := d.waitCPUReady()
		if err == nil {
			return nil
		}
		if toggles == maxStartupToggles || !d.power.Available() {
			return err
		}
		d.log.Printf("%s: %v, toggling chip enable", d, err)
		if err := d.power.Toggle(); err != nil {
			return err
		}
	}
}
