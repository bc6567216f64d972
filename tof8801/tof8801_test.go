// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// Unit tests for the package. They run against scripted I2C playback. To
// also run the smoke test on a live sensor on the default bus, define the
// environment variable TOF8801.

package tof8801

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func init() {
	sleep = func(time.Duration) {}
}

func rd(reg byte, r ...byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: []byte{reg}, R: r}
}

func wr(reg byte, data ...byte) i2ctest.IO {
	return i2ctest.IO{Addr: DefaultAddress, W: append([]byte{reg}, data...)}
}

func join(parts ...[]i2ctest.IO) []i2ctest.IO {
	var out []i2ctest.IO
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// startup is the common start of initialization, up to the info record.
func startup(app, version byte) []i2ctest.IO {
	return []i2ctest.IO{
		rd(regEnable, enableCPUReady|enablePON),
		rd(regID, ChipID),
		rd(regAppID, app, version, app),
	}
}

var enterApp0 = []i2ctest.IO{
	rd(regIntEn, 0x00),
	wr(regIntEn, irqAll),
}

// bootApp0 initializes a chip already running App0 version 2.
var bootApp0 = join(startup(byte(AppMeasure), 2), enterApp0)

var blReady = rd(regBLCmdStat, 0x00, 0x00, 0xff)

const testHex = ":0400000001020304F2\n:00000001FF\n"

// download is the bootloader traffic for testHex with the default salt.
var download = []i2ctest.IO{
	wr(regBLCmdStat, 0x14, 0x01, 0x29, 0xc1),
	rd(regBLCmdStat, 0x02, 0x00, 0xfd),
	blReady,
	wr(regBLCmdStat, 0x43, 0x02, 0x00, 0x00, 0xba),
	blReady,
	wr(regBLCmdStat, 0x41, 0x04, 0x28, 0x2b, 0x2a, 0x2d, 0x10),
	blReady,
	wr(regBLCmdStat, 0x11, 0x00, 0xee),
}

func newDev(t *testing.T, bus *i2ctest.Playback, opts *Opts) *Dev {
	t.Helper()
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	d, err := NewI2C(bus, DefaultAddress, opts)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func resultFrame(mm uint16, info byte, xtalk uint16) []byte {
	f := make([]byte, frameSize)
	f[0] = contentsResult
	f[1] = 1
	f[frameResultNum] = 7
	f[frameResultInfo] = info
	f[frameDistance] = byte(mm)
	f[frameDistance+1] = byte(mm >> 8)
	f[frameXTalk] = byte(xtalk)
	f[frameXTalk+1] = byte(xtalk >> 8)
	return f
}

func TestSwitchFromBootloader(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		startup(byte(AppBootloader), 1),
		download,
		[]i2ctest.IO{rd(regAppID, byte(AppMeasure), 2, byte(AppMeasure))},
		enterApp0,
		[]i2ctest.IO{rd(regAppID, byte(AppMeasure), 2, byte(AppMeasure))},
	)}
	opts := DefaultOpts
	opts.Firmware = tof.MapSource{"tof8801_firmware-1.bin": []byte(testHex)}
	d := newDev(t, bus, &opts)
	if a := d.App(); a != AppMeasure {
		t.Fatalf("App() = %s", a)
	}
	info, err := d.ReadInfoRecord()
	if err != nil {
		t.Fatal(err)
	}
	if info.App != d.App() || info.App != AppMeasure {
		t.Errorf("info record %+v, tracked %s", info, d.App())
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFirmwareRejected(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		startup(byte(AppBootloader), 1),
		download,
		[]i2ctest.IO{
			// Still the bootloader after the remap reset.
			rd(regAppID, byte(AppBootloader), 1, byte(AppBootloader)),
			// Requesting the ROM application does not help either.
			wr(regReqAppID, byte(AppMeasure)),
			rd(regEnable, enableCPUReady|enablePON),
			rd(regAppID, byte(AppBootloader), 1, byte(AppMeasure)),
			// No chip enable line, so only a resync.
			rd(regAppID, byte(AppBootloader), 1, byte(AppMeasure)),
		},
	)}
	opts := DefaultOpts
	opts.Firmware = tof.MapSource{"tof8801_firmware-1.bin": []byte(testHex)}
	_, err := NewI2C(bus, DefaultAddress, &opts)
	if !tof.IsFirmwareKind(err, tof.FirmwareVerificationFailed) {
		t.Fatalf("NewI2C() = %v, want a verification failure", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBadChipID(t *testing.T) {
	bus := &i2ctest.Playback{Ops: []i2ctest.IO{
		rd(regEnable, enableCPUReady|enablePON),
		rd(regID, 0x2a),
	}}
	if _, err := NewI2C(bus, DefaultAddress, nil); err == nil {
		t.Fatal("NewI2C() accepted a foreign chip")
	}
}

func TestWakeUp(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		[]i2ctest.IO{
			rd(regEnable, 0x00),
			wr(regEnable, enableWakeup),
			rd(regEnable, enablePON),
		},
		bootApp0,
	)}
	newDev(t, bus, nil)
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCapture(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCmdData0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
			rd(regIntStat, irqResults),
			wr(regIntStat, irqResults),
			rd(regContents, resultFrame(300, 0x7f, 16)...),
			// Spurious interrupt.
			rd(regIntStat, 0x00),
			wr(regCommand, cmdStop),
		},
	)}
	d := newDev(t, bus, nil)
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(tof.Continuous); err != nil {
		t.Errorf("Start() in the same mode = %v", err)
	}
	if err := d.Start(tof.Single); !errors.Is(err, tof.ErrBusy) {
		t.Errorf("Start() in another mode = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := d.HandleInterrupt(); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
	// Idle: neither traffic nor samples.
	if err := d.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := d.HandleInterrupt(); err != nil {
		t.Fatal(err)
	}
	got := d.Samples().Drain()
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
	got[0].Time = 0
	want := tof.Sample{
		Distance:   300 * physic.MilliMetre,
		Status:     tof.StatusConfident,
		Confidence: 100,
		Objects:    1,
		Near:       300 * physic.MilliMetre,
		Far:        300 * physic.MilliMetre,
	}
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("sample (-want +got):\n%s", diff)
	}
	if p := d.XTalkPeak(); p != 16 {
		t.Errorf("XTalkPeak() = %d", p)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSingleShot(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCmdData0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
			rd(regIntStat, irqResults),
			wr(regIntStat, irqResults),
			rd(regContents, resultFrame(1200, 12, 0)...),
			wr(regCommand, cmdStop),
		},
	)}
	d := newDev(t, bus, nil)
	if err := d.Start(tof.Single); err != nil {
		t.Fatal(err)
	}
	if err := d.HandleInterrupt(); err != nil {
		t.Fatal(err)
	}
	if d.Capturing() {
		t.Error("single shot still capturing")
	}
	s, ok := d.Samples().Pop()
	if !ok || s.Status != tof.StatusSemiConfident || s.Millimetres() != 1200 {
		t.Errorf("sample = %+v", s)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestQueueOverflow(t *testing.T) {
	irq := []i2ctest.IO{
		rd(regIntStat, irqResults),
		wr(regIntStat, irqResults),
		rd(regContents, resultFrame(500, 40, 0)...),
	}
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{wr(regCmdData0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure)},
		irq, irq, irq,
	)}
	opts := DefaultOpts
	opts.QueueSize = 2
	d := newDev(t, bus, &opts)
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	var overflows int
	for i := 0; i < 3; i++ {
		if err := d.HandleInterrupt(); errors.Is(err, tof.ErrBufferOverflow) {
			overflows++
		} else if err != nil {
			t.Fatal(err)
		}
	}
	if overflows != 1 || d.Samples().Len() != 1 {
		t.Errorf("overflows %d, queue length %d", overflows, d.Samples().Len())
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	encoded := []byte{0, 0x80, 0x03, 2, 0xfb, 33, 0x90, 0x01, 0x90, 0x01, cmdMeasure}
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCmdData0, encoded...),
			rd(regCmdData0, encoded...),
		},
	)}
	opts := DefaultOpts
	opts.Settings = CaptureSettings{
		Iterations:     400000,
		Period:         33,
		CaptureDelay:   2,
		NoiseThreshold: -5,
		AlgSetting:     0x80,
		GPIOSetting:    0x03,
	}
	d := newDev(t, bus, &opts)
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	got, err := d.ReadBackSettings()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(d.Settings(), got); diff != "" {
		t.Errorf("ReadBackSettings() (-want +got):\n%s", diff)
	}
	if got.ClockIterations != 400 {
		t.Errorf("ClockIterations = %d", got.ClockIterations)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSettersRestart(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCmdData0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
			wr(regCommand, cmdStop),
			wr(regCmdData0, 0, 0, 0, 0, 0, 0xff, 0, 0, 0, 0, cmdMeasure),
			wr(regCommand, cmdStop),
			wr(regCmdData0, 0, 0, 0, 0, 0, 0xff, 0x05, 0x00, 0x05, 0x00, cmdMeasure),
		},
	)}
	d := newDev(t, bus, nil)
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	if err := d.SetPeriod(1000); err != nil {
		t.Fatal(err)
	}
	if err := d.SetIterations(5500); err != nil {
		t.Fatal(err)
	}
	if s := d.Settings(); s.Period != 0xff || s.ClockIterations != 5 {
		t.Errorf("Settings() = %+v", s)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestVersionGatedSettings(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(startup(byte(AppMeasure), 1), enterApp0)}
	d := newDev(t, bus, nil)
	if err := d.SetAlgSetting(1); !errors.Is(err, ErrNotSupported) {
		t.Errorf("SetAlgSetting() = %v", err)
	}
	if err := d.SetGPIOSetting(1); !errors.Is(err, ErrNotSupported) {
		t.Errorf("SetGPIOSetting() = %v", err)
	}
}

func TestClockTrim(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCmdData0, 0xfd, 0x81),
			wr(regCommand, cmdOscTrim),
			rd(regPrevCommand, 0x00),
			rd(regPrevCommand, cmdOscTrim),
			wr(regCmdData0, 0x00, 0x00),
			wr(regCommand, cmdOscTrim),
			rd(regPrevCommand, cmdOscTrim),
			rd(regTrimData, 0xfd, 0x01),
		},
	)}
	d := newDev(t, bus, nil)
	if err := d.SetClockTrim(300); err == nil {
		t.Error("SetClockTrim() accepted an out of range value")
	}
	if err := d.SetClockTrim(-3); err != nil {
		t.Fatal(err)
	}
	trim, err := d.ClockTrim()
	if err != nil {
		t.Fatal(err)
	}
	if trim != -3 {
		t.Errorf("ClockTrim() = %d", trim)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTrimEncoding(t *testing.T) {
	for trim := MinClockTrim; trim <= MaxClockTrim; trim++ {
		b := encodeTrim(trim)
		if b[1]&trimWrite == 0 {
			t.Fatal("write flag missing")
		}
		if got := decodeTrim(b); got != trim {
			t.Fatalf("decodeTrim(encodeTrim(%d)) = %d", trim, got)
		}
	}
}

func TestSwitchToInvariant(t *testing.T) {
	bl := []byte{byte(AppBootloader), 1, byte(AppBootloader)}
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regReqAppID, byte(AppBootloader)),
			rd(regEnable, enableCPUReady|enablePON),
			rd(regAppID, bl...),
			rd(regAppID, bl...),
		},
	)}
	d := newDev(t, bus, nil)
	var se *tof.StateError
	if err := d.SwitchTo(AppReserved); !errors.As(err, &se) {
		t.Errorf("SwitchTo(app1) = %v", err)
	}
	if err := d.SwitchTo(AppMeasure); err != nil {
		t.Errorf("SwitchTo(same) = %v", err)
	}
	if err := d.SwitchTo(AppBootloader); err != nil {
		t.Fatal(err)
	}
	if err := d.Start(tof.Continuous); !errors.Is(err, tof.ErrWrongMode) {
		t.Errorf("Start() in the bootloader = %v", err)
	}
	info, err := d.ReadInfoRecord()
	if err != nil {
		t.Fatal(err)
	}
	if info.App != d.App() || d.App() != AppBootloader {
		t.Errorf("chip reports %s, tracked %s", info.App, d.App())
	}
	if v, _ := d.Version(); v != "0x80-1-0-0" {
		t.Errorf("Version() = %q", v)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSwitchRefused(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regReqAppID, byte(AppBootloader)),
			rd(regEnable, enableCPUReady|enablePON),
			rd(regAppID, byte(AppMeasure), 2, byte(AppBootloader)),
		},
	)}
	d := newDev(t, bus, nil)
	if err := d.SwitchTo(AppBootloader); err == nil {
		t.Fatal("SwitchTo() succeeded")
	}
	if d.App() != AppMeasure {
		t.Errorf("tracked %s, chip reports app0", d.App())
	}
}

func TestFactoryCalibration(t *testing.T) {
	blob := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	frame := make([]byte, frameSize)
	frame[0] = contentsCalibration
	copy(frame[factoryCalOffset:], blob)
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCommand, cmdFactoryCalib),
			rd(regIntStat, 0x00),
			rd(regIntStat, irqResults),
			wr(regIntStat, irqResults),
			rd(regContents, frame...),
			wr(regFactoryCal, blob...),
			wr(regCmdData0, flagFactoryCal, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
		},
	)}
	d := newDev(t, bus, nil)
	got, err := d.FactoryCalibrate()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(blob, got); diff != "" {
		t.Errorf("FactoryCalibrate() (-want +got):\n%s", diff)
	}
	if d.CalibrationApplied() {
		t.Error("calibration applied before start")
	}
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	if !d.CalibrationApplied() {
		t.Error("calibration not applied by start")
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestCalibrationExclusive(t *testing.T) {
	bus := &i2ctest.Playback{Ops: bootApp0}
	d := newDev(t, bus, nil)
	d.calibrating = true
	if err := d.Start(tof.Continuous); !errors.Is(err, tof.ErrCalibrationBusy) {
		t.Errorf("Start() = %v", err)
	}
	if err := d.Stop(); !errors.Is(err, tof.ErrCalibrationBusy) {
		t.Errorf("Stop() = %v", err)
	}
	if _, err := d.FactoryCalibrate(); !errors.Is(err, tof.ErrCalibrationBusy) {
		t.Errorf("FactoryCalibrate() = %v", err)
	}
	if err := d.SetPeriod(1); !errors.Is(err, tof.ErrCalibrationBusy) {
		t.Errorf("SetPeriod() = %v", err)
	}
}

func TestCalibrationFiles(t *testing.T) {
	blob := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	state := []byte{0xa, 0xb, 0xc}
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regFactoryCal, blob...),
			wr(regAlgState, state...),
			wr(regCmdData0, flagFactoryCal|flagAlgState, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
			wr(regCommand, cmdStop),
			// Already applied: plain start.
			wr(regCmdData0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
		},
	)}
	opts := DefaultOpts
	opts.Firmware = tof.MapSource{
		"tof8801_fac_calib.bin":    blob,
		"tof8801_config_calib.bin": state,
	}
	d := newDev(t, bus, &opts)
	for i := 0; i < 2; i++ {
		if err := d.Start(tof.Continuous); err != nil {
			t.Fatal(err)
		}
		if i == 0 {
			if err := d.Stop(); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := d.ApplyFactoryCalibration(blob[:3]); err == nil {
		t.Error("ApplyFactoryCalibration() accepted a short record")
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestHardReset(t *testing.T) {
	app0 := []byte{byte(AppMeasure), 2, byte(AppMeasure)}
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCmdData0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
			wr(regCommand, cmdStop),
			rd(regEnable, enableCPUReady|enablePON),
			rd(regAppID, byte(AppBootloader), 1, byte(AppBootloader)),
			// No firmware available: request the ROM application.
			wr(regReqAppID, byte(AppMeasure)),
			rd(regEnable, enableCPUReady|enablePON),
			rd(regAppID, app0...),
		},
		enterApp0,
	)}
	ce := &gpiotest.Pin{N: "CE"}
	opts := DefaultOpts
	opts.Enable = ce
	d := newDev(t, bus, &opts)
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	if err := d.HardReset(); err != nil {
		t.Fatal(err)
	}
	if d.App() != AppMeasure || d.Capturing() || d.CalibrationApplied() {
		t.Errorf("after reset: app %s capturing %t applied %t", d.App(), d.Capturing(), d.CalibrationApplied())
	}
	if ce.L != gpio.High {
		t.Error("chip left disabled")
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if ce.L != gpio.Low {
		t.Error("Halt() left the chip powered")
	}
}

func TestHardResetNoPin(t *testing.T) {
	bus := &i2ctest.Playback{Ops: bootApp0}
	d := newDev(t, bus, nil)
	if err := d.HardReset(); !errors.Is(err, tof.ErrNoPowerPin) {
		t.Errorf("HardReset() = %v", err)
	}
}

func TestCalibrateCrosstalk(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		[]i2ctest.IO{
			wr(regCmdData0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
			rd(regIntStat, irqResults),
			wr(regIntStat, irqResults),
			rd(regContents, resultFrame(300, 0x7f, 23)...),
		},
	)}
	d := newDev(t, bus, nil)
	var ce *tof.CalibrationError
	if _, err := d.CalibrateCrosstalk(); !errors.As(err, &ce) {
		t.Errorf("CalibrateCrosstalk() before any result = %v", err)
	}
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	if err := d.HandleInterrupt(); err != nil {
		t.Fatal(err)
	}
	x, err := d.CalibrateCrosstalk()
	if err != nil {
		t.Fatal(err)
	}
	if x != 23 || d.Crosstalk() != 23 {
		t.Errorf("CalibrateCrosstalk() = %d, Crosstalk() = %d", x, d.Crosstalk())
	}
	// Recorded only: no register traffic past the capture.
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// trimOps writes a clock trim of -3.
var trimOps = []i2ctest.IO{
	wr(regCmdData0, 0xfd, 0x81),
	wr(regCommand, cmdOscTrim),
	rd(regPrevCommand, cmdOscTrim),
}

func TestHardResetInApp0(t *testing.T) {
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		trimOps,
		[]i2ctest.IO{
			rd(regEnable, enableCPUReady|enablePON),
			// The ROM application comes up on its own.
			rd(regAppID, byte(AppMeasure), 2, byte(AppMeasure)),
		},
		enterApp0,
		trimOps,
	)}
	opts := DefaultOpts
	opts.Enable = &gpiotest.Pin{N: "CE"}
	d := newDev(t, bus, &opts)
	if err := d.SetClockTrim(-3); err != nil {
		t.Fatal(err)
	}
	if err := d.HardReset(); err != nil {
		t.Fatal(err)
	}
	if d.App() != AppMeasure {
		t.Errorf("App() = %s", d.App())
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestClockTrimUnsupported(t *testing.T) {
	v1 := []byte{byte(AppMeasure), 1, byte(AppMeasure)}
	bus := &i2ctest.Playback{Ops: join(
		startup(byte(AppMeasure), 1),
		enterApp0,
		[]i2ctest.IO{
			rd(regEnable, enableCPUReady|enablePON),
			rd(regAppID, v1...),
		},
		// No trim written on the way back into App0.
		enterApp0,
	)}
	opts := DefaultOpts
	opts.Enable = &gpiotest.Pin{N: "CE"}
	d := newDev(t, bus, &opts)
	if err := d.SetClockTrim(-3); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("SetClockTrim() = %v", err)
	}
	if err := d.HardReset(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPowerCycle(t *testing.T) {
	blob := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	startCal := []i2ctest.IO{
		wr(regFactoryCal, blob...),
		wr(regCmdData0, flagFactoryCal, 0, 0, 0, 0, 0, 0, 0, 0, 0, cmdMeasure),
	}
	bus := &i2ctest.Playback{Ops: join(
		bootApp0,
		startCal,
		[]i2ctest.IO{
			wr(regCommand, cmdStop),
			rd(regIntEn, irqAll),
			wr(regIntEn, 0x00),
		},
		// Power is back with the chip in its bootloader.
		startup(byte(AppBootloader), 1),
		download,
		[]i2ctest.IO{rd(regAppID, byte(AppMeasure), 2, byte(AppMeasure))},
		enterApp0,
		trimOps,
		startCal,
		[]i2ctest.IO{
			rd(regIntStat, irqResults),
			wr(regIntStat, irqResults),
			rd(regContents, resultFrame(300, 0x7f, 16)...),
		},
	)}
	ce := &gpiotest.Pin{N: "CE"}
	opts := DefaultOpts
	opts.Enable = ce
	opts.Firmware = tof.MapSource{
		"tof8801_firmware-1.bin": []byte(testHex),
		"tof8801_fac_calib.bin":  blob,
	}
	d := newDev(t, bus, &opts)
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	if err := d.PowerOff(); err != nil {
		t.Fatal(err)
	}
	if ce.L != gpio.Low || d.Powered() || d.Capturing() || d.App() != AppUnknown {
		t.Errorf("after PowerOff: CE %s powered %t capturing %t app %s", ce.L, d.Powered(), d.Capturing(), d.App())
	}
	if err := d.PowerOff(); err != nil {
		t.Errorf("second PowerOff() = %v", err)
	}
	if err := d.Start(tof.Continuous); !errors.Is(err, tof.ErrPoweredOff) {
		t.Errorf("Start() while off = %v", err)
	}
	if _, err := d.FactoryCalibrate(); !errors.Is(err, tof.ErrPoweredOff) {
		t.Errorf("FactoryCalibrate() while off = %v", err)
	}
	if _, err := d.Version(); !errors.Is(err, tof.ErrPoweredOff) {
		t.Errorf("Version() while off = %v", err)
	}
	// Cached while off, written once App0 is back.
	if err := d.SetClockTrim(-3); err != nil {
		t.Fatal(err)
	}
	if err := d.PowerOn(); err != nil {
		t.Fatal(err)
	}
	if ce.L != gpio.High || !d.Powered() || d.App() != AppMeasure {
		t.Errorf("after PowerOn: CE %s powered %t app %s", ce.L, d.Powered(), d.App())
	}
	if err := d.PowerOn(); err != nil {
		t.Errorf("second PowerOn() = %v", err)
	}
	if err := d.Start(tof.Continuous); err != nil {
		t.Fatal(err)
	}
	if err := d.HandleInterrupt(); err != nil {
		t.Fatal(err)
	}
	got := d.Samples().Drain()
	if len(got) != 1 || got[0].Distance != 300*physic.MilliMetre {
		t.Errorf("samples after power cycle = %+v", got)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPowerNoPin(t *testing.T) {
	bus := &i2ctest.Playback{Ops: bootApp0}
	d := newDev(t, bus, nil)
	if err := d.PowerOff(); !errors.Is(err, tof.ErrNoPowerPin) {
		t.Errorf("PowerOff() = %v", err)
	}
	if err := d.PowerOn(); !errors.Is(err, tof.ErrNoPowerPin) {
		t.Errorf("PowerOn() = %v", err)
	}
	if !d.Powered() {
		t.Error("Powered() = false")
	}
}

func TestResultStatus(t *testing.T) {
	for _, tc := range []struct {
		mm   int
		rel  byte
		want tof.Status
	}{
		{50, 1, tof.StatusConfident},
		{50, 0, tof.StatusNotConfident},
		{100, 30, tof.StatusConfident},
		{100, 29, tof.StatusSemiConfident},
		{2000, 10, tof.StatusSemiConfident},
		{2000, 9, tof.StatusNotConfident},
	} {
		r := Result{Millimeter: tc.mm, Reliability: tc.rel}
		if got := r.Status(); got != tc.want {
			t.Errorf("Status(%dmm, %d) = %s, want %s", tc.mm, tc.rel, got, tc.want)
		}
	}
}

func TestLive(t *testing.T) {
	if os.Getenv("TOF8801") == "" {
		t.Skip("set TOF8801 to run against a live sensor")
	}
	if _, err := host.Init(); err != nil {
		t.Fatal(err)
	}
	b, err := i2creg.Open("")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	rec := &i2ctest.Record{Bus: b}
	d, err := NewI2C(rec, DefaultAddress, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Halt()
	v, err := d.Version()
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("%s running %s", d, v)
	if err := d.Start(tof.Single); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50 && d.Samples().Len() == 0; i++ {
		if err := d.HandleInterrupt(); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	s, ok := d.Samples().Pop()
	if !ok {
		t.Fatal("no sample")
	}
	t.Log(s.String())
	t.Logf("%d transactions recorded", len(rec.Ops))
}
