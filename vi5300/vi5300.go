// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vi5300

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// Opts holds the configuration options.
type Opts struct {
	// XShut is the shutdown line. When set, the chip is power cycled at
	// initialization and powered down on Halt.
	XShut gpio.PinOut
	// Interrupt is the interrupt line. When nil, PollPeriod is used instead.
	// When both are unset, the caller drives HandleInterrupt.
	Interrupt  gpio.PinIn
	PollPeriod time.Duration

	// Firmware provides the RAM firmware image named FirmwareName.
	Firmware     tof.FirmwareSource
	FirmwareName string

	// Settings is the initial configuration, applied after the firmware
	// download. Zero fields keep the firmware defaults.
	Settings Settings
	// QueueSize is the capacity of the sample queue.
	QueueSize int

	// Logger receives driver events. Defaults to discarding them.
	Logger *log.Logger
	// Debug traces register traffic when set.
	Debug tof.DebugF
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	FirmwareName: "vi5300_firmware.bin",
	QueueSize:    tof.DefaultQueueSize,
}

var errCPUBusy = errors.New("vi5300: cpu busy")

// Dev is a handle to a VI5300.
type Dev struct {
	t     *tof.Transport
	opts  Opts
	power *tof.Power
	log   *log.Logger
	ring  *tof.Ring
	loop  *tof.IRQLoop

	mu        sync.Mutex
	settings  Settings
	calib     Calibration
	capturing bool
	mode      tof.Mode
	started   time.Time
	// cal is the running calibration, nil otherwise.
	cal      *calRun
	firmware string
	off      bool
	halted   bool
}

// NewI2C returns a device on the I2C bus.
//
// It powers the chip up, checks its address register, initializes the
// registers, downloads the firmware and applies opts.Settings.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.FirmwareName == "" {
		o.FirmwareName = DefaultOpts.FirmwareName
	}
	d := &Dev{
		t:     tof.NewTransport(b, addr),
		opts:  o,
		power: tof.NewPower(o.XShut, powerSettle),
		log:   o.Logger,
		ring:  tof.NewRing(o.QueueSize),
	}
	if d.log == nil {
		d.log = log.New(io.Discard, "", 0)
	}
	if o.Debug != nil {
		d.t.EnableDebug(o.Debug)
	}
	if err := d.initialize(); err != nil {
		return nil, err
	}
	if o.Interrupt != nil || o.PollPeriod > 0 {
		l, err := tof.StartIRQ(o.Interrupt, o.PollPeriod, d.HandleInterrupt, func(err error) {
			d.log.Printf("%s: %v", d, err)
		})
		if err != nil {
			return nil, err
		}
		d.loop = l
	}
	return d, nil
}

func (d *Dev) initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initLocked(d.opts.Settings)
}

// initLocked brings the chip from reset to a downloaded firmware with s
// applied.
func (d *Dev) initLocked(s Settings) error {
	if d.power.Available() {
		if err := d.power.On(); err != nil {
			return err
		}
	}
	a, err := d.t.ReadByte(regDevAddr)
	if err != nil {
		return err
	}
	if a != ChipAddress {
		return fmt.Errorf("vi5300: unexpected device address %#02x", a)
	}
	if err := d.writeSeq(registerInit[:]); err != nil {
		return err
	}
	if err := d.waitCPUReady(); err != nil {
		return fmt.Errorf("vi5300: chip not responding: %w", err)
	}
	if err := d.enableInterrupt(); err != nil {
		return err
	}
	if err := d.loadFirmware(); err != nil {
		return err
	}
	return d.applySettings(s)
}

type regVal struct {
	reg, val byte
}

var registerInit = [...]regVal{
	{regMCUCfg, 0x00},
	{regSysCfg, 0x0c},
	{regPWCtrl, 0x00},
	{regPWCtrl, 0x01},
	{regPWCtrl, 0x00},
	{regIntrMask, 0x21},
	{regI2CIdleTime, 0x0e},
	{regSpecial, 0x00},
	{regRCOAO, 0x80},
	{regDigLDOVref, 0x30},
	{regPLLLDOVref, 0x00},
	{regAnaLDOVref, 0x30},
	{regPDReset, 0x80},
	{regI2CStopDelay, 0x80},
	{regTrimMode, 0x80},
	{regGPIOSingle, 0x00},
	{regAnaTestSingle, 0x00},
	{regPWCtrl, 0x0e},
	{regPWCtrl, 0x0f},
}

func (d *Dev) writeSeq(seq []regVal) error {
	for _, rv := range seq {
		if err := d.t.Write(rv.reg, rv.val); err != nil {
			return err
		}
	}
	return nil
}

// waitCPUReady polls the device status until the CPU is idle.
func (d *Dev) waitCPUReady() error {
	for retry := 0; retry < maxWaitRetry; retry++ {
		sleep(waitPoll)
		st, err := d.t.ReadByte(regDevStat)
		if err != nil {
			return err
		}
		if st&devStatBusy == 0 {
			return nil
		}
	}
	return errCPUBusy
}

// rcoStable restarts the oscillator and waits for it to settle. It precedes
// every command.
func (d *Dev) rcoStable() error {
	if err := d.writeSeq([]regVal{{regPWCtrl, 0x0f}, {regPWCtrl, 0x0e}}); err != nil {
		return err
	}
	sleep(rcoSettle)
	return nil
}

// enableInterrupt sets the data ready interrupt, verifying it sticks.
func (d *Dev) enableInterrupt() error {
	for retry := 0; retry < maxWaitRetry; retry++ {
		if err := d.t.WriteMasked(regIntrMask, intrReady, intrReady); err != nil {
			return err
		}
		m, err := d.t.ReadByte(regIntrMask)
		if err != nil {
			return err
		}
		if m&intrReady != 0 {
			return nil
		}
	}
	return errors.New("vi5300: interrupt enable not taken")
}

// Samples returns the queue decoded samples are pushed to.
func (d *Dev) Samples() *tof.Ring {
	return d.ring
}

// Version describes the firmware running on the chip: the image name and
// size, or "resident" when a previously downloaded firmware was kept.
func (d *Dev) Version() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.firmware, nil
}

func (d *Dev) String() string {
	return "vi5300{" + d.t.String() + "}"
}

// Halt stops the interrupt loop and any capture, then powers the chip down
// when a shutdown line is wired.
func (d *Dev) Halt() error {
	if d.loop != nil {
		_ = d.loop.Halt()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.halted {
		return nil
	}
	d.halted = true
	err := d.stopLocked()
	if perr := d.power.Halt(); err == nil {
		err = perr
	}
	return err
}

var _ conn.Resource = &Dev{}
var _ tof.Sensor = &Dev{}
