// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

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
	// Enable is the chip enable line. Without it the driver cannot hard
	// reset the chip.
	Enable gpio.PinOut
	// Interrupt is the open drain interrupt line. When nil, PollPeriod is
	// used instead. When both are unset, the caller drives HandleInterrupt.
	Interrupt  gpio.PinIn
	PollPeriod time.Duration

	// Firmware provides RAM patches and calibration files. May be nil when
	// the chip runs its ROM application.
	Firmware tof.FirmwareSource
	// FirmwareNames are tried in order until one brings up App0.
	FirmwareNames []string
	// FirmwareTimeout bounds a single download.
	FirmwareTimeout time.Duration
	// Salt is the download salt.
	Salt byte
	// FactoryCalibrationName and AlgStateName are loaded at initialization
	// when present.
	FactoryCalibrationName string
	AlgStateName           string

	// Settings is the initial capture configuration.
	Settings CaptureSettings
	// QueueSize is the capacity of the sample queue.
	QueueSize int

	// Logger receives driver events. Defaults to discarding them.
	Logger *log.Logger
	// Debug traces register traffic when set.
	Debug tof.DebugF
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	FirmwareNames: []string{
		"tof8805_firmware.bin",
		"tof8801_firmware-1.bin",
		"tof8801_firmware-2.bin",
	},
	FirmwareTimeout:        30 * time.Second,
	Salt:                   0x29,
	FactoryCalibrationName: "tof8801_fac_calib.bin",
	AlgStateName:           "tof8801_config_calib.bin",
	QueueSize:              tof.DefaultQueueSize,
}

// ErrNotSupported is returned for settings the running application
// revision does not implement.
var ErrNotSupported = errors.New("tof8801: not supported by this application revision")

// Dev is a handle to a TMF8801.
type Dev struct {
	t     *tof.Transport
	opts  Opts
	power *tof.Power
	log   *log.Logger
	ring  *tof.Ring
	loop  *tof.IRQLoop

	mu        sync.Mutex
	info      InfoRecord
	settings  CaptureSettings
	capturing bool
	mode      tof.Mode
	started   time.Time
	// Cached oscillator trim, reapplied on every entry into App0.
	clockTrim    int
	clockTrimSet bool
	factoryCal   []byte
	algState     []byte
	calApplied   bool
	calibrating  bool
	calResult    chan []byte
	xtalkPeak    uint16
	xtalk        uint16
	off          bool
	halted       bool
}

// NewI2C returns a device on the I2C bus.
//
// It waits for the chip, checks its ID, loads the calibration files and
// brings up the measurement application, downloading firmware if the chip is
// in its bootloader. A failure here means the device is unusable.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.FirmwareTimeout <= 0 {
		o.FirmwareTimeout = DefaultOpts.FirmwareTimeout
	}
	d := &Dev{
		t:        tof.NewTransport(b, addr),
		opts:     o,
		power:    tof.NewPower(o.Enable, i2cWait),
		log:      o.Logger,
		ring:     tof.NewRing(o.QueueSize),
		settings: o.Settings,
	}
	if d.log == nil {
		d.log = log.New(io.Discard, "", 0)
	}
	d.settings.ClockIterations = clockIterations(d.settings.Iterations)
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
	return d.initLocked(true)
}

// initLocked brings the chip from power up to a running App0. Calibration
// files are only read when loadFiles is set.
func (d *Dev) initLocked(loadFiles bool) error {
	if d.power.Available() {
		if err := d.power.On(); err != nil {
			return err
		}
	}
	if err := d.waitStartup(); err != nil {
		return fmt.Errorf("tof8801: chip not responding: %w", err)
	}
	id, err := d.t.ReadByte(regID)
	if err != nil {
		return err
	}
	if id&idMask != ChipID {
		return fmt.Errorf("tof8801: unexpected chip id %#02x", id)
	}
	if err := d.readInfo(); err != nil {
		return err
	}
	if loadFiles {
		if err := d.loadCalibration(); err != nil {
			return err
		}
	}
	return d.bringUpMeasure()
}

func (d *Dev) loadCalibration() error {
	fac, err := tof.ReadOptional(d.opts.Firmware, d.opts.FactoryCalibrationName)
	if err != nil {
		return err
	}
	if fac != nil {
		if len(fac) != FactoryCalibrationSize {
			return fmt.Errorf("tof8801: %s: %d bytes, want %d", d.opts.FactoryCalibrationName, len(fac), FactoryCalibrationSize)
		}
		d.factoryCal = fac
		d.log.Printf("%s: loaded factory calibration %s", d, d.opts.FactoryCalibrationName)
	}
	alg, err := tof.ReadOptional(d.opts.Firmware, d.opts.AlgStateName)
	if err != nil {
		return err
	}
	// Algorithm state is only meaningful alongside a factory calibration.
	if alg != nil && d.factoryCal != nil {
		if len(alg) > AlgStateSize {
			return fmt.Errorf("tof8801: %s: %d bytes, max %d", d.opts.AlgStateName, len(alg), AlgStateSize)
		}
		d.algState = alg
	}
	return nil
}

// Samples returns the queue decoded samples are pushed to.
func (d *Dev) Samples() *tof.Ring {
	return d.ring
}

// Version returns "major.minor.patch" of App0, or the application ID and
// version when another application runs.
func (d *Dev) Version() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.off {
		return "", tof.ErrPoweredOff
	}
	if d.info.App != AppMeasure {
		return fmt.Sprintf("%#02x-%d-0-0", byte(d.info.App), d.info.Version), nil
	}
	var b [2]byte
	if err := d.t.Read(regAppMinor, b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d.%d", d.info.Version, b[0], b[1]), nil
}

// Registers returns a dump of the whole register space.
func (d *Dev) Registers() ([registerCount]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var regs [registerCount]byte
	if d.off {
		return regs, tof.ErrPoweredOff
	}
	err := d.t.Read(regAppID, regs[:])
	return regs, err
}

func (d *Dev) String() string {
	return "tof8801{" + d.t.String() + "}"
}

// Halt stops the interrupt loop and any capture, then powers the chip down
// when a chip enable line is wired.
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
	var err error
	if !d.off && d.info.App == AppMeasure {
		err = d.stopLocked()
	}
	if perr := d.power.Halt(); err == nil {
		err = perr
	}
	return err
}

var _ conn.Resource = &Dev{}
var _ tof.Sensor = &Dev{}
