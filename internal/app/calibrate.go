// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/rangeplot"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof8801"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/vi5300"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Calibration modes.
const (
	ModeFactory = "factory"
	ModeXTalk   = "xtalk"
	ModeOffset  = "offset"
)

// CalibrationOpts selects the sensor and procedure of RunCalibration.
type CalibrationOpts struct {
	DriverOpts
	Chip string
	Addr uint16
	Mode string
	// Out receives the result. Empty prints it only.
	Out string
	// Plot receives a PNG of the samples seen during the run.
	Plot string
	// XTalkWindow is how long tof8801 results are collected before the
	// crosstalk peak is latched.
	XTalkWindow time.Duration
	// Prompt, when set, is called with an instruction for the operator and
	// returns once the operator is ready.
	Prompt func(msg string) error
}

// RunCalibration opens one sensor, runs the calibration and stores the
// result.
func RunCalibration(bus i2c.Bus, o *CalibrationOpts) error {
	dev, err := OpenSensor(bus, o.Chip, o.Addr, &o.DriverOpts)
	if err != nil {
		return err
	}
	defer dev.Halt()
	v, err := dev.Version()
	if err != nil {
		return err
	}
	log.Printf("%s: firmware %s", dev, v)

	var out []byte
	var trace []tof.Sample
	var ref physic.Distance
	switch d := dev.(type) {
	case *tof8801.Dev:
		out, trace, err = calibrateTOF8801(d, o)
	case *vi5300.Dev:
		out, trace, err = calibrateVI5300(d, o)
		if o.Mode != ModeXTalk {
			ref = vi5300.OffsetTarget * physic.MilliMetre
		}
	default:
		err = fmt.Errorf("%s: calibration not supported", dev)
	}
	if err != nil {
		return err
	}
	if err := writeResult(o.Out, out); err != nil {
		return err
	}
	if o.Plot != "" {
		if len(trace) == 0 {
			log.Printf("%s: no samples to plot", dev)
			return nil
		}
		return writePlot(o.Plot, trace, &rangeplot.Opts{
			Width:     rangeplot.DefaultOpts.Width,
			Height:    rangeplot.DefaultOpts.Height,
			Reference: ref,
			Title:     fmt.Sprintf("%s %s calibration", o.Chip, o.Mode),
		})
	}
	return nil
}

func calibrateTOF8801(d *tof8801.Dev, o *CalibrationOpts) ([]byte, []tof.Sample, error) {
	switch o.Mode {
	case ModeFactory:
		log.Printf("%s: factory calibration, keep the field of view clear", d)
		blob, err := d.FactoryCalibrate()
		return blob, nil, err
	case ModeXTalk:
		if err := d.Start(tof.Continuous); err != nil {
			return nil, nil, err
		}
		trace := Collect(d.Samples(), 0, o.XTalkWindow)
		if err := d.Stop(); err != nil {
			return nil, nil, err
		}
		xt, err := d.CalibrateCrosstalk()
		if err != nil {
			return nil, trace, err
		}
		log.Printf("%s: crosstalk %d", d, xt)
		return []byte(fmt.Sprintf("%d\n", xt)), trace, nil
	default:
		return nil, nil, fmt.Errorf("%s: unsupported calibration mode %q", d, o.Mode)
	}
}

func calibrateVI5300(d *vi5300.Dev, o *CalibrationOpts) ([]byte, []tof.Sample, error) {
	var trace []tof.Sample
	switch mode := o.Mode; mode {
	case ModeXTalk, ModeFactory:
		c, err := d.CalibrateCrosstalk()
		if err != nil {
			return nil, nil, err
		}
		log.Printf("%s: crosstalk %d, peak %d", d, c.XTalk, c.XTalkPeak)
		if mode == ModeXTalk {
			break
		}
		if o.Prompt != nil {
			if err := o.Prompt(fmt.Sprintf("place the target at %dmm", vi5300.OffsetTarget)); err != nil {
				return nil, nil, err
			}
		}
		fallthrough
	case ModeOffset:
		off, samples, err := d.CalibrateOffset()
		if err != nil {
			return nil, samples, err
		}
		trace = samples
		log.Printf("%s: offset %dmm", d, off)
	default:
		return nil, nil, fmt.Errorf("%s: unsupported calibration mode %q", d, o.Mode)
	}
	out, err := json.MarshalIndent(d.Calibration(), "", "  ")
	if err != nil {
		return nil, trace, err
	}
	return append(out, '\n'), trace, nil
}

// Collect drains r until n samples were read or timeout expires. n <= 0
// collects until the timeout.
func Collect(r *tof.Ring, n int, timeout time.Duration) []tof.Sample {
	var out []tof.Sample
	deadline := time.After(timeout)
	for n <= 0 || len(out) < n {
		select {
		case <-r.Ready():
			out = append(out, r.Drain()...)
		case <-deadline:
			return out
		}
	}
	return out[:n]
}

func writeResult(path string, b []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s", path)
	return nil
}

func writePlot(path string, trace []tof.Sample, opts *rangeplot.Opts) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := rangeplot.WritePNG(f, trace, opts); err != nil {
		f.Close()
		return err
	}
	log.Printf("wrote %s", path)
	return f.Close()
}
