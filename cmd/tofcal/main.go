// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// tofcal runs a calibration procedure on one ToF sensor and stores the
// result.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/app"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/config"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func main() {
	busName := flag.String("bus", "", "I2C bus name")
	chip := flag.String("chip", config.ChipVI5300, "chip: "+config.ChipTOF8801+" or "+config.ChipVI5300)
	addr := flag.String("addr", "", "I2C address, defaults to the chip's")
	mode := flag.String("mode", app.ModeFactory, "calibration: factory, xtalk or offset")
	enable := flag.String("enable", "", "chip enable (XSHUT) pin")
	irq := flag.String("irq", "", "interrupt pin")
	fwDir := flag.String("firmware", config.DefaultFirmwareDir, "firmware directory")
	window := flag.Duration("window", 2*time.Second, "tof8801 crosstalk collection window")
	out := flag.String("out", "", "output file, stdout when empty")
	plot := flag.String("plot", "", "PNG plot of the calibration run")
	flag.Parse()

	a, err := chipAddress(*chip, *addr)
	if err != nil {
		log.Fatal(err)
	}
	if _, err := host.Init(); err != nil {
		log.Fatalf("host init: %v", err)
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		log.Fatalf("failed to open I2C bus %q: %v", *busName, err)
	}
	defer bus.Close()
	pins, err := app.LookupPins(*enable, *irq)
	if err != nil {
		log.Fatal(err)
	}
	err = app.RunCalibration(bus, &app.CalibrationOpts{
		DriverOpts: app.DriverOpts{
			Pins:        pins,
			PollPeriod:  10 * time.Millisecond,
			FirmwareDir: *fwDir,
			Logger:      log.Default(),
		},
		Chip:        *chip,
		Addr:        a,
		Mode:        *mode,
		Out:         *out,
		Plot:        *plot,
		XTalkWindow: *window,
		Prompt:      prompt,
	})
	if err != nil {
		log.Fatalf("calibration failed: %v", err)
	}
}

// prompt waits for Enter on stdin.
func prompt(msg string) error {
	fmt.Printf("%s, then press Enter\n", msg)
	_, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return err
}

func chipAddress(chip, addr string) (uint16, error) {
	if addr != "" {
		v, err := strconv.ParseUint(addr, 0, 7)
		return uint16(v), err
	}
	return app.DefaultAddress(chip)
}
