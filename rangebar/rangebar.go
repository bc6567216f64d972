// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rangebar renders ranging samples on a terminal line using ANSI
// colors.
//
// The bar is lit up to the measured distance in the color of the sample
// status, brighter as confidence rises. When the sample reports a far edge
// beyond the distance, the span up to it is shown in gray.
//
// Useful to aim a sensor before wiring anything else.
package rangebar

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// Opts represents the options available for this display.
type Opts struct {
	// Width of the bar in cells.
	Width int
	// Range is the distance of a full bar. Defaults to 2m.
	Range physic.Distance
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to stdout.
	W io.Writer
}

// Colors of the bar, at full confidence for the status ones.
var (
	Confident     = color.NRGBA{0x00, 0xc0, 0x00, 0xff}
	SemiConfident = color.NRGBA{0xc0, 0xc0, 0x00, 0xff}
	NotConfident  = color.NRGBA{0xc0, 0x00, 0x00, 0xff}
	Spread        = color.NRGBA{0x60, 0x60, 0x60, 0xff}
	Empty         = color.NRGBA{0x20, 0x20, 0x20, 0xff}
)

// Dev is a range bar that outputs to the console.
type Dev struct {
	w       io.Writer
	width   int
	full    physic.Distance
	palette ansi256.Palette
	buf     bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	full := opts.Range
	if full <= 0 {
		full = 2 * physic.Metre
	}
	return &Dev{w: w, width: opts.Width, full: full, palette: *p}
}

func (d *Dev) String() string {
	return "RangeBar"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and ends the line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Show overwrites the current line with the bar for s followed by its
// distance, confidence and status.
func (d *Dev) Show(s *tof.Sample) error {
	d.buf.Reset()
	d.buf.WriteString("\r\033[0m")
	for _, c := range Row(s, d.full, d.width) {
		d.buf.WriteString(d.palette.Block(c))
	}
	fmt.Fprintf(&d.buf, "\033[0m %5dmm %3d%% %s", s.Millimetres(), s.Confidence, s.Status)
	_, err := d.buf.WriteTo(d.w)
	return err
}

// Row returns the width cells of the bar for s when a full bar is full.
func Row(s *tof.Sample, full physic.Distance, width int) []color.NRGBA {
	lit := Filled(s.Distance, full, width)
	far := Filled(s.Far, full, width)
	c := Shade(StatusColor(s.Status), s.Confidence)
	row := make([]color.NRGBA, width)
	for x := range row {
		switch {
		case x < lit:
			row[x] = c
		case x < far:
			row[x] = Spread
		default:
			row[x] = Empty
		}
	}
	return row
}

// StatusColor returns the full confidence color of a status.
func StatusColor(s tof.Status) color.NRGBA {
	switch s {
	case tof.StatusConfident:
		return Confident
	case tof.StatusSemiConfident:
		return SemiConfident
	default:
		return NotConfident
	}
}

// Shade dims c for a confidence percentage: 40% brightness at 0, unchanged
// at 100 and above.
func Shade(c color.NRGBA, confidence int) color.NRGBA {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	k := uint32(40 + 60*confidence/100)
	return color.NRGBA{
		R: uint8(uint32(c.R) * k / 100),
		G: uint8(uint32(c.G) * k / 100),
		B: uint8(uint32(c.B) * k / 100),
		A: c.A,
	}
}

// Filled returns the number of cells out of width lit for distance over
// full. Negative distances light nothing and distances beyond full light
// everything.
func Filled(distance, full physic.Distance, width int) int {
	if distance <= 0 || full <= 0 {
		return 0
	}
	if distance >= full {
		return width
	}
	return int(int64(distance) * int64(width) / int64(full))
}

var _ conn.Resource = &Dev{}
