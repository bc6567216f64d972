// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rangeplot renders a trace of ranging samples to an image, one dot
// per sample colored by confidence, for a capture or a calibration run.
package rangeplot

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/physic"
)

// Opts holds the rendering options.
type Opts struct {
	// Width and Height of the image in pixels.
	Width, Height int
	// Range is the distance at the top of the plot. When 0 it is derived
	// from the samples.
	Range physic.Distance
	// Reference, when not 0, is drawn as a horizontal line, such as the
	// target distance of an offset calibration.
	Reference physic.Distance
	// Title is drawn above the plot.
	Title string
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{Width: 640, Height: 320}

// Colors of the dots.
var (
	Confident     = color.NRGBA{0x00, 0xa0, 0x00, 0xff}
	SemiConfident = color.NRGBA{0xd0, 0xa0, 0x00, 0xff}
	NotConfident  = color.NRGBA{0xd0, 0x00, 0x00, 0xff}
)

const (
	marginLeft   = 56
	marginRight  = 12
	marginTop    = 24
	marginBottom = 24
	dotRadius    = 3
	fontSize     = 11
	minRange     = 100 * physic.MilliMetre
)

var (
	faceOnce sync.Once
	face     font.Face
	faceErr  error
)

func labelFace() (font.Face, error) {
	faceOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			faceErr = fmt.Errorf("rangeplot: %w", err)
			return
		}
		face = truetype.NewFace(f, &truetype.Options{Size: fontSize})
	})
	return face, faceErr
}

// plot maps samples to pixel coordinates.
type plot struct {
	w, h int
	n    int
	rng  physic.Distance
}

func newPlot(samples []tof.Sample, o *Opts) plot {
	p := plot{w: o.Width, h: o.Height, n: len(samples), rng: o.Range}
	if p.rng <= 0 {
		for i := range samples {
			if samples[i].Distance > p.rng {
				p.rng = samples[i].Distance
			}
		}
		p.rng += p.rng / 10
		if p.rng < minRange {
			p.rng = minRange
		}
	}
	return p
}

func (p plot) x(i int) float64 {
	return marginLeft + float64(p.w-marginLeft-marginRight)*(float64(i)+0.5)/float64(p.n)
}

func (p plot) y(d physic.Distance) float64 {
	if d < 0 {
		d = 0
	}
	if d > p.rng {
		d = p.rng
	}
	return float64(p.h-marginBottom) - float64(p.h-marginBottom-marginTop)*float64(d)/float64(p.rng)
}

func statusColor(s tof.Status) color.Color {
	switch s {
	case tof.StatusConfident:
		return Confident
	case tof.StatusSemiConfident:
		return SemiConfident
	default:
		return NotConfident
	}
}

// Render draws samples in order.
func Render(samples []tof.Sample, opts *Opts) (image.Image, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Width <= marginLeft+marginRight || opts.Height <= marginTop+marginBottom {
		return nil, fmt.Errorf("rangeplot: %dx%d is too small", opts.Width, opts.Height)
	}
	f, err := labelFace()
	if err != nil {
		return nil, err
	}
	p := newPlot(samples, opts)
	dc := gg.NewContext(p.w, p.h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(f)

	// Axes and labels.
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, float64(p.h-marginBottom))
	dc.DrawLine(marginLeft, float64(p.h-marginBottom), float64(p.w-marginRight), float64(p.h-marginBottom))
	dc.Stroke()
	dc.DrawStringAnchored(fmt.Sprintf("%dmm", int64(p.rng/physic.MilliMetre)), marginLeft-4, marginTop, 1, 0.5)
	dc.DrawStringAnchored("0", marginLeft-4, float64(p.h-marginBottom), 1, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d samples", len(samples)), float64(p.w-marginRight), float64(p.h-marginBottom/2), 1, 0.5)
	if opts.Title != "" {
		dc.DrawStringAnchored(opts.Title, float64(p.w)/2, marginTop/2, 0.5, 0.5)
	}

	if opts.Reference > 0 {
		dc.SetRGB(0.5, 0.5, 0.5)
		dc.SetDash(4, 4)
		y := p.y(opts.Reference)
		dc.DrawLine(marginLeft, y, float64(p.w-marginRight), y)
		dc.Stroke()
		dc.SetDash()
	}

	// Trace then dots on top.
	if len(samples) > 1 {
		dc.SetRGB(0.6, 0.6, 0.8)
		for i := range samples {
			dc.LineTo(p.x(i), p.y(samples[i].Distance))
		}
		dc.Stroke()
	}
	for i := range samples {
		dc.SetColor(statusColor(samples[i].Status))
		dc.DrawCircle(p.x(i), p.y(samples[i].Distance), dotRadius)
		dc.Fill()
	}
	return dc.Image(), nil
}

// WritePNG renders samples and encodes the image as PNG to w.
func WritePNG(w io.Writer, samples []tof.Sample, opts *Opts) error {
	img, err := Render(samples, opts)
	if err != nil {
		return err
	}
	dc := gg.NewContextForImage(img)
	return dc.EncodePNG(w)
}
