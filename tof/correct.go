// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"math"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Pileup model constants. Empirical; keep them as is.
const (
	pileupA = 9231000
	pileupB = 4896
	pileupC = 1922
	pileupD = 10
)

const (
	// ConfidentPercent is the lowest confidence reported as StatusConfident.
	ConfidentPercent = 80
	// SemiConfidentPercent is the lowest confidence reported as
	// StatusSemiConfident.
	SemiConfidentPercent = 20
	// NearFieldLimit is the distance in mm below which a weak return is
	// never trusted.
	NearFieldLimit = 50
	// NearFieldPeak is the peak count under which a near-field return is
	// considered saturated.
	NearFieldPeak = 800000
)

// Raw holds the fields of a result frame before correction.
type Raw struct {
	Millimeter int16
	Near       int16
	Far        int16
	Noise      uint16
	// Actual integration time, 24 bits.
	IntegrationTime uint32
	Peak1           uint32
	Peak2           uint32
}

// Result is the output of Correct.
type Result struct {
	// Corrected distance, limits and bias in millimetres.
	Millimeter  int
	Near        int
	Far         int
	Bias        int
	Confidence  int
	Status      Status
	AmbientRate uint32
}

// Sample converts r into a Sample taken at t since capture start.
func (r Result) Sample(t time.Duration) Sample {
	return Sample{
		Time:        t,
		Distance:    physic.Distance(r.Millimeter) * physic.MilliMetre,
		Status:      r.Status,
		Confidence:  r.Confidence,
		Objects:     1,
		AmbientRate: r.AmbientRate,
		Near:        physic.Distance(r.Near) * physic.MilliMetre,
		Far:         physic.Distance(r.Far) * physic.MilliMetre,
	}
}

// Correct applies the pileup bias and the offset to raw, and classifies it
// with the noise dependent confidence bands. It has no side effects.
func Correct(raw Raw, offset int16) Result {
	bias := int(PileupBias(raw.Peak2, raw.IntegrationTime))
	r := Result{
		Millimeter:  int(raw.Millimeter) + bias - int(offset),
		Near:        int(raw.Near) + bias - int(offset),
		Far:         int(raw.Far) + bias - int(offset),
		Bias:        bias,
		Confidence:  Confidence(raw.Peak1, raw.Noise),
		AmbientRate: ambientRate(raw.Noise, raw.Peak2),
	}
	r.Status = Classify(r.Confidence, r.Millimeter, raw.Peak1)
	return r
}

// PileupBias returns the distance bias in mm caused by photon pileup for a
// return of peak counts over the integration time. Never negative.
func PileupBias(peak, integration uint32) int32 {
	n := normalizePeak(peak, integration)
	// Saturated: the model has no pole past this point.
	if n*pileupD >= pileupB {
		return 0
	}
	den := pileupB - int64(n)*pileupD
	bias := (pileupA/den - pileupC) / pileupD
	if bias < 0 {
		return 0
	}
	return int32(bias)
}

// normalizePeak scales peak to a rate per integration time unit. Large peaks
// divide before the second scaling step. The rate is up to 36 bits wide.
func normalizePeak(peak, integration uint32) uint64 {
	if peak > 65536 {
		return normalizeDivFirst(peak, integration)
	}
	return normalizeMulFirst(peak, integration)
}

func normalizeDivFirst(peak, integration uint32) uint64 {
	if integration == 0 {
		return 0
	}
	return (uint64(peak) * 256 / uint64(integration) * 256) >> 12
}

func normalizeMulFirst(peak, integration uint32) uint64 {
	if integration == 0 {
		return 0
	}
	return (uint64(peak) * 65536 / uint64(integration)) >> 12
}

type band struct {
	below          uint32
	lowerK, lowerC uint32
	upperK, upperC uint32
}

// Bands of noise/8, each with a linear lower and upper peak threshold.
var bands = [...]band{
	{45, 228, 1260, 269, 2284},
	{94, 252, 172, 300, 901},
	{154, 190, 6066, 227, 7703},
	{246, 209, 3043, 237, 6121},
	{721, 197, 6006, 216, 11300},
	{1320, 201, 3177, 226, 4547},
	{2797, 191, 16874, 217, 16340},
	{3581, 188, 23925, 218, 14012},
	{math.MaxUint32, 180, 53524, 204, 62305},
}

// ConfidenceBand returns the peak thresholds for noise. A peak below lower
// is 0% confident, above upper 100%.
func ConfidenceBand(noise uint16) (lower, upper uint32) {
	n := uint32(noise)
	for _, b := range bands {
		if n/8 < b.below {
			return b.lowerK*n/8 + b.lowerC, b.upperK*n/8 + b.upperC
		}
	}
	// Unreachable, the last band covers every value.
	return 0, 0
}

// Confidence returns the confidence percentage of a return of peak counts at
// the given noise level.
func Confidence(peak uint32, noise uint16) int {
	lower, upper := ConfidenceBand(noise)
	switch {
	case peak < lower:
		return 0
	case peak > upper:
		return 100
	default:
		return int(uint64(peak-lower) * 100 / uint64(upper-lower))
	}
}

// Classify maps a confidence percentage to a Status. Weak near-field returns
// are forced to StatusNotConfident.
func Classify(confidence, millimeter int, peak uint32) Status {
	s := StatusNotConfident
	if confidence >= ConfidentPercent {
		s = StatusConfident
	} else if confidence >= SemiConfidentPercent {
		s = StatusSemiConfident
	}
	if millimeter < NearFieldLimit && peak < NearFieldPeak {
		s = StatusNotConfident
	}
	return s
}

func ambientRate(noise uint16, peak uint32) uint32 {
	if peak == 0 {
		return 0
	}
	return uint32(uint64(noise) * 300 / (uint64(peak) * 8))
}
