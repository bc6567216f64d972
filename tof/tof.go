// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// Status is the confidence class of a Sample. The numeric values are the
// ones reported to camera HALs.
type Status uint8

const (
	StatusConfident     Status = 0
	StatusSemiConfident Status = 6
	StatusNotConfident  Status = 7
)

func (s Status) String() string {
	switch s {
	case StatusConfident:
		return "confident"
	case StatusSemiConfident:
		return "semi-confident"
	case StatusNotConfident:
		return "not-confident"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Mode selects a single shot or a continuous capture.
type Mode int

const (
	Single Mode = iota + 1
	Continuous
)

func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Continuous:
		return "continuous"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Sample is a decoded and corrected measurement.
type Sample struct {
	// Time elapsed since the capture was started.
	Time     time.Duration
	Distance physic.Distance
	Status   Status
	// Confidence in percent, 0 to 100.
	Confidence int
	// Number of detected objects.
	Objects     int
	AmbientRate uint32
	// Confidence interval of the distance.
	Near physic.Distance
	Far  physic.Distance
}

func (s *Sample) String() string {
	return fmt.Sprintf("%s %s (%d%%) at %s", s.Distance, s.Status, s.Confidence, s.Time)
}

// Millimetres returns the distance as an integer count of millimetres.
func (s *Sample) Millimetres() int {
	return int(s.Distance / physic.MilliMetre)
}

// Sensor is the capability set shared by the chip drivers.
type Sensor interface {
	conn.Resource
	// Start begins a capture.
	Start(m Mode) error
	// Stop ends a capture. Stopping an idle sensor is not an error.
	Stop() error
	// Samples returns the output queue.
	Samples() *Ring
	// HandleInterrupt processes a pending interrupt, if any.
	HandleInterrupt() error
	// Version returns the chip firmware version.
	Version() (string, error)
}
