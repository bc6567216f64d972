// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"errors"
	"fmt"
)

var (
	// ErrCalibrationBusy is returned when a calibration procedure owns the
	// measurement pipeline.
	ErrCalibrationBusy = errors.New("tof: calibration in progress")
	// ErrBufferOverflow reports that the sample queue was full and has been
	// cleared.
	ErrBufferOverflow = errors.New("tof: sample buffer overflow")
	// ErrBusy is returned when starting a capture while one is running.
	ErrBusy = errors.New("tof: capture already running")
	// ErrWrongMode is returned when the chip is not running the application
	// needed by the operation.
	ErrWrongMode = errors.New("tof: chip not in measurement application")
	// ErrPoweredOff is returned when the chip was powered off with PowerOff.
	ErrPoweredOff = errors.New("tof: chip powered off")
)

// TransportError is an I2C failure while accessing a register.
type TransportError struct {
	Op  string
	Reg byte
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("tof: %s register 0x%02x: %v", e.Op, e.Reg, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FirmwareErrorKind classifies a FirmwareError.
type FirmwareErrorKind int

const (
	// FirmwareNotAvailable means no image could be read. It is recoverable
	// when the chip already runs the wanted application.
	FirmwareNotAvailable FirmwareErrorKind = iota + 1
	FirmwareDownloadFailed
	FirmwareVerificationFailed
)

func (k FirmwareErrorKind) String() string {
	switch k {
	case FirmwareNotAvailable:
		return "not available"
	case FirmwareDownloadFailed:
		return "download failed"
	case FirmwareVerificationFailed:
		return "verification failed"
	default:
		return fmt.Sprintf("FirmwareErrorKind(%d)", int(k))
	}
}

// FirmwareError is returned by the firmware loaders.
type FirmwareError struct {
	Kind FirmwareErrorKind
	// Name of the image involved, if any.
	Name string
	Err  error
}

func (e *FirmwareError) Error() string {
	s := "tof: firmware"
	if e.Name != "" {
		s += " " + e.Name
	}
	s += ": " + e.Kind.String()
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *FirmwareError) Unwrap() error {
	return e.Err
}

// IsFirmwareKind reports whether err is a FirmwareError of kind k.
func IsFirmwareKind(err error, k FirmwareErrorKind) bool {
	var fe *FirmwareError
	return errors.As(err, &fe) && fe.Kind == k
}

// StateError is returned for an unsupported application transition.
type StateError struct {
	From string
	To   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("tof: unsupported transition from %s to %s", e.From, e.To)
}

// CalibrationError is a failed calibration procedure. The chip is left out of
// calibration.
type CalibrationError struct {
	Op  string
	Err error
}

func (e *CalibrationError) Error() string {
	return fmt.Sprintf("tof: %s calibration: %v", e.Op, e.Err)
}

func (e *CalibrationError) Unwrap() error {
	return e.Err
}
