// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tof8801 provides a driver for the ams TMF8801 (and pin compatible
// TMF8805) single zone time-of-flight proximity sensor.
//
// The chip boots into a ROM bootloader. The measurement application (App0)
// is either present in ROM or downloaded to RAM as an Intel HEX image through
// the bootloader. The driver tracks which application runs, switches between
// them, downloads firmware from a fallback list of images and recovers from
// a chip enable reset by restoring the application it was in.
//
// Samples are decoded on the interrupt line, or by polling when no line is
// wired, and queued in a tof.Ring.
//
// Datasheet
//
// https://ams.com/documents/20143/36005/TMF8801_DS000574_4-00.pdf
package tof8801
