// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tofsensors is a container for laser time-of-flight sensor
// drivers.
//
// tof8801 and vi5300 are the chip drivers, built on the shared tof package.
// cmd/tofd publishes their samples and cmd/tofcal calibrates them.
package tofsensors
