// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tof holds the pieces shared by the laser time-of-flight proximity
// sensor drivers in this module (tof8801, vi5300).
//
// It provides the register transport over an I2C bus, the bounded sample
// queue with its overflow policy, the pileup correction and confidence band
// model applied to raw photon-timing frames, the interrupt/polling loop that
// drives result processing, the chip power resource and the firmware file
// source.
//
// Each chip driver implements Sensor. A Registry maps a device name to its
// driver instance for programs that manage several sensors.
package tof
