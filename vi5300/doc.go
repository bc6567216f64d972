// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package vi5300 controls a VI5300 single zone time-of-flight ranging
// sensor over I²C.
//
// The chip runs from RAM: its firmware is pushed through the scratch pad
// window on every power up. Results are corrected on the host for photon
// pileup and a calibrated offset, and classified with noise dependent
// confidence bands.
//
// More details
//
// The chip is sold by Visionchip. Register documentation is only available
// under NDA; the register use here follows the vendor's reference driver.
package vi5300
