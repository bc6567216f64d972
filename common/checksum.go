// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains checksum helpers shared by the ToF drivers and
// their firmware image parsers.
package common

// Sum8 returns the 8-bit wrapping sum of the bytes.
func Sum8(bytes []byte) byte {
	var sum byte
	for _, val := range bytes {
		sum += val
	}
	return sum
}

// OnesComplement8 returns the one's complement of the 8-bit sum of bytes. It
// is the checksum appended to ams bootloader commands.
func OnesComplement8(bytes []byte) byte {
	return ^Sum8(bytes)
}

// TwosComplement8 returns the two's complement of the 8-bit sum of bytes, so
// that adding it to the sum yields zero. It is the Intel HEX record checksum.
func TwosComplement8(bytes []byte) byte {
	return -Sum8(bytes)
}

// VerifyTwosComplement8 reports whether bytes, including their trailing
// checksum, sum to zero.
func VerifyTwosComplement8(bytes []byte) bool {
	return len(bytes) > 0 && Sum8(bytes) == 0
}
