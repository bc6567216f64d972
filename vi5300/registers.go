// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vi5300

import "time"

// DefaultAddress is the factory I2C address.
const DefaultAddress uint16 = 0x6c

// ChipAddress is the content of the device address register, the chip's
// 8 bit bus address.
const ChipAddress = 0xd8

const (
	regMCUCfg        = 0x00
	regSysCfg        = 0x01
	regDevStat       = 0x02
	regIntrStat      = 0x03
	regIntrMask      = 0x04
	regI2CIdleTime   = 0x05
	regDevAddr       = 0x06
	regPWCtrl        = 0x07
	regSpecial       = 0x08
	regCmd           = 0x0a
	regSize          = 0x0b
	regScratch       = 0x0c
	regRCOAO         = 0x37
	regDigLDOVref    = 0x38
	regPLLLDOVref    = 0x39
	regAnaLDOVref    = 0x3b
	regPDReset       = 0x3d
	regI2CStopDelay  = 0x3e
	regTrimMode      = 0x3f
	regGPIOSingle    = 0x52
	regAnaTestSingle = 0x54
)

const (
	devStatBusy = 0x01
	intrReady   = 0x01
	sysCfgFW    = 0x01

	// Values of the special purpose register.
	specialFWReady = 0x66
	specialXTalk   = 0xaa
)

// Commands written to regCmd.
const (
	cmdFWInit     = 0x01
	cmdWriteFW    = 0x03
	cmdUserCfg    = 0x09
	cmdXTalkTrim  = 0x0d
	cmdSingle     = 0x0e
	cmdContinuous = 0x0f
	cmdStop       = 0x1f
)

// User configuration subcommands: direction, size and address of the
// parameter in the scratch pad.
const (
	cfgRead  = 0x00
	cfgWrite = 0x01

	cfgXTalkSize = 0x01
	cfgXTalkAddr = 0x00
	cfgDelaySize = 0x02
	cfgDelayAddr = 0x04
	cfgIntegSize = 0x03
	cfgIntegAddr = 0x01
)

const (
	// ChunkSize is the firmware payload of one scratch pad write.
	ChunkSize = 23
	// MaxFirmwareSize is the largest image the chip accepts.
	MaxFirmwareSize = 8192

	frameSize   = 32
	frameHalf   = 16
	xtalkResult = 5
)

const (
	powerSettle  = 5 * time.Millisecond
	rcoSettle    = 4 * time.Millisecond
	waitPoll     = time.Millisecond
	chunkDelay   = 10 * time.Microsecond
	fwSettle     = 5 * time.Millisecond
	cfgSettle    = 5 * time.Millisecond
	calibPoll    = 35 * time.Millisecond
	maxWaitRetry = 20
	maxFWRetry   = 10
)

var sleep = time.Sleep
