// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import "time"

// DefaultAddress is the factory I2C address.
const DefaultAddress uint16 = 0x41

// ChipID is the value of the ID register.
const ChipID = 0x07

const (
	regAppID    = 0x00
	regAppMinor = 0x12
	regReqAppID = 0x02

	// Bootloader command and status.
	regBLCmdStat = 0x08

	// App0 command data, command and result frame.
	regCmdData0    = 0x06
	regCommand     = 0x10
	regPrevCommand = 0x11
	regContents    = 0x1e
	regFactoryCal  = 0x20
	regAlgState    = 0x2e
	regTrimData    = 0x20

	regEnable  = 0xe0
	regIntStat = 0xe1
	regIntEn   = 0xe2
	regID      = 0xe3

	infoRecordSize = 3
	registerCount  = 256
)

const (
	enablePON      = 0x01
	enableCPUReady = 0x40
	enableWakeup   = 0x01

	idMask = 0x3f

	irqResults = 0x01
	irqDiag    = 0x02
	irqError   = 0x04
	irqAll     = irqResults | irqDiag | irqError
)

// App0 commands.
const (
	cmdMeasure      = 0x02
	cmdFactoryCalib = 0x0a
	cmdOscTrim      = 0x29
	cmdStop         = 0xff

	// Calibration flags in the first command data byte.
	flagFactoryCal = 0x01
	flagAlgState   = 0x02

	trimWrite = 0x80
)

// Frame contents identifiers.
const (
	contentsCalibration = 0x0a
	contentsResult      = 0x55
)

// Result frame layout, relative to regContents.
const (
	frameSize        = 31
	frameResultNum   = 2
	frameResultInfo  = 3
	frameDistance    = 4
	frameSysClock    = 6
	frameStateData   = 10
	frameRefHits     = 21
	frameObjHits     = 25
	frameXTalk       = 29
	reliabilityMask  = 0x3f
	maxReliability   = 63
	factoryCalOffset = frameResultNum
)

// Bootloader commands and status.
const (
	blCmdRAMRemapReset = 0x11
	blCmdDownloadInit  = 0x14
	blCmdWriteRAM      = 0x41
	blCmdAddrRAM       = 0x43

	blStatusReady = 0x00
	blStatusBusy  = 0x02

	// Largest W_RAM payload.
	blMaxData = 128
)

const (
	// The chip needs this long after any reset before I2C is back.
	i2cWait = 5 * time.Millisecond
	// Delay between status polls.
	waitPoll = time.Millisecond

	maxWaitRetry      = 10
	maxStartupToggles = 3
	maxBLRetry        = 100
	maxCmdRetry       = 50

	calibPoll = 100 * time.Millisecond
)

// FactoryCalibrationSize is the size of a factory calibration record.
const FactoryCalibrationSize = 14

// AlgStateSize is the size of the algorithm state record.
const AlgStateSize = 11

// sleep is replaced in tests.
var sleep = time.Sleep
