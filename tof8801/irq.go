// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"periph.io/x/conn/v3/physic"
)

// Reliability thresholds mapping the chip's 6 bit reliability onto a
// tof.Status. Below NearDistance any reliability of at least ReliabilityNear
// is confident; beyond it ReliabilityConfident and ReliabilitySemi apply.
const (
	NearDistance         = 100
	ReliabilityNear      = 1
	ReliabilitySemi      = 10
	ReliabilityConfident = 30
)

// Result is a decoded App0 result frame.
type Result struct {
	Number      byte
	Reliability byte
	// Millimeter is the distance of the object peak.
	Millimeter int
	SysClock   uint32
	State      [AlgStateSize]byte
	RefHits    uint32
	ObjHits    uint32
	XTalk      uint16
}

func decodeResult(f []byte) Result {
	r := Result{
		Number:      f[frameResultNum],
		Reliability: f[frameResultInfo] & reliabilityMask,
		Millimeter:  int(binary.LittleEndian.Uint16(f[frameDistance:])),
		SysClock:    binary.LittleEndian.Uint32(f[frameSysClock:]),
		RefHits:     binary.LittleEndian.Uint32(f[frameRefHits:]),
		ObjHits:     binary.LittleEndian.Uint32(f[frameObjHits:]),
		XTalk:       binary.LittleEndian.Uint16(f[frameXTalk:]),
	}
	copy(r.State[:], f[frameStateData:])
	return r
}

// Status classifies the result by distance and reliability.
func (r *Result) Status() tof.Status {
	rel := int(r.Reliability)
	if r.Millimeter < NearDistance {
		if rel >= ReliabilityNear {
			return tof.StatusConfident
		}
		return tof.StatusNotConfident
	}
	switch {
	case rel >= ReliabilityConfident:
		return tof.StatusConfident
	case rel >= ReliabilitySemi:
		return tof.StatusSemiConfident
	default:
		return tof.StatusNotConfident
	}
}

// Sample converts the result to a tof.Sample taken t after capture start.
func (r *Result) Sample(t time.Duration) tof.Sample {
	dist := physic.Distance(r.Millimeter) * physic.MilliMetre
	objects := 0
	if r.Reliability != 0 && r.Millimeter != 0 {
		objects = 1
	}
	return tof.Sample{
		Time:       t,
		Distance:   dist,
		Status:     r.Status(),
		Confidence: int(r.Reliability) * 100 / maxReliability,
		Objects:    objects,
		Near:       dist,
		Far:        dist,
	}
}

// HandleInterrupt services the chip's interrupt. It is the only path results
// and calibration records are read through, whether driven by the interrupt
// line, the polling loop or a calibration wait.
//
// It is a no-op unless a capture or calibration is active. The interrupt
// status is cleared on the chip before the frame is read.
func (d *Dev) HandleInterrupt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.info.App != AppMeasure || !(d.capturing || d.calibrating) {
		return nil
	}
	st, err := d.t.ReadByte(regIntStat)
	if err != nil {
		return err
	}
	if st == 0 {
		return nil
	}
	if err := d.t.Write(regIntStat, st); err != nil {
		return err
	}
	if st&irqError != 0 {
		d.log.Printf("%s: error interrupt", d)
	}
	if st&irqResults == 0 {
		return nil
	}
	var f [frameSize]byte
	if err := d.t.Read(regContents, f[:]); err != nil {
		return err
	}
	switch f[0] {
	case contentsCalibration:
		if d.calibrating && d.calResult != nil {
			blob := make([]byte, FactoryCalibrationSize)
			copy(blob, f[factoryCalOffset:])
			select {
			case d.calResult <- blob:
			default:
			}
		}
		return nil
	case contentsResult:
		if d.calibrating {
			return nil
		}
		return d.queue(decodeResult(f[:]))
	default:
		d.log.Printf("%s: unexpected frame contents %#02x", d, f[0])
		return nil
	}
}

func (d *Dev) queue(r Result) error {
	if r.XTalk != 0 {
		d.xtalkPeak = r.XTalk
	}
	if d.mode == tof.Single {
		if err := d.stopLocked(); err != nil {
			return err
		}
	}
	err := d.ring.Push(r.Sample(time.Since(d.started)))
	if errors.Is(err, tof.ErrBufferOverflow) {
		d.log.Printf("%s: sample queue full, cleared", d)
	}
	return err
}
