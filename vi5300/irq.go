// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vi5300

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

// decodeFrame extracts the raw result fields of a 32 byte frame.
func decodeFrame(b []byte) tof.Raw {
	le := binary.LittleEndian
	return tof.Raw{
		Millimeter:      int16(le.Uint16(b[12:])),
		Near:            int16(le.Uint16(b[18:])),
		Far:             int16(le.Uint16(b[15:])),
		Noise:           le.Uint16(b[26:]),
		IntegrationTime: le.Uint32(b[22:]) & 0xffffff,
		Peak1:           le.Uint32(b[28:]),
		Peak2:           le.Uint32(b[8:]),
	}
}

// readFrame reads the result frame, in two halves.
func (d *Dev) readFrame() (tof.Raw, error) {
	var b [frameSize]byte
	if err := d.t.Read(regScratch, b[:frameHalf]); err != nil {
		return tof.Raw{}, err
	}
	if err := d.t.Read(regScratch+frameHalf, b[frameHalf:]); err != nil {
		return tof.Raw{}, err
	}
	return decodeFrame(b[:]), nil
}

// HandleInterrupt services the chip's interrupt. It is the only path results
// are read through, whether driven by the interrupt line, the polling loop
// or a calibration wait.
//
// It is a no-op unless a capture or calibration is active. The interrupt
// status is cleared on the chip before the result is read. While a
// calibration runs, results go to it instead of the sample queue.
func (d *Dev) HandleInterrupt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.capturing && d.cal == nil {
		return nil
	}
	err := d.service()
	if err != nil && d.cal != nil && d.cal.err == nil {
		d.cal.err = err
	}
	return err
}

func (d *Dev) service() error {
	st, err := d.t.ReadByte(regIntrStat)
	if err != nil {
		return err
	}
	if st == 0 {
		return nil
	}
	if err := d.t.Write(regIntrStat, st); err != nil {
		return err
	}
	if st&intrReady == 0 {
		return nil
	}
	if d.cal != nil && d.cal.kind == calXTalk {
		return d.readXTalk()
	}
	raw, err := d.readFrame()
	if err != nil {
		return err
	}
	if d.cal != nil {
		d.cal.add(raw, time.Since(d.started))
		return nil
	}
	return d.queue(raw)
}

func (d *Dev) queue(raw tof.Raw) error {
	r := tof.Correct(raw, d.settings.Offset)
	if d.mode == tof.Single {
		// The chip stops on its own after a single measurement.
		d.capturing = false
	}
	err := d.ring.Push(r.Sample(time.Since(d.started)))
	if errors.Is(err, tof.ErrBufferOverflow) {
		d.log.Printf("%s: sample queue full, cleared", d)
	}
	return err
}
