// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package vi5300

import (
	"errors"
	"fmt"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

var errNotVerified = errors.New("vi5300: firmware did not start")

// loadFirmware downloads the configured image. A missing image is tolerated
// when the chip already reports a running firmware.
func (d *Dev) loadFirmware() error {
	name := d.opts.FirmwareName
	var fw []byte
	err := error(&tof.FirmwareError{Kind: tof.FirmwareNotAvailable, Name: name})
	if d.opts.Firmware != nil {
		fw, err = d.opts.Firmware.ReadImage(name)
	}
	if err != nil {
		if !tof.IsFirmwareKind(err, tof.FirmwareNotAvailable) {
			return err
		}
		sp, rerr := d.t.ReadByte(regSpecial)
		if rerr != nil {
			return rerr
		}
		if sp != specialFWReady {
			return err
		}
		d.log.Printf("%s: %s not found, keeping resident firmware", d, name)
		d.firmware = "resident"
		return nil
	}
	if err := d.download(fw); err != nil {
		kind := tof.FirmwareDownloadFailed
		if err == errNotVerified {
			kind = tof.FirmwareVerificationFailed
		}
		return &tof.FirmwareError{Kind: kind, Name: name, Err: err}
	}
	d.firmware = fmt.Sprintf("%s (%d bytes)", name, len(fw))
	d.log.Printf("%s: downloaded %s", d, d.firmware)
	return nil
}

// chunks splits fw into scratch pad sized pieces.
func chunks(fw []byte) [][]byte {
	out := make([][]byte, 0, (len(fw)+ChunkSize-1)/ChunkSize)
	for off := 0; off < len(fw); off += ChunkSize {
		out = append(out, fw[off:min(off+ChunkSize, len(fw))])
	}
	return out
}

// download pushes fw through the scratch pad with the MCU held, then
// releases it and waits for the firmware to report ready.
func (d *Dev) download(fw []byte) error {
	if len(fw) == 0 || len(fw) > MaxFirmwareSize {
		return fmt.Errorf("vi5300: firmware is %d bytes, want 1 to %d", len(fw), MaxFirmwareSize)
	}
	if err := d.rcoStable(); err != nil {
		return err
	}
	if err := d.writeSeq([]regVal{{regPWCtrl, 0x08}, {regPWCtrl, 0x0a}, {regMCUCfg, 0x06}}); err != nil {
		return err
	}
	cfg, err := d.t.ReadByte(regSysCfg)
	if err != nil {
		return err
	}
	if err := d.writeSeq([]regVal{{regSysCfg, cfg | sysCfgFW}, {regCmd, cmdFWInit}, {regSize, 0x02}}); err != nil {
		return err
	}
	if err := d.t.Write(regScratch, 0x00, 0x00); err != nil {
		return err
	}
	for _, c := range chunks(fw) {
		if err := d.writeSeq([]regVal{{regCmd, cmdWriteFW}, {regSize, byte(len(c))}}); err != nil {
			return err
		}
		if err := d.t.Write(regScratch, c...); err != nil {
			return err
		}
		sleep(chunkDelay)
	}
	reset := []regVal{
		{regSysCfg, cfg &^ sysCfgFW},
		{regMCUCfg, 0x06},
		{regPDReset, 0xa0},
		{regPDReset, 0x80},
		{regMCUCfg, 0x07},
		{regPWCtrl, 0x02},
		{regPWCtrl, 0x00},
	}
	if err := d.writeSeq(reset); err != nil {
		return err
	}
	for retry := 0; retry < maxFWRetry; retry++ {
		sleep(fwSettle)
		sp, err := d.t.ReadByte(regSpecial)
		if err != nil {
			return err
		}
		if sp == specialFWReady {
			return nil
		}
	}
	return errNotVerified
}
