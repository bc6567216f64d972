// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/common"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
)

var errDownloadTimeout = errors.New("tof8801: firmware download timed out")

// bootloader speaks the ROM bootloader command protocol. A command is
// written as [cmd, size, data..., csum] where csum is the one's complement
// of the byte sum; the status reads back as [status, size, csum].
type bootloader struct {
	t *tof.Transport
}

func (b *bootloader) command(cmd byte, data ...byte) error {
	if err := b.send(cmd, data...); err != nil {
		return err
	}
	return b.wait(cmd)
}

func (b *bootloader) send(cmd byte, data ...byte) error {
	buf := make([]byte, 0, len(data)+3)
	buf = append(buf, cmd, byte(len(data)))
	buf = append(buf, data...)
	buf = append(buf, common.OnesComplement8(buf))
	return b.t.Write(regBLCmdStat, buf...)
}

func (b *bootloader) wait(cmd byte) error {
	var st [3]byte
	for i := 0; i < maxBLRetry; i++ {
		if err := b.t.Read(regBLCmdStat, st[:]); err != nil {
			return err
		}
		switch st[0] {
		case blStatusReady:
			return nil
		case blStatusBusy:
			sleep(waitPoll)
		default:
			return fmt.Errorf("tof8801: bootloader command %#02x: status %#02x", cmd, st[0])
		}
	}
	return fmt.Errorf("tof8801: bootloader command %#02x: still busy", cmd)
}

// downloadInit starts a RAM download using salt.
func (b *bootloader) downloadInit(salt byte) error {
	return b.command(blCmdDownloadInit, salt)
}

func (b *bootloader) setAddress(addr uint16) error {
	var a [2]byte
	binary.LittleEndian.PutUint16(a[:], addr)
	return b.command(blCmdAddrRAM, a[:]...)
}

func (b *bootloader) writeRAM(data []byte, deadline time.Time) error {
	for len(data) > 0 {
		if time.Now().After(deadline) {
			return errDownloadTimeout
		}
		n := len(data)
		if n > blMaxData {
			n = blMaxData
		}
		if err := b.command(blCmdWriteRAM, data[:n]...); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// remapReset starts the downloaded image. The chip resets, so there is no
// status to wait for.
func (b *bootloader) remapReset() error {
	return b.send(blCmdRAMRemapReset)
}

// load streams img, already decoded, to RAM and starts it. It gives up once
// deadline has passed.
func (b *bootloader) load(img *Image, salt byte, deadline time.Time) error {
	if err := b.downloadInit(salt); err != nil {
		return err
	}
	next := int64(-1)
	for _, s := range img.Segments {
		if s.Address+uint32(len(s.Data)) > 0x10000 {
			return fmt.Errorf("tof8801: segment at %#x does not fit in RAM", s.Address)
		}
		if int64(s.Address) != next {
			if err := b.setAddress(uint16(s.Address)); err != nil {
				return err
			}
		}
		if err := b.writeRAM(s.Data, deadline); err != nil {
			return err
		}
		next = int64(s.Address) + int64(len(s.Data))
	}
	return b.remapReset()
}
