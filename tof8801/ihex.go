// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof8801

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/common"
)

// RecordType is an Intel HEX record type.
type RecordType byte

const (
	RecordData                   RecordType = 0x00
	RecordEOF                    RecordType = 0x01
	RecordExtendedSegmentAddress RecordType = 0x02
	RecordStartSegmentAddress    RecordType = 0x03
	RecordExtendedLinearAddress  RecordType = 0x04
	RecordStartLinearAddress     RecordType = 0x05
)

// Segment is a run of contiguous bytes to load at Address.
type Segment struct {
	// Address is absolute, after extended address records are applied.
	Address uint32
	Data    []byte
}

// Image is a parsed RAM patch.
type Image struct {
	// Segments in file order. Adjacent data records are merged.
	Segments []Segment
	// Start is the start address given by a type 03 or 05 record, if any.
	Start uint32
}

// Size returns the number of payload bytes.
func (i *Image) Size() int {
	n := 0
	for _, s := range i.Segments {
		n += len(s.Data)
	}
	return n
}

// Decode returns a copy of the image with every payload byte XORed with salt.
func (i *Image) Decode(salt byte) *Image {
	out := &Image{Start: i.Start, Segments: make([]Segment, len(i.Segments))}
	for n, s := range i.Segments {
		data := make([]byte, len(s.Data))
		for j, b := range s.Data {
			data[j] = b ^ salt
		}
		out.Segments[n] = Segment{Address: s.Address, Data: data}
	}
	return out
}

// ParseHex parses an Intel HEX file. Every record checksum is verified. Blank
// lines and carriage returns are ignored, as is anything after the EOF
// record.
func ParseHex(r io.Reader) (*Image, error) {
	img := &Image{}
	var base uint32
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" {
			continue
		}
		typ, addr, data, err := parseRecord(text)
		if err != nil {
			return nil, fmt.Errorf("tof8801: hex line %d: %w", line, err)
		}
		switch typ {
		case RecordData:
			img.add(base+uint32(addr), data)
		case RecordEOF:
			return img, nil
		case RecordExtendedSegmentAddress:
			if len(data) != 2 {
				return nil, fmt.Errorf("tof8801: hex line %d: bad segment address", line)
			}
			base = uint32(binary.BigEndian.Uint16(data)) << 4
		case RecordExtendedLinearAddress:
			if len(data) != 2 {
				return nil, fmt.Errorf("tof8801: hex line %d: bad linear address", line)
			}
			base = uint32(binary.BigEndian.Uint16(data)) << 16
		case RecordStartSegmentAddress, RecordStartLinearAddress:
			if len(data) != 4 {
				return nil, fmt.Errorf("tof8801: hex line %d: bad start address", line)
			}
			img.Start = binary.BigEndian.Uint32(data)
		default:
			return nil, fmt.Errorf("tof8801: hex line %d: unknown record type %#02x", line, byte(typ))
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("tof8801: hex: %w", err)
	}
	return nil, errors.New("tof8801: hex: missing EOF record")
}

func parseRecord(text string) (RecordType, uint16, []byte, error) {
	if text[0] != ':' {
		return 0, 0, nil, errors.New("missing start code")
	}
	raw, err := hex.DecodeString(text[1:])
	if err != nil {
		return 0, 0, nil, err
	}
	if len(raw) < 5 || len(raw) != int(raw[0])+5 {
		return 0, 0, nil, fmt.Errorf("bad record length %d", len(raw))
	}
	if !common.VerifyTwosComplement8(raw) {
		return 0, 0, nil, fmt.Errorf("checksum mismatch, want %#02x", common.TwosComplement8(raw[:len(raw)-1]))
	}
	return RecordType(raw[3]), binary.BigEndian.Uint16(raw[1:3]), raw[4 : len(raw)-1], nil
}

func (i *Image) add(addr uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	if n := len(i.Segments); n > 0 {
		last := &i.Segments[n-1]
		if last.Address+uint32(len(last.Data)) == addr {
			last.Data = append(last.Data, data...)
			return
		}
	}
	i.Segments = append(i.Segments, Segment{Address: addr, Data: append([]byte(nil), data...)})
}
