// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"io/fs"
	"os"
	"strings"
)

// FirmwareSource loads firmware and calibration images by name.
type FirmwareSource interface {
	ReadImage(name string) ([]byte, error)
}

// FSSource reads images from a file system.
type FSSource struct {
	FS fs.FS
}

// DirSource returns a source reading images from the directory dir.
func DirSource(dir string) FSSource {
	return FSSource{FS: os.DirFS(dir)}
}

// ReadImage implements FirmwareSource. A missing or unreadable image is a
// FirmwareNotAvailable error.
func (s FSSource) ReadImage(name string) ([]byte, error) {
	if s.FS == nil {
		return nil, &FirmwareError{Kind: FirmwareNotAvailable, Name: name}
	}
	b, err := fs.ReadFile(s.FS, name)
	if err != nil {
		return nil, &FirmwareError{Kind: FirmwareNotAvailable, Name: name, Err: err}
	}
	return b, nil
}

// MapSource is an in-memory FirmwareSource.
type MapSource map[string][]byte

// ReadImage implements FirmwareSource.
func (m MapSource) ReadImage(name string) ([]byte, error) {
	b, ok := m[name]
	if !ok {
		return nil, &FirmwareError{Kind: FirmwareNotAvailable, Name: name, Err: fs.ErrNotExist}
	}
	return b, nil
}

// TryEach reads each named image in order and calls try with it until one
// succeeds. Missing images are skipped. If none could be read the error is
// FirmwareNotAvailable; otherwise the last failure is returned.
func TryEach(src FirmwareSource, names []string, try func(name string, image []byte) error) error {
	if src == nil {
		return &FirmwareError{Kind: FirmwareNotAvailable, Name: strings.Join(names, ",")}
	}
	var last error
	for _, name := range names {
		image, err := src.ReadImage(name)
		if err != nil {
			if !IsFirmwareKind(err, FirmwareNotAvailable) {
				last = err
			}
			continue
		}
		if err = try(name, image); err == nil {
			return nil
		}
		last = err
	}
	if last == nil {
		return &FirmwareError{Kind: FirmwareNotAvailable, Name: strings.Join(names, ","), Err: fs.ErrNotExist}
	}
	return last
}

// ReadOptional reads an image that may legitimately be absent, such as a
// calibration blob. It returns nil, nil when the image is missing.
func ReadOptional(src FirmwareSource, name string) ([]byte, error) {
	if src == nil || name == "" {
		return nil, nil
	}
	b, err := src.ReadImage(name)
	if err != nil {
		if IsFirmwareKind(err, FirmwareNotAvailable) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}
