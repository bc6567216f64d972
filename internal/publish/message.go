// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package publish fans decoded samples out to MQTT and websocket clients.
package publish

import (
	"errors"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"periph.io/x/conn/v3/physic"
)

// Message is the JSON form of one sample.
type Message struct {
	Sensor      string `json:"sensor"`
	Timestamp   int64  `json:"timestamp_ms"`
	Millimetre  int    `json:"distance_mm"`
	Status      string `json:"status"`
	Confidence  int    `json:"confidence"`
	Objects     int    `json:"objects"`
	AmbientRate uint32 `json:"ambient_rate"`
	NearMM      int    `json:"near_mm"`
	FarMM       int    `json:"far_mm"`
}

// NewMessage converts a sample read from sensor at now.
func NewMessage(sensor string, s *tof.Sample, now time.Time) Message {
	return Message{
		Sensor:      sensor,
		Timestamp:   now.UnixMilli(),
		Millimetre:  s.Millimetres(),
		Status:      s.Status.String(),
		Confidence:  s.Confidence,
		Objects:     s.Objects,
		AmbientRate: s.AmbientRate,
		NearMM:      int(s.Near / physic.MilliMetre),
		FarMM:       int(s.Far / physic.MilliMetre),
	}
}

// Publisher sends messages to its subscribers.
type Publisher interface {
	Publish(m *Message) error
	Close() error
}

// Multi publishes to every publisher in turn.
type Multi []Publisher

// Publish sends m everywhere and joins the errors.
func (p Multi) Publish(m *Message) error {
	var errs []error
	for _, q := range p {
		if err := q.Publish(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (p Multi) Close() error {
	var errs []error
	for _, q := range p {
		if err := q.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
