// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/publish"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"golang.org/x/sync/errgroup"
)

// ShowFunc displays a sample locally.
type ShowFunc func(name string, s *tof.Sample)

// Pump starts a continuous capture on every sensor of reg and publishes the
// samples until ctx is done. Captures are stopped on return. It fails when
// a capture cannot be started.
func Pump(ctx context.Context, reg *tof.Registry, pub publish.Publisher, show ShowFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	err := reg.Each(func(name string, s tof.Sensor) error {
		if err := s.Start(tof.Continuous); err != nil {
			return fmt.Errorf("sensor %s: start: %w", name, err)
		}
		g.Go(func() error {
			return pumpSensor(ctx, name, s, pub, show)
		})
		return nil
	})
	if err != nil {
		// Unwind the sensors already started.
		g.Go(func() error { return err })
	}
	return g.Wait()
}

func pumpSensor(ctx context.Context, name string, s tof.Sensor, pub publish.Publisher, show ShowFunc) error {
	defer func() {
		if err := s.Stop(); err != nil {
			log.Printf("sensor %s: stop: %v", name, err)
		}
	}()
	ring := s.Samples()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ring.Ready():
		}
		now := time.Now()
		for _, smp := range ring.Drain() {
			m := publish.NewMessage(name, &smp, now)
			if err := pub.Publish(&m); err != nil {
				log.Printf("sensor %s: publish: %v", name, err)
			}
			if show != nil {
				show(name, &smp)
			}
		}
	}
}
