// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/config"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/publish"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/rangebar"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/tof"
	"periph.io/x/conn/v3/i2c"
)

// RunDaemon attaches the configured sensors and publishes their samples
// until ctx is done.
func RunDaemon(ctx context.Context, bus i2c.Bus, cfg *config.Config) error {
	reg, err := OpenSensors(bus, cfg, log.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := reg.Close(); err != nil {
			log.Printf("halting sensors: %v", err)
		}
	}()

	var pubs publish.Multi
	if cfg.MQTTBroker != "" {
		m, err := publish.DialMQTT(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			return err
		}
		log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)
		if err := publishInfo(m, reg, cfg); err != nil {
			m.Close()
			return err
		}
		pubs = append(pubs, m)
	}
	if cfg.WebPort != 0 {
		hub := publish.NewHub(log.Default())
		srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.WebPort), Handler: hub}
		go func() {
			log.Printf("web server listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("web server: %v", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(sctx)
		}()
		pubs = append(pubs, hub)
	}
	defer pubs.Close()

	var show ShowFunc
	if cfg.TerminalBar {
		bar := rangebar.New(&rangebar.Opts{Width: 60})
		defer bar.Halt()
		first := cfg.Sensors[0].Name
		show = func(name string, s *tof.Sample) {
			if name == first {
				bar.Show(s)
			}
		}
	}
	log.Printf("capturing from %d sensors", len(cfg.Sensors))
	return Pump(ctx, reg, pubs, show)
}

func publishInfo(m *publish.MQTT, reg *tof.Registry, cfg *config.Config) error {
	chips := map[string]string{}
	for _, s := range cfg.Sensors {
		chips[s.Name] = s.Chip
	}
	return reg.Each(func(name string, s tof.Sensor) error {
		v, err := s.Version()
		if err != nil {
			return fmt.Errorf("sensor %s: %w", name, err)
		}
		return m.PublishInfo(&publish.Info{Sensor: name, Chip: chips[name], Version: v})
	})
}
