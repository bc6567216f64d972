// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// tofd captures continuously from the configured ToF sensors and publishes
// the samples over MQTT and websocket.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/app"
	"github.com/Supersonic/android-kernel-huawei-abr-sub007/internal/config"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func main() {
	configPath := flag.String("config", "/etc/tofd.conf", "path to configuration file")
	flag.Parse()

	log.Println("starting tofd")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if _, err := host.Init(); err != nil {
		log.Fatalf("host init: %v", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		log.Fatalf("failed to open I2C bus %q: %v", cfg.Bus, err)
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunDaemon(ctx, bus, cfg); err != nil {
		log.Printf("fatal: %v", err)
		stop()
		bus.Close()
		os.Exit(1)
	}
	log.Println("stopped")
}
