// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `
# Two sensors on the default bus.
MQTT_BROKER = tcp://localhost:1883
MQTT_CLIENT_ID=tofd
WEB_PORT=8080
POLL_MS=10
TERMINAL_BAR=true
SENSOR_RIGHT=vi5300,0x6c,GPIO22
SENSOR_LEFT=TOF8801, 0x41, GPIO17, GPIO27
`

func TestParse(t *testing.T) {
	cfg, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		MQTTBroker:   "tcp://localhost:1883",
		MQTTClientID: "tofd",
		MQTTTopic:    DefaultMQTTTopic,
		WebPort:      8080,
		FirmwareDir:  DefaultFirmwareDir,
		PollMS:       10,
		TerminalBar:  true,
		Sensors: []Sensor{
			{Name: "left", Chip: ChipTOF8801, Addr: 0x41, Enable: "GPIO17", IRQ: "GPIO27"},
			{Name: "right", Chip: ChipVI5300, Addr: 0x6c, Enable: "GPIO22"},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Parse() (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name, in string
	}{
		{"no sensor", "BUS=1\n"},
		{"no equal", "SENSOR_A\n"},
		{"unknown key", "SENSOR_A=vi5300,0x6c\nCOLOR=red\n"},
		{"unknown chip", "SENSOR_A=vl53l1,0x29\n"},
		{"bad address", "SENSOR_A=vi5300,0x1ff\n"},
		{"too many fields", "SENSOR_A=vi5300,0x6c,a,b,c\n"},
		{"no name", "SENSOR_=vi5300,0x6c\n"},
		{"duplicate", "SENSOR_A=vi5300,0x6c\nSENSOR_A=tof8801,0x41\n"},
		{"bad port", "SENSOR_A=vi5300,0x6c\nWEB_PORT=http\n"},
		{"port range", "SENSOR_A=vi5300,0x6c\nWEB_PORT=70000\n"},
		{"bad poll", "SENSOR_A=vi5300,0x6c\nPOLL_MS=0\n"},
		{"bad bool", "SENSOR_A=vi5300,0x6c\nTERMINAL_BAR=maybe\n"},
		{"no client id", "SENSOR_A=vi5300,0x6c\nMQTT_BROKER=tcp://b:1883\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tc.in)); err == nil {
				t.Error("Parse() succeeded")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tofd.conf")
	if err := os.WriteFile(path, []byte("SENSOR_A=vi5300,108\nBUS=I2C1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bus != "I2C1" || cfg.Sensors[0].Addr != 108 {
		t.Errorf("Load() = %+v", cfg)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
