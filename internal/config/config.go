// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config reads the daemon configuration, a text file of KEY=VALUE
// lines. Blank lines and lines starting with # are ignored.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Supported chips.
const (
	ChipTOF8801 = "tof8801"
	ChipVI5300  = "vi5300"
)

// Sensor describes one sensor on the bus.
type Sensor struct {
	// Name is the lower cased suffix of the SENSOR_ key.
	Name string
	Chip string
	Addr uint16
	// Enable and IRQ are gpioreg pin names; empty when not wired.
	Enable string
	IRQ    string
}

// Config holds the daemon configuration.
type Config struct {
	// Bus is the I2C bus name; empty selects the default bus.
	Bus string

	// MQTT publishing is disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// WebPort serves the websocket sample stream; 0 disables it.
	WebPort int

	FirmwareDir string
	// PollMS is the interrupt poll period for sensors without IRQ pin.
	PollMS int
	// TerminalBar renders the first sensor as a range bar on stdout.
	TerminalBar bool

	Sensors []Sensor
}

// Default values of optional keys.
const (
	DefaultMQTTTopic   = "tof"
	DefaultFirmwareDir = "/lib/firmware"
	DefaultPollMS      = 20
)

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads and validates a configuration.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{
		MQTTTopic:   DefaultMQTTTopic,
		FirmwareDir: DefaultFirmwareDir,
		PollMS:      DefaultPollMS,
	}
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}
		if err := cfg.setValue(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sort.Slice(cfg.Sensors, func(i, j int) bool { return cfg.Sensors[i].Name < cfg.Sensors[j].Name })
	return cfg, nil
}

const sensorPrefix = "SENSOR_"

func (c *Config) setValue(key, value string) error {
	if strings.HasPrefix(key, sensorPrefix) {
		s, err := parseSensor(strings.ToLower(strings.TrimPrefix(key, sensorPrefix)), value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		c.Sensors = append(c.Sensors, s)
		return nil
	}
	switch key {
	case "BUS":
		c.Bus = value
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_TOPIC":
		c.MQTTTopic = value
	case "WEB_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("WEB_PORT must be 0-65535, got %d", port)
		}
		c.WebPort = port
	case "FIRMWARE_DIR":
		c.FirmwareDir = value
	case "POLL_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid POLL_MS %q: %w", value, err)
		}
		if ms <= 0 {
			return fmt.Errorf("POLL_MS must be positive, got %d", ms)
		}
		c.PollMS = ms
	case "TERMINAL_BAR":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid TERMINAL_BAR %q: %w", value, err)
		}
		c.TerminalBar = b
	default:
		return fmt.Errorf("unknown key %q", key)
	}
	return nil
}

// parseSensor parses "<chip>,<addr>[,<enable pin>[,<irq pin>]]".
func parseSensor(name, value string) (Sensor, error) {
	if name == "" {
		return Sensor{}, fmt.Errorf("missing sensor name")
	}
	parts := strings.Split(value, ",")
	if len(parts) < 2 || len(parts) > 4 {
		return Sensor{}, fmt.Errorf("want <chip>,<addr>[,<enable pin>[,<irq pin>]], got %q", value)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	s := Sensor{Name: name, Chip: strings.ToLower(parts[0])}
	switch s.Chip {
	case ChipTOF8801, ChipVI5300:
	default:
		return Sensor{}, fmt.Errorf("unknown chip %q", parts[0])
	}
	addr, err := strconv.ParseUint(parts[1], 0, 7)
	if err != nil {
		return Sensor{}, fmt.Errorf("invalid address %q: %w", parts[1], err)
	}
	s.Addr = uint16(addr)
	if len(parts) > 2 {
		s.Enable = parts[2]
	}
	if len(parts) > 3 {
		s.IRQ = parts[3]
	}
	return s, nil
}

func (c *Config) validate() error {
	if len(c.Sensors) == 0 {
		return fmt.Errorf("no SENSOR_ configured")
	}
	seen := map[string]bool{}
	for _, s := range c.Sensors {
		if seen[s.Name] {
			return fmt.Errorf("sensor %q configured twice", s.Name)
		}
		seen[s.Name] = true
	}
	if c.MQTTBroker != "" {
		if c.MQTTClientID == "" {
			return fmt.Errorf("MQTT_CLIENT_ID is required with MQTT_BROKER")
		}
		if c.MQTTTopic == "" {
			return fmt.Errorf("MQTT_TOPIC must not be empty")
		}
	}
	return nil
}
