// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps device names to their driver. Sensors are attached once
// initialized and detached, which halts them, on teardown.
type Registry struct {
	mu      sync.Mutex
	sensors map[string]Sensor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sensors: map[string]Sensor{}}
}

// Attach registers s under name.
func (r *Registry) Attach(name string, s Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sensors[name]; ok {
		return fmt.Errorf("tof: sensor %q already attached", name)
	}
	r.sensors[name] = s
	return nil
}

// Get returns the sensor attached as name.
func (r *Registry) Get(name string) (Sensor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sensors[name]
	return s, ok
}

// Detach removes name and halts its sensor.
func (r *Registry) Detach(name string) error {
	r.mu.Lock()
	s, ok := r.sensors[name]
	delete(r.sensors, name)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("tof: sensor %q not attached", name)
	}
	return s.Halt()
}

// Names returns the attached names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sensors))
	for n := range r.sensors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Each calls f for every attached sensor in name order, stopping at the
// first error.
func (r *Registry) Each(f func(name string, s Sensor) error) error {
	for _, n := range r.Names() {
		s, ok := r.Get(n)
		if !ok {
			continue
		}
		if err := f(n, s); err != nil {
			return err
		}
	}
	return nil
}

// Close detaches every sensor and returns the first halt error.
func (r *Registry) Close() error {
	var first error
	for _, n := range r.Names() {
		if err := r.Detach(n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
