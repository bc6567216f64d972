// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// edgeWait bounds a single WaitForEdge call so Halt is noticed.
const edgeWait = 100 * time.Millisecond

// IRQLoop runs an interrupt handler on every falling edge of the chip's
// interrupt line, and once at start if the line is already low, or, without
// a line, every poll period. Both paths call the
// same handler; polling only adds latency.
type IRQLoop struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartIRQ starts the loop. pin may be nil, in which case period must be
// positive. Handler errors are passed to onErr when it is not nil.
func StartIRQ(pin gpio.PinIn, period time.Duration, handle func() error, onErr func(error)) (*IRQLoop, error) {
	if pin == nil && period <= 0 {
		return nil, errors.New("tof: need an interrupt pin or a poll period")
	}
	if pin != nil {
		if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			return nil, fmt.Errorf("tof: interrupt pin %s: %w", pin, err)
		}
	}
	l := &IRQLoop{stop: make(chan struct{}), done: make(chan struct{})}
	call := func() {
		if err := handle(); err != nil && onErr != nil {
			onErr(err)
		}
	}
	if pin == nil {
		go l.poll(period, call)
	} else {
		go l.edges(pin, call)
	}
	return l, nil
}

func (l *IRQLoop) poll(period time.Duration, call func()) {
	defer close(l.done)
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			call()
		}
	}
}

func (l *IRQLoop) edges(pin gpio.PinIn, call func()) {
	defer close(l.done)
	// A line already held low raises no edge until the chip is serviced.
	if pin.Read() == gpio.Low {
		call()
	}
	for {
		select {
		case <-l.stop:
			return
		default:
		}
		if pin.WaitForEdge(edgeWait) {
			call()
		}
	}
}

// Halt stops the loop and waits for the handler to return.
func (l *IRQLoop) Halt() error {
	l.once.Do(func() { close(l.stop) })
	<-l.done
	return nil
}
