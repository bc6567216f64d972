// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tof

import "sync"

// DefaultQueueSize is the capacity used when a driver is given no size.
const DefaultQueueSize = 64

// Ring is a bounded queue of samples. When full, a push clears the queue and
// reports ErrBufferOverflow; samples are never dropped silently.
type Ring struct {
	mu        sync.Mutex
	buf       []Sample
	head      int
	n         int
	overflows int
	ready     chan struct{}
}

// NewRing returns a Ring holding up to size samples.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Ring{buf: make([]Sample, size), ready: make(chan struct{}, 1)}
}

// Push appends s. If the queue is full it is cleared first, s is queued and
// ErrBufferOverflow is returned.
func (r *Ring) Push(s Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if !r.put(s) {
		r.head, r.n = 0, 0
		r.overflows++
		err = ErrBufferOverflow
		r.put(s)
	}
	select {
	case r.ready <- struct{}{}:
	default:
	}
	return err
}

func (r *Ring) put(s Sample) bool {
	if r.n == len(r.buf) {
		return false
	}
	r.buf[(r.head+r.n)%len(r.buf)] = s
	r.n++
	return true
}

// Pop removes the oldest sample.
func (r *Ring) Pop() (Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		return Sample{}, false
	}
	s := r.buf[r.head]
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return s, true
}

// Drain removes and returns every queued sample, oldest first.
func (r *Ring) Drain() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, 0, r.n)
	for ; r.n > 0; r.n-- {
		out = append(out, r.buf[r.head])
		r.head = (r.head + 1) % len(r.buf)
	}
	r.head = 0
	return out
}

// Len returns the number of queued samples.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Cap returns the capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Overflows returns how many times the queue was cleared because it was full.
func (r *Ring) Overflows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overflows
}

// Ready receives a value after one or more pushes. Consumers select on it
// and then Pop until empty.
func (r *Ring) Ready() <-chan struct{} {
	return r.ready
}
