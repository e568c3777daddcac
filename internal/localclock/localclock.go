/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package localclock is a minimal in-memory implementation of the
// cm.LocalClock collaborator: it records the deltas DFREQ, DOFFSET
// and MAKESTEP request rather than actually stepping the system
// clock.
package localclock

import (
	"sync"
	"sync/atomic"
)

// Driver accumulates the frequency and offset corrections a real
// clock discipline loop would apply.
type Driver struct {
	mu          sync.Mutex
	freqPPM     float64
	offset      float64
	stepCount   int64
}

// New creates a Driver with zero accumulated correction.
func New() *Driver {
	return &Driver{}
}

// AccumulateFrequency implements cm.LocalClock.
func (d *Driver) AccumulateFrequency(ppm float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freqPPM += ppm
}

// AccumulateOffset implements cm.LocalClock.
func (d *Driver) AccumulateOffset(offset float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offset += offset
}

// MakeStep implements cm.LocalClock.
func (d *Driver) MakeStep() {
	atomic.AddInt64(&d.stepCount, 1)
}

// FrequencyPPM returns the accumulated frequency correction.
func (d *Driver) FrequencyPPM() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.freqPPM
}

// Offset returns the accumulated offset correction.
func (d *Driver) Offset() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.offset
}

// StepCount returns the number of times MakeStep was invoked.
func (d *Driver) StepCount() int64 {
	return atomic.LoadInt64(&d.stepCount)
}
