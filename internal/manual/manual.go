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

// Package manual is a minimal in-memory implementation of the
// cm.Manual collaborator: the manual-timestamp-entry engine behind
// SETTIME/MANUAL/MANUAL_LIST/MANUAL_DELETE.
package manual

import (
	"sync"
	"time"

	"github.com/dutchanddutch/chrony/candm"
	"github.com/dutchanddutch/chrony/cm"
)

// Engine holds manual-mode state and accepted samples.
type Engine struct {
	mu      sync.Mutex
	enabled bool
	samples []candm.ManualSample
}

// New creates an Engine with manual mode disabled.
func New() *Engine {
	return &Engine{}
}

// SetOption implements cm.Manual.
func (e *Engine) SetOption(opt cm.ManualOption) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch opt {
	case cm.ManualEnable:
		e.enabled = true
	case cm.ManualDisable:
		e.enabled = false
	case cm.ManualReset:
		e.samples = nil
	}
}

// Enabled implements cm.Manual.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Accept implements cm.Manual.
func (e *Engine) Accept(ts time.Time, offset, peerDispersion float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return false
	}
	if len(e.samples) >= candm.MaxManualSamples {
		e.samples = e.samples[1:]
	}
	e.samples = append(e.samples, candm.ManualSample{
		Ts:             candm.NewTimestamp(ts),
		Offset:         candm.EncodeFloat(offset),
		PeerDispersion: candm.EncodeFloat(peerDispersion),
	})
	return true
}

// List implements cm.Manual.
func (e *Engine) List() []candm.ManualSample {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]candm.ManualSample, len(e.samples))
	copy(out, e.samples)
	return out
}

// Delete implements cm.Manual.
func (e *Engine) Delete(index int32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || int(index) >= len(e.samples) {
		return false
	}
	e.samples = append(e.samples[:index], e.samples[index+1:]...)
	return true
}
