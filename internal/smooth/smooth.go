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

// Package smooth is a minimal in-memory implementation of the
// cm.Smooth collaborator.
package smooth

import (
	"sync"

	"github.com/dutchanddutch/chrony/candm"
	"github.com/dutchanddutch/chrony/cm"
)

// Module holds whether offset/frequency smoothing is enabled and its
// currently reported state.
type Module struct {
	mu      sync.Mutex
	enabled bool
	active  bool
}

// New creates a Module; enabled reflects whether this daemon was
// configured to support smoothing at all (independent of whether it
// is currently active).
func New(enabled bool) *Module {
	return &Module{enabled: enabled}
}

// Enabled implements cm.Smooth.
func (m *Module) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// Report implements cm.Smooth.
func (m *Module) Report() candm.RpyPayloadSmoothing {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := int32(0)
	if m.active {
		active = 1
	}
	return candm.RpyPayloadSmoothing{Active: active}
}

// Apply implements cm.Smooth.
func (m *Module) Apply(opt cm.SmoothOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch opt {
	case cm.SmoothActivate:
		m.active = true
	case cm.SmoothReset:
		m.active = false
	}
}
