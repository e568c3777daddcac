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

// Package rtc is a minimal implementation of the cm.Rtc collaborator:
// a real-time-clock module that may or may not be present on this
// host, backed by a plain file instead of a device node.
package rtc

import (
	"fmt"
	"os"
	"sync"

	"github.com/dutchanddutch/chrony/candm"
)

// Module models the optional hardware RTC, parameterized over a
// filesystem path standing in for the device.
type Module struct {
	mu      sync.Mutex
	path    string
	present bool

	coefSeconds float64
	coefGain    float64
}

// New creates a Module; present mirrors whether this host reported an
// RTC device at startup.
func New(path string, present bool) *Module {
	return &Module{path: path, present: present}
}

// Present implements cm.Rtc.
func (m *Module) Present() bool {
	return m.present
}

// Write implements cm.Rtc.
func (m *Module) Write() error {
	if !m.present {
		return fmt.Errorf("rtc: not present")
	}
	if m.path == "" {
		return fmt.Errorf("rtc: no backing file configured")
	}
	return os.WriteFile(m.path, []byte("rtc-write-marker\n"), 0644)
}

// Trim implements cm.Rtc.
func (m *Module) Trim() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coefSeconds = 0
}

// Report implements cm.Rtc.
func (m *Module) Report() (candm.RpyPayloadRTC, error) {
	if !m.present {
		return candm.RpyPayloadRTC{}, fmt.Errorf("rtc: not present")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return candm.RpyPayloadRTC{
		CoefSeconds: candm.EncodeFloat(m.coefSeconds),
		CoefGain:    candm.EncodeFloat(m.coefGain),
	}, nil
}
