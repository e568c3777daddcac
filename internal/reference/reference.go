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

// Package reference is a minimal in-memory implementation of the
// cm.Reference collaborator: it records the tunables that MODIFY_*,
// LOCAL and RESELECT* set. TRACKING reports only the reference ID,
// address and stratum given to SetCurrentReference; the recorded
// tunables are not part of the TRACKING reply.
package reference

import (
	"net"
	"sync"

	"github.com/dutchanddutch/chrony/candm"
)

// Tracking holds the tunable reference-subsystem state.
type Tracking struct {
	mu sync.Mutex

	maxUpdateSkew     float64
	makestepLimit     float64
	makestepThreshold int32
	localEnabled      bool
	localStratum      int32
	localDistance     float64
	reselectDistance  float64
	reselectCount     int

	refID   uint32
	address net.IP
	stratum uint16
}

// New creates a Tracking state with sensible zero defaults.
func New() *Tracking {
	return &Tracking{}
}

// ModifyMaxUpdateSkew implements cm.Reference.
func (t *Tracking) ModifyMaxUpdateSkew(skew float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxUpdateSkew = skew
}

// ModifyMakestep implements cm.Reference.
func (t *Tracking) ModifyMakestep(limit float64, threshold int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.makestepLimit = limit
	t.makestepThreshold = threshold
}

// SetLocal implements cm.Reference.
func (t *Tracking) SetLocal(enabled bool, stratum int32, distance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.localEnabled = enabled
	t.localStratum = stratum
	t.localDistance = distance
}

// SetReselectDistance implements cm.Reference.
func (t *Tracking) SetReselectDistance(distance float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reselectDistance = distance
}

// Reselect implements cm.Reference.
func (t *Tracking) Reselect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reselectCount++
}

// ReselectCount returns how many times Reselect ran, for tests.
func (t *Tracking) ReselectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reselectCount
}

// SetCurrentReference sets the address reported by Tracking.
func (t *Tracking) SetCurrentReference(refID uint32, addr net.IP, stratum uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refID = refID
	t.address = addr
	t.stratum = stratum
}

// Tracking implements cm.Reference.
func (t *Tracking) Tracking() candm.RpyPayloadTracking {
	t.mu.Lock()
	defer t.mu.Unlock()
	return candm.RpyPayloadTracking{
		RefID:   t.refID,
		Address: candm.NewIPAddr(t.address),
		Stratum: t.stratum,
	}
}
