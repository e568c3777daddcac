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

// Package sources is a minimal in-memory implementation of the
// cm.Sources collaborator: a registry of NTP sources keyed by
// address, enough to exercise every ADD/DEL/MODIFY/reporting handler
// against real state without a full NTP engine.
package sources

import (
	"net"
	"sort"
	"sync"

	"github.com/dutchanddutch/chrony/candm"
	"github.com/dutchanddutch/chrony/cm"
)

const maxSources = 64

type source struct {
	addr    net.IP
	port    uint16
	peer    bool
	params  candm.NTPSourceParams
	online  bool
	state   candm.SourceState
	mode    candm.SourceMode
	reach   uint16
	stratum uint16
}

// Registry is an in-memory source table, safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	byAddr  map[string]*source
	order   []string // insertion order, indexed by report index
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{byAddr: make(map[string]*source)}
}

// Add implements cm.Sources.
func (r *Registry) Add(addr net.IP, port uint16, peer bool, params candm.NTPSourceParams) cm.SourceAddResult {
	if addr == nil {
		return cm.SourceAddInvalidAF
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := addr.String()
	if _, exists := r.byAddr[key]; exists {
		return cm.SourceAddAlreadyKnown
	}
	if len(r.order) >= maxSources {
		return cm.SourceAddTooMany
	}
	mode := candm.ModeClient
	if peer {
		mode = candm.ModePeer
	}
	r.byAddr[key] = &source{
		addr: addr, port: port, peer: peer, params: params,
		online: true, state: candm.SourceCandidate, mode: mode,
		stratum: params.MinStratum,
	}
	r.order = append(r.order, key)
	return cm.SourceAddOK
}

// Remove implements cm.Sources.
func (r *Registry) Remove(addr net.IP) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := addr.String()
	if _, ok := r.byAddr[key]; !ok {
		return false
	}
	delete(r.byAddr, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) find(addr net.IP) *source {
	return r.byAddr[addr.String()]
}

// TakeOnlineOffline implements cm.Sources.
func (r *Registry) TakeOnlineOffline(mask candm.AddressMask, online bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := false
	for _, s := range r.byAddr {
		if matchesMask(s.addr, mask) {
			s.online = online
			matched = true
		}
	}
	return matched
}

// Burst implements cm.Sources.
func (r *Registry) Burst(mask candm.AddressMask, goodSamples, totalSamples int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := false
	for _, s := range r.byAddr {
		if matchesMask(s.addr, mask) {
			matched = true
		}
	}
	return matched
}

func matchesMask(addr net.IP, mask candm.AddressMask) bool {
	maskIP := mask.Mask.ToNetIP()
	patternIP := mask.Address.ToNetIP()
	if maskIP == nil || patternIP == nil {
		return true // an all-zero mask/address pattern matches every source
	}
	a4, p4, m4 := addr.To4(), patternIP.To4(), maskIP.To4()
	if a4 == nil || p4 == nil || m4 == nil {
		return addr.Equal(patternIP)
	}
	for i := range a4 {
		if a4[i]&m4[i] != p4[i]&m4[i] {
			return false
		}
	}
	return true
}

func (r *Registry) modify(addr net.IP, f func(*source)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.find(addr)
	if s == nil {
		return false
	}
	f(s)
	return true
}

// ModifyMinpoll implements cm.Sources.
func (r *Registry) ModifyMinpoll(addr net.IP, v int16) bool {
	return r.modify(addr, func(s *source) { s.params.MinPoll = v })
}

// ModifyMaxpoll implements cm.Sources.
func (r *Registry) ModifyMaxpoll(addr net.IP, v int16) bool {
	return r.modify(addr, func(s *source) { s.params.MaxPoll = v })
}

// ModifyMaxdelay implements cm.Sources.
func (r *Registry) ModifyMaxdelay(addr net.IP, v float64) bool {
	return r.modify(addr, func(s *source) { s.params.MaxDelay = candm.EncodeFloat(v) })
}

// ModifyMaxdelayRatio implements cm.Sources.
func (r *Registry) ModifyMaxdelayRatio(addr net.IP, v float64) bool {
	return r.modify(addr, func(s *source) { s.params.MaxDelayRatio = candm.EncodeFloat(v) })
}

// ModifyMaxdelayDevRatio implements cm.Sources.
func (r *Registry) ModifyMaxdelayDevRatio(addr net.IP, v float64) bool {
	return r.modify(addr, func(s *source) { s.params.MaxDelayDevRatio = candm.EncodeFloat(v) })
}

// ModifyMinstratum implements cm.Sources.
func (r *Registry) ModifyMinstratum(addr net.IP, v int16) bool {
	return r.modify(addr, func(s *source) { s.params.MinStratum = uint16(v) })
}

// ModifyPolltarget implements cm.Sources.
func (r *Registry) ModifyPolltarget(addr net.IP, v int16) bool {
	return r.modify(addr, func(s *source) { s.params.PollTarget = v })
}

// Refresh implements cm.Sources.
func (r *Registry) Refresh(addr net.IP) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(addr) != nil
}

// NSources implements cm.Sources.
func (r *Registry) NSources() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func (r *Registry) byIndex(index int) *source {
	if index < 0 || index >= len(r.order) {
		return nil
	}
	return r.byAddr[r.order[index]]
}

// ReportByIndex implements cm.Sources.
func (r *Registry) ReportByIndex(index int) (candm.RpyPayloadSourceData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byIndex(index)
	if s == nil {
		return candm.RpyPayloadSourceData{}, false
	}
	return candm.RpyPayloadSourceData{
		Address:      candm.NewIPAddr(s.addr),
		Poll:         s.params.MinPoll,
		Stratum:      s.stratum,
		State:        s.state,
		Mode:         s.mode,
		Reachability: s.reach,
	}, true
}

// StatsByIndex implements cm.Sources.
func (r *Registry) StatsByIndex(index int) (candm.RpyPayloadSourceStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.byIndex(index)
	if s == nil {
		return candm.RpyPayloadSourceStats{}, false
	}
	return candm.RpyPayloadSourceStats{Address: candm.NewIPAddr(s.addr)}, true
}

// Activity implements cm.Sources.
func (r *Registry) Activity() candm.RpyPayloadActivity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var act candm.RpyPayloadActivity
	for _, s := range r.byAddr {
		if s.online {
			act.Online++
		} else {
			act.Offline++
		}
	}
	return act
}

// Addresses returns every registered address, sorted, for tests and
// diagnostics.
func (r *Registry) Addresses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}
