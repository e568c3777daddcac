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

// Package cm is the command and monitoring core: the dispatcher and
// the per-opcode handlers that adapt wire requests onto the
// collaborators that actually own daemon state. Handlers hold no
// state of their own; every mutation and every report is delegated to
// one of the interfaces below.
package cm

import (
	"net"
	"time"

	"github.com/dutchanddutch/chrony/candm"
)

// SourceAddResult is the outcome of adding a source, mirroring the
// status codes a handler may need to surface.
type SourceAddResult int

// SourceAddResult values.
const (
	SourceAddOK SourceAddResult = iota
	SourceAddAlreadyKnown
	SourceAddTooMany
	SourceAddInvalidAF
)

// Sources is the NTP source registry collaborator.
type Sources interface {
	Add(addr net.IP, port uint16, peer bool, params candm.NTPSourceParams) SourceAddResult
	Remove(addr net.IP) bool
	TakeOnlineOffline(mask candm.AddressMask, online bool) bool
	Burst(mask candm.AddressMask, goodSamples, totalSamples int32) bool
	ModifyMinpoll(addr net.IP, value int16) bool
	ModifyMaxpoll(addr net.IP, value int16) bool
	ModifyMaxdelay(addr net.IP, value float64) bool
	ModifyMaxdelayRatio(addr net.IP, value float64) bool
	ModifyMaxdelayDevRatio(addr net.IP, value float64) bool
	ModifyMinstratum(addr net.IP, value int16) bool
	ModifyPolltarget(addr net.IP, value int16) bool
	Refresh(addr net.IP) bool
	NSources() int
	ReportByIndex(index int) (candm.RpyPayloadSourceData, bool)
	StatsByIndex(index int) (candm.RpyPayloadSourceStats, bool)
	Activity() candm.RpyPayloadActivity
}

// RefClocks is the reference-clock registry collaborator.
type RefClocks interface {
	ReportByIndex(index int) (candm.RpyPayloadRefclock, bool)
}

// LocalClock is the local-clock driver collaborator.
type LocalClock interface {
	AccumulateFrequency(ppm float64)
	AccumulateOffset(offset float64)
	MakeStep()
}

// Reference is the reference/tracking subsystem collaborator.
type Reference interface {
	ModifyMaxUpdateSkew(skew float64)
	ModifyMakestep(limit float64, threshold int32)
	SetLocal(enabled bool, stratum int32, distance float64)
	SetReselectDistance(distance float64)
	Reselect()
	Tracking() candm.RpyPayloadTracking
}

// ManualOption is the enable/disable/reset verb MANUAL accepts.
type ManualOption int32

// ManualOption values.
const (
	ManualDisable ManualOption = 0
	ManualEnable  ManualOption = 1
	ManualReset   ManualOption = 2
)

// Manual is the manual-timestamp-entry collaborator.
type Manual interface {
	SetOption(opt ManualOption)
	Enabled() bool
	Accept(ts time.Time, offset, peerDispersion float64) bool
	List() []candm.ManualSample
	Delete(index int32) bool
}

// SmoothOption is the reset/activate verb SMOOTHTIME accepts.
type SmoothOption int32

// SmoothOption values.
const (
	SmoothReset    SmoothOption = 0
	SmoothActivate SmoothOption = 1
)

// Smooth is the offset/frequency smoothing collaborator.
type Smooth interface {
	Enabled() bool
	Report() candm.RpyPayloadSmoothing
	Apply(opt SmoothOption)
}

// Rtc is the real-time-clock collaborator.
type Rtc interface {
	Present() bool
	Write() error
	Trim()
	Report() (candm.RpyPayloadRTC, error)
}

// ClientAccessReport is one page of rows from ClientLog, plus the
// bookkeeping CLIENT_ACCESSES_BY_INDEX needs to fill next_index and
// n_indices.
type ClientAccessReport struct {
	Active bool
	Total  int
	Rows   []candm.ClientAccess
}

// ClientLog accounts command and monitoring accesses for reporting and
// auditing, independent of the NTP client-log module.
type ClientLog interface {
	RecordAccess(remote net.IP)
	RecordBadPacket(remote net.IP)
	ReportByIndex(first, count uint32) ClientAccessReport
}

// Keys is the symmetric-key-table collaborator.
type Keys interface {
	Reload() error
}

// BindConfig reports where the transport manager should listen, per
// address family and for the filesystem socket.
type BindConfig interface {
	BindAddress4() net.IP
	BindAddress6() net.IP
	BindCmdPath() string
	CmdPort() int
}
