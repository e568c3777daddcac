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

// Package clientlog is a minimal in-memory implementation of the
// cm.ClientLog collaborator: a fixed-size table of per-client access
// counters, reported a page at a time by CLIENT_ACCESSES_BY_INDEX.
package clientlog

import (
	"net"
	"sync"

	"github.com/dutchanddutch/chrony/candm"
	"github.com/dutchanddutch/chrony/cm"
)

type row struct {
	addr    net.IP
	ntpHits uint32
	cmdHits uint32
	present bool
}

// Log is a fixed-capacity, index-addressed access table. An inactive
// Log (capacity 0) reports ClientAccessReport{Active: false}.
type Log struct {
	mu        sync.Mutex
	rows      []row
	byAddr    map[string]int
	badPacket uint64
}

// New creates a Log with room for capacity distinct clients. A
// capacity of zero models the table being compiled out / disabled.
func New(capacity int) *Log {
	return &Log{rows: make([]row, capacity), byAddr: make(map[string]int)}
}

// RecordAccess implements cm.ClientLog.
func (l *Log) RecordAccess(remote net.IP) {
	if remote == nil || len(l.rows) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.byAddr[remote.String()]
	if !ok {
		idx = l.allocate(remote)
		if idx < 0 {
			return
		}
	}
	l.rows[idx].cmdHits++
}

// allocate finds a free slot for addr, evicting nothing: once full,
// new clients are simply not tracked. Caller holds l.mu.
func (l *Log) allocate(addr net.IP) int {
	for i := range l.rows {
		if !l.rows[i].present {
			l.rows[i] = row{addr: addr, present: true}
			l.byAddr[addr.String()] = i
			return i
		}
	}
	return -1
}

// RecordBadPacket implements cm.ClientLog.
func (l *Log) RecordBadPacket(remote net.IP) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.badPacket++
}

// BadPacketCount returns how many bad packets were recorded, for
// tests and metrics.
func (l *Log) BadPacketCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.badPacket
}

// ReportByIndex implements cm.ClientLog.
func (l *Log) ReportByIndex(first, count uint32) cm.ClientAccessReport {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.rows) == 0 {
		return cm.ClientAccessReport{Active: false}
	}
	report := cm.ClientAccessReport{Active: true, Total: len(l.rows)}
	for i := first; i < first+count && int(i) < len(l.rows); i++ {
		r := l.rows[i]
		if !r.present {
			continue
		}
		report.Rows = append(report.Rows, candm.ClientAccess{
			Address: candm.NewIPAddr(r.addr),
			NTPHits: r.ntpHits,
			CmdHits: r.cmdHits,
		})
	}
	return report
}
