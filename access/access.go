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

// Package access implements the C/M namespace's layered authorization
// policy: transport trust, loopback recognition, a CIDR allow/deny
// table, and the per-opcode permission check.
//
// The CIDR table itself is built directly on net.IPNet: no library in
// the example pack offers a CIDR trie or ACL table (grepping the whole
// pack for "CIDR"/"IPNet" turns up nothing reusable), so this is one
// of the few places this repository reaches for the standard library
// over a third-party dependency — see DESIGN.md.
package access

import (
	"net"
	"sync"

	"github.com/dutchanddutch/chrony/candm"
)

// Trust is the transport-origin trust level of a received packet, per
// incoming packet.
type Trust int

// Trust values, in increasing order of privilege.
const (
	TrustRemote Trust = iota
	TrustLocal
	TrustFilesystem
)

// Decision is the outcome of a CIDR table lookup.
type Decision int

// Decision values.
const (
	DecisionDeny Decision = iota
	DecisionAllow
)

// entry is one row of the CIDR table: a subnet and whether it is
// allowed, plus whether it was inserted via the "-all" (allow-all /
// deny-all) variant.
type entry struct {
	subnet  *net.IPNet
	decide  Decision
	allSubs bool
}

// subnetContains reports whether inner lies entirely within outer:
// same address family, inner's prefix at least as specific as outer's,
// and outer's network contains inner's base address.
func subnetContains(outer, inner *net.IPNet) bool {
	outerOnes, outerBits := outer.Mask.Size()
	innerOnes, innerBits := inner.Mask.Size()
	if outerBits != innerBits || innerOnes < outerOnes {
		return false
	}
	return outer.Contains(inner.IP)
}

// Table is a CIDR-keyed allow/deny table for one namespace (NTP client
// access or C/M access are two independently configured instances).
// Safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries []entry
	// defaultDecision is returned when no entry matches.
	defaultDecision Decision
}

// NewTable creates an access table that denies by default, matching
// chronyd's historical default of denying cmdaccess to everyone but
// localhost.
func NewTable() *Table {
	return &Table{defaultDecision: DecisionDeny}
}

// Add inserts (or replaces) a subnet's decision. all marks the
// allow-all/deny-all variant: unlike a plain allow/deny, which only
// governs the exact subnet named, it also subsumes (removes) any
// more-specific subnet already recorded beneath it, so the broader
// rule becomes the sole authority over that range — matching chronyd's
// "allowall"/"denyall" directives, which override narrower exceptions
// nested inside the subnet they target.
func (t *Table) Add(subnet *net.IPNet, decision Decision, all bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if all {
		kept := t.entries[:0]
		for _, e := range t.entries {
			if !subnetContains(subnet, e.subnet) {
				kept = append(kept, e)
			}
		}
		t.entries = kept
	}
	for i := range t.entries {
		if t.entries[i].subnet.String() == subnet.String() {
			t.entries[i].decide = decision
			t.entries[i].allSubs = all
			return
		}
	}
	t.entries = append(t.entries, entry{subnet: subnet, decide: decision, allSubs: all})
}

// Check returns whether ip is allowed. The most specific matching
// subnet wins; ties are broken by most-recently-added.
func (t *Table) Check(ip net.IP) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	best := -1
	bestOnes := -1
	for i, e := range t.entries {
		if !e.subnet.Contains(ip) {
			continue
		}
		ones, _ := e.subnet.Mask.Size()
		if ones >= bestOnes {
			bestOnes = ones
			best = i
		}
	}
	if best == -1 {
		return t.defaultDecision == DecisionAllow
	}
	return t.entries[best].decide == DecisionAllow
}

// ClassifyTrust determines a packet's trust level from the socket it
// arrived on and (for IP sockets) its source address.
func ClassifyTrust(fromFilesystemSocket bool, remote net.IP) Trust {
	if fromFilesystemSocket {
		return TrustFilesystem
	}
	if remote != nil && remote.IsLoopback() {
		return TrustLocal
	}
	return TrustRemote
}

// Allowed applies the full layered decision rule: filesystem and
// local origins always pass; everything else must be allowed by the
// CIDR table.
func Allowed(trust Trust, remote net.IP, table *Table) bool {
	if trust != TrustRemote {
		return true
	}
	return table.Check(remote)
}

// PermissionCheck compares the opcode's static permission class
// against the packet's trust level.
func PermissionCheck(trust Trust, op candm.Opcode) bool {
	switch candm.Permission(op) {
	case candm.PermAuth:
		return trust == TrustFilesystem
	case candm.PermLocal:
		return trust == TrustLocal || trust == TrustFilesystem
	default: // PermOpen
		return true
	}
}
