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

package cm

import (
	"net"

	log "github.com/sirupsen/logrus"

	"github.com/dutchanddutch/chrony/access"
	"github.com/dutchanddutch/chrony/candm"
	"github.com/dutchanddutch/chrony/cmstats"
	"github.com/dutchanddutch/chrony/transport"
)

// Collaborators bundles every external interface a handler may call
// into. It is assembled once, at daemon startup, and handed to Init.
type Collaborators struct {
	Sources    Sources
	RefClocks  RefClocks
	LocalClock LocalClock
	Reference  Reference
	Manual     Manual
	Smooth     Smooth
	Rtc        Rtc
	ClientLog  ClientLog
	Keys       Keys
}

// Dispatcher is the long-lived command and monitoring core: the
// single state object that owns the access table, the transport
// manager, and the collaborator bundle, and routes validated requests
// to their handlers. A process creates exactly one; re-entrant Init
// is a programming error.
type Dispatcher struct {
	collab    Collaborators
	transport *transport.Manager
	ntpAccess *access.Table
	cmdAccess *access.Table
	stats     *cmstats.Stats

	inited bool
}

// New creates an uninitialized Dispatcher. Call Init before handing it
// packets via HandlePacket.
func New(collab Collaborators, tm *transport.Manager, stats *cmstats.Stats) *Dispatcher {
	return &Dispatcher{
		collab:    collab,
		transport: tm,
		ntpAccess: access.NewTable(),
		cmdAccess: access.NewTable(),
		stats:     stats,
	}
}

// Init marks the dispatcher ready to accept packets. Calling Init
// twice on the same Dispatcher is a programming error.
func (d *Dispatcher) Init() {
	if d.inited {
		panic("cm: Dispatcher.Init called twice")
	}
	d.inited = true
}

// CmdAccess returns the C/M-namespace CIDR table (CMDALLOW/CMDDENY).
func (d *Dispatcher) CmdAccess() *access.Table { return d.cmdAccess }

// NtpAccess returns the NTP-namespace CIDR table (ALLOW/DENY).
func (d *Dispatcher) NtpAccess() *access.Table { return d.ntpAccess }

// HandlePacket runs the full validation pipeline against pkt and, if
// it survives, dispatches to the opcode's handler and sends exactly
// one reply. It implements the dispatcher's validation pipeline.
func (d *Dispatcher) HandlePacket(pkt transport.Packet) {
	trust := access.ClassifyTrust(pkt.Origin.IsFilesystem(), pkt.Remote)

	if trust == access.TrustRemote && !access.Allowed(trust, pkt.Remote, d.cmdAccess) {
		if d.stats != nil {
			d.stats.AccessDenied.Inc()
		}
		return
	}

	if len(pkt.Data) < candm.RequestHeaderSize {
		d.badPacket(pkt.Remote)
		return
	}
	hdr, err := candm.DecodeRequestHeader(pkt.Data)
	if err != nil {
		d.badPacket(pkt.Remote)
		return
	}

	expectedLen := 0
	if hdr.Command.Valid() {
		expectedLen = candm.RequestLength(hdr.Command)
	}

	if len(pkt.Data) < candm.ReplyHeaderSize || hdr.PktType != candm.PktRequest || hdr.Res1 != 0 || hdr.Res2 != 0 {
		d.badPacket(pkt.Remote)
		return
	}

	if hdr.Version != candm.ProtocolVersion {
		d.badPacket(pkt.Remote)
		if hdr.Version >= candm.CompatibilityFloor {
			d.reply(pkt, hdr, candm.RpyNull, candm.StBadPacketVersion, nil)
		}
		return
	}

	if !hdr.Command.Valid() {
		d.reply(pkt, hdr, candm.RpyNull, candm.StInvalid, nil)
		return
	}

	if len(pkt.Data) < expectedLen {
		d.reply(pkt, hdr, candm.RpyNull, candm.StBadPacketLength, nil)
		return
	}

	if !access.PermissionCheck(trust, hdr.Command) {
		d.reply(pkt, hdr, candm.RpyNull, candm.StUnauthorized, nil)
		return
	}

	payload, err := candm.DecodeRequestPayload(hdr.Command, pkt.Data[candm.RequestHeaderSize:])
	if err != nil {
		d.badPacket(pkt.Remote)
		return
	}

	if d.collab.ClientLog != nil {
		d.collab.ClientLog.RecordAccess(pkt.Remote)
	}

	h := handlerTable[hdr.Command]
	if h == nil {
		log.WithField("opcode", hdr.Command).Error("cm: opcode has no registered handler")
		d.reply(pkt, hdr, candm.RpyNull, candm.StFailed, nil)
		return
	}

	tag, status, replyPayload := h(d, payload, pkt.Remote)
	d.reply(pkt, hdr, tag, status, replyPayload)
}

func (d *Dispatcher) badPacket(remote net.IP) {
	if d.stats != nil {
		d.stats.BadPackets.Inc()
	}
	if d.collab.ClientLog != nil {
		d.collab.ClientLog.RecordBadPacket(remote)
	}
}

func (d *Dispatcher) reply(pkt transport.Packet, reqHdr candm.RequestHeader, tag candm.ReplyTag, status candm.Status, payload any) {
	hdr := candm.NewReplyHeader(reqHdr.Command, reqHdr.Sequence)
	hdr.Reply = tag
	hdr.Status = status
	buf, err := candm.EncodeReply(hdr, payload)
	if err != nil {
		log.WithError(err).WithField("opcode", reqHdr.Command).Error("cm: failed to encode reply")
		return
	}
	if err := d.transport.Reply(pkt.Origin, pkt.ReplyAddr, buf); err != nil {
		log.WithError(err).WithField("opcode", reqHdr.Command).Warn("cm: failed to send reply")
	}
	if d.stats != nil {
		d.stats.ObserveReply(reqHdr.Command, status)
	}
}

