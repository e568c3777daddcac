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

package cm_test

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/dutchanddutch/chrony/access"
	"github.com/dutchanddutch/chrony/candm"
	"github.com/dutchanddutch/chrony/cm"
	"github.com/dutchanddutch/chrony/cmstats"
	"github.com/dutchanddutch/chrony/internal/clientlog"
	"github.com/dutchanddutch/chrony/internal/keys"
	"github.com/dutchanddutch/chrony/internal/localclock"
	"github.com/dutchanddutch/chrony/internal/manual"
	"github.com/dutchanddutch/chrony/internal/refclock"
	"github.com/dutchanddutch/chrony/internal/reference"
	"github.com/dutchanddutch/chrony/internal/rtc"
	"github.com/dutchanddutch/chrony/internal/smooth"
	"github.com/dutchanddutch/chrony/internal/sources"
	"github.com/dutchanddutch/chrony/transport"
)

// unixClient is a raw datagram socket standing in for a command-line
// client talking to the filesystem socket.
type unixClient struct {
	fd   int
	path string
}

func newUnixClient(t *testing.T) *unixClient {
	t.Helper()
	path := filepath.Join(t.TempDir(), "client.sock")
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_DGRAM, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrUnix{Name: path}))
	tv := unix.Timeval{Sec: 1}
	require.NoError(t, unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv))
	t.Cleanup(func() { unix.Close(fd) })
	return &unixClient{fd: fd, path: path}
}

func (c *unixClient) sockaddr() unix.Sockaddr {
	return &unix.SockaddrUnix{Name: c.path}
}

// recv reads one datagram, or returns ok=false if the read times out.
func (c *unixClient) recv() (buf []byte, ok bool) {
	b := make([]byte, 2048)
	n, _, err := unix.Recvfrom(c.fd, b, 0)
	if err != nil {
		return nil, false
	}
	return b[:n], true
}

type harness struct {
	d         *cm.Dispatcher
	tm        *transport.Manager
	srcs      *sources.Registry
	refClocks *refclock.Registry
	manual    *manual.Engine
	clientLog *clientlog.Log
	client    *unixClient
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srvPath := filepath.Join(t.TempDir(), "chronyd-cm.sock")
	unixSock, err := transport.OpenLocalSocket(srvPath)
	require.NoError(t, err)
	t.Cleanup(func() { unixSock.Close() })

	tm := &transport.Manager{Unix: unixSock}
	stats := cmstats.New()

	h := &harness{
		tm:        tm,
		srcs:      sources.New(),
		refClocks: refclock.New(),
		manual:    manual.New(),
		clientLog: clientlog.New(8),
		client:    newUnixClient(t),
	}
	collab := cm.Collaborators{
		Sources:    h.srcs,
		RefClocks:  h.refClocks,
		LocalClock: localclock.New(),
		Reference:  reference.New(),
		Manual:     h.manual,
		Smooth:     smooth.New(false),
		Rtc:        rtc.New("", false),
		ClientLog:  h.clientLog,
		Keys:       keys.New(""),
	}
	h.d = cm.New(collab, tm, stats)
	h.d.Init()
	return h
}

// sendAndRecv builds a request, routes it through HandlePacket as if
// it had arrived on the filesystem socket, and returns the decoded
// reply.
func (h *harness) sendAndRecv(t *testing.T, op candm.Opcode, seq uint32, payload any) (candm.ReplyHeader, any) {
	t.Helper()
	hdr := candm.RequestHeader{Version: candm.ProtocolVersion, PktType: candm.PktRequest, Command: op, Sequence: seq}
	buf, err := candm.EncodeRequest(hdr, payload)
	require.NoError(t, err)

	h.d.HandlePacket(transport.Packet{
		Origin:    transport.OriginUnix,
		Data:      buf,
		ReplyAddr: h.client.sockaddr(),
	})

	raw, ok := h.client.recv()
	require.Truef(t, ok, "no reply received for opcode %s", op)
	replyHdr, replyPayload, err := candm.DecodeReply(raw)
	require.NoError(t, err)
	return replyHdr, replyPayload
}

func TestRclocksReportByIndex(t *testing.T) {
	h := newHarness(t)

	hdr, _ := h.sendAndRecv(t, candm.OpRclocks, 1, &candm.ReqIndex{Index: 0})
	require.Equal(t, candm.StNoSuchSource, hdr.Status, "unset refclock index must report no-such-source")

	h.refClocks.Set(0, candm.RpyPayloadRefclock{RefID: 1, NSamples: 4})
	hdr2, p := h.sendAndRecv(t, candm.OpRclocks, 2, &candm.ReqIndex{Index: 0})
	require.Equal(t, candm.StSuccess, hdr2.Status)
	require.Equal(t, &candm.RpyPayloadRefclock{RefID: 1, NSamples: 4}, p)
}

func TestRekeyReloadsKeys(t *testing.T) {
	h := newHarness(t)

	hdr, _ := h.sendAndRecv(t, candm.OpRekey, 1, &struct{}{})
	require.Equal(t, candm.StSuccess, hdr.Status, "REKEY with no configured key file must still succeed")
}

func TestNSourcesAfterAddServer(t *testing.T) {
	h := newHarness(t)

	_, p := h.sendAndRecv(t, candm.OpAddServer, 1, &candm.ReqSourceAdd{
		Address: candm.NewIPAddr(net.ParseIP("192.0.2.10")),
		Port:    123,
		Params:  candm.NTPSourceParams{MinPoll: 6, MaxPoll: 10},
	})
	require.Equal(t, &struct{}{}, p)

	hdr, p2 := h.sendAndRecv(t, candm.OpNSources, 2, &struct{}{})
	require.Equal(t, candm.StSuccess, hdr.Status)
	require.Equal(t, &candm.RpyPayloadNSources{NSources: 1}, p2)
}

func TestUnauthorizedRemoteModifyNeverCallsSources(t *testing.T) {
	srvSock, err := transport.ListenInet4(net.IPv4(127, 0, 0, 1), 0)
	require.NoError(t, err)
	t.Cleanup(func() { srvSock.Close() })
	tm := &transport.Manager{Inet4: srvSock}
	stats := cmstats.New()
	srcs := sources.New()
	collab := cm.Collaborators{Sources: srcs, ClientLog: clientlog.New(4)}
	d := cm.New(collab, tm, stats)
	// Allow the remote through the CIDR table so the permission check,
	// not the CIDR filter, is what rejects it.
	_, remoteNet, _ := net.ParseCIDR("203.0.113.5/32")
	d.CmdAccess().Add(remoteNet, access.DecisionAllow, false)
	d.Init()

	remote := net.ParseIP("203.0.113.5")
	hdr := candm.RequestHeader{Version: candm.ProtocolVersion, PktType: candm.PktRequest, Command: candm.OpDelSource, Sequence: 5}
	buf, err := candm.EncodeRequest(hdr, &candm.ReqAddress{Address: candm.NewIPAddr(net.ParseIP("192.0.2.10"))})
	require.NoError(t, err)

	d.HandlePacket(transport.Packet{
		Origin:    transport.OriginInet4,
		Remote:    remote,
		Data:      buf,
		ReplyAddr: &unix.SockaddrInet4{Port: 40000, Addr: [4]byte{127, 0, 0, 1}},
	})

	require.Equal(t, 0, srcs.NSources(), "an unauthorized request must never reach the collaborator")
	require.False(t, srcs.Remove(net.ParseIP("192.0.2.10")))
}

func TestBadVersion(t *testing.T) {
	h := newHarness(t)

	hdr := candm.RequestHeader{Version: candm.ProtocolVersion - 1, PktType: candm.PktRequest, Command: candm.OpNSources, Sequence: 9}
	buf, err := candm.EncodeRequest(hdr, &struct{}{})
	require.NoError(t, err)
	h.d.HandlePacket(transport.Packet{Origin: transport.OriginUnix, Data: buf, ReplyAddr: h.client.sockaddr()})

	if candm.ProtocolVersion-1 >= candm.CompatibilityFloor {
		raw, ok := h.client.recv()
		require.True(t, ok)
		replyHdr, _, err := candm.DecodeReply(raw)
		require.NoError(t, err)
		require.Equal(t, candm.StBadPacketVersion, replyHdr.Status)
	}

	hdrOld := candm.RequestHeader{Version: candm.CompatibilityFloor - 1, PktType: candm.PktRequest, Command: candm.OpNSources, Sequence: 10}
	bufOld, err := candm.EncodeRequest(hdrOld, &struct{}{})
	require.NoError(t, err)
	h.d.HandlePacket(transport.Packet{Origin: transport.OriginUnix, Data: bufOld, ReplyAddr: h.client.sockaddr()})
	_, ok := h.client.recv()
	require.False(t, ok, "packets below the compatibility floor must be dropped silently")
}

func TestSettimeWhileManualDisabled(t *testing.T) {
	h := newHarness(t)
	require.False(t, h.manual.Enabled())

	hdr, _ := h.sendAndRecv(t, candm.OpSettime, 3, &candm.ReqSettime{Ts: candm.NewTimestamp(time.Now())})
	require.Equal(t, candm.StNotEnabled, hdr.Status)
}

func TestClientAccessesByIndexPaging(t *testing.T) {
	h := newHarness(t)
	h.clientLog.RecordAccess(net.ParseIP("192.0.2.2"))
	h.clientLog.RecordAccess(net.ParseIP("192.0.2.2"))
	for i := 0; i < 3; i++ {
		h.clientLog.RecordAccess(net.ParseIP("192.0.2.2"))
	}
	h.clientLog.RecordAccess(net.ParseIP("192.0.2.5"))

	hdr, p := h.sendAndRecv(t, candm.OpClientAccessesByIndex, 4, &candm.ReqClientAccessesByIndex{FirstIndex: 0, NClients: 8})
	require.Equal(t, candm.StSuccess, hdr.Status)
	reply := p.(*candm.RpyPayloadClientAccesses)
	require.EqualValues(t, 8, reply.NextIndex)
	require.EqualValues(t, 8, reply.NIndices)
}

func TestCIDRDeniedDropsSilently(t *testing.T) {
	srvSock, err := transport.ListenInet4(net.IPv4(127, 0, 0, 1), 0)
	require.NoError(t, err)
	t.Cleanup(func() { srvSock.Close() })
	tm := &transport.Manager{Inet4: srvSock}
	stats := cmstats.New()
	clog := clientlog.New(4)
	d := cm.New(cm.Collaborators{Sources: sources.New(), ClientLog: clog}, tm, stats)
	d.Init() // cmdAccess defaults to deny-all with no entries

	remote := net.ParseIP("198.51.100.9")
	hdr := candm.RequestHeader{Version: candm.ProtocolVersion, PktType: candm.PktRequest, Command: candm.OpNSources, Sequence: 1}
	buf, err := candm.EncodeRequest(hdr, &struct{}{})
	require.NoError(t, err)

	d.HandlePacket(transport.Packet{
		Origin:    transport.OriginInet4,
		Remote:    remote,
		Data:      buf,
		ReplyAddr: &unix.SockaddrInet4{Port: 40000, Addr: [4]byte{127, 0, 0, 1}},
	})

	require.Zero(t, clog.ReportByIndex(0, 8).Rows, "a CIDR-denied packet must never reach ClientLog.RecordAccess")
}
