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

	"github.com/dutchanddutch/chrony/access"
	"github.com/dutchanddutch/chrony/candm"
)

// handlerFunc is the shape every opcode handler implements: decode
// already happened, the collaborator call happens here, and the
// return values become the reply's tag, status and payload.
type handlerFunc func(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any)

var handlerTable [candm.NumOpcodes]handlerFunc

func init() {
	handlerTable[candm.OpNull] = handleNull
	handlerTable[candm.OpDump] = handleDump
	handlerTable[candm.OpCycleLogs] = handleCycleLogs
	handlerTable[candm.OpLogon] = handleLogon

	handlerTable[candm.OpAddServer] = handleAddSource(false)
	handlerTable[candm.OpAddPeer] = handleAddSource(true)
	handlerTable[candm.OpDelSource] = handleDelSource

	handlerTable[candm.OpOnline] = handleOnlineOffline(true)
	handlerTable[candm.OpOffline] = handleOnlineOffline(false)
	handlerTable[candm.OpBurst] = handleBurst

	handlerTable[candm.OpModifyMinpoll] = handleModifyAddrInt32(sourcesOps.ModifyMinpoll)
	handlerTable[candm.OpModifyMaxpoll] = handleModifyAddrInt32(sourcesOps.ModifyMaxpoll)
	handlerTable[candm.OpModifyMinstratum] = handleModifyAddrInt32(sourcesOps.ModifyMinstratum)
	handlerTable[candm.OpModifyPolltarget] = handleModifyAddrInt32(sourcesOps.ModifyPolltarget)
	handlerTable[candm.OpModifyMaxdelay] = handleModifyAddrFloat(sourcesOps.ModifyMaxdelay)
	handlerTable[candm.OpModifyMaxdelayratio] = handleModifyAddrFloat(sourcesOps.ModifyMaxdelayRatio)
	handlerTable[candm.OpModifyMaxdelaydevratio] = handleModifyAddrFloat(sourcesOps.ModifyMaxdelayDevRatio)

	handlerTable[candm.OpRefresh] = handleRefresh
	handlerTable[candm.OpRekey] = handleRekey

	handlerTable[candm.OpModifyMaxupdateskew] = handleModifyMaxupdateskew
	handlerTable[candm.OpModifyMakestep] = handleModifyMakestep
	handlerTable[candm.OpLocal] = handleLocal
	handlerTable[candm.OpReselect] = handleReselect
	handlerTable[candm.OpReselectDistance] = handleReselectDistance
	handlerTable[candm.OpTracking] = handleTracking

	handlerTable[candm.OpSettime] = handleSettime
	handlerTable[candm.OpDfreq] = handleDfreq
	handlerTable[candm.OpDoffset] = handleDoffset
	handlerTable[candm.OpMakestep] = handleMakestep

	handlerTable[candm.OpNSources] = handleNSources
	handlerTable[candm.OpSourceData] = handleSourceData
	handlerTable[candm.OpSourceStats] = handleSourceStats
	handlerTable[candm.OpRTCReport] = handleRTCReport
	handlerTable[candm.OpRclocks] = handleRclocks
	handlerTable[candm.OpActivity] = handleActivity
	handlerTable[candm.OpSmoothing] = handleSmoothing
	handlerTable[candm.OpSmoothTime] = handleSmoothTime
	handlerTable[candm.OpManualList] = handleManualList
	handlerTable[candm.OpManualDelete] = handleManualDelete
	handlerTable[candm.OpManual] = handleManual
	handlerTable[candm.OpClientAccessesByIndex] = handleClientAccessesByIndex

	handlerTable[candm.OpAllow] = handleAccessSubnet(false, access.DecisionAllow, false)
	handlerTable[candm.OpAllowAll] = handleAccessSubnet(false, access.DecisionAllow, true)
	handlerTable[candm.OpDeny] = handleAccessSubnet(false, access.DecisionDeny, false)
	handlerTable[candm.OpDenyAll] = handleAccessSubnet(false, access.DecisionDeny, true)
	handlerTable[candm.OpCmdAllow] = handleAccessSubnet(true, access.DecisionAllow, false)
	handlerTable[candm.OpCmdAllowAll] = handleAccessSubnet(true, access.DecisionAllow, true)
	handlerTable[candm.OpCmdDeny] = handleAccessSubnet(true, access.DecisionDeny, false)
	handlerTable[candm.OpCmdDenyAll] = handleAccessSubnet(true, access.DecisionDeny, true)
	handlerTable[candm.OpACheck] = handleACheck(false)
	handlerTable[candm.OpCmdACheck] = handleACheck(true)

	handlerTable[candm.OpWriteRTC] = handleWriteRTC
	handlerTable[candm.OpTrimRTC] = handleTrimRTC

	for op := candm.Opcode(0); op < candm.NumOpcodes; op++ {
		if handlerTable[op] == nil {
			panic("cm: opcode " + op.String() + " has no registered handler")
		}
	}
}

// sourcesOps exists purely so the four MODIFY_* int32 opcodes and the
// three MODIFY_* float opcodes can share one adapter each, keyed by a
// method value, instead of seven near-identical handler bodies.
type sourcesOps struct{}

func (sourcesOps) ModifyMinpoll(s Sources, addr net.IP, v int32) bool { return s.ModifyMinpoll(addr, int16(v)) }
func (sourcesOps) ModifyMaxpoll(s Sources, addr net.IP, v int32) bool { return s.ModifyMaxpoll(addr, int16(v)) }
func (sourcesOps) ModifyMinstratum(s Sources, addr net.IP, v int32) bool {
	return s.ModifyMinstratum(addr, int16(v))
}
func (sourcesOps) ModifyPolltarget(s Sources, addr net.IP, v int32) bool {
	return s.ModifyPolltarget(addr, int16(v))
}
func (sourcesOps) ModifyMaxdelay(s Sources, addr net.IP, v float64) bool {
	return s.ModifyMaxdelay(addr, v)
}
func (sourcesOps) ModifyMaxdelayRatio(s Sources, addr net.IP, v float64) bool {
	return s.ModifyMaxdelayRatio(addr, v)
}
func (sourcesOps) ModifyMaxdelayDevRatio(s Sources, addr net.IP, v float64) bool {
	return s.ModifyMaxdelayDevRatio(addr, v)
}

func handleNull(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpyNull, candm.StSuccess, nil
}

func handleDump(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpyNull, candm.StSuccess, nil
}

func handleCycleLogs(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpyNull, candm.StSuccess, nil
}

// handleLogon always fails: authentication was removed, but the
// opcode is kept reachable so old clients get a clean rejection
// instead of an INVALID reply.
func handleLogon(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpyNull, candm.StFailed, nil
}

func handleAddSource(peer bool) handlerFunc {
	return func(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
		r := req.(*candm.ReqSourceAdd)
		addr := r.Address.ToNetIP()
		if addr == nil {
			return candm.RpyNull, candm.StInvalidAF, nil
		}
		switch d.collab.Sources.Add(addr, r.Port, peer, r.Params) {
		case SourceAddOK:
			return candm.RpyNull, candm.StSuccess, nil
		case SourceAddAlreadyKnown:
			return candm.RpyNull, candm.StSourceAlreadyKnown, nil
		case SourceAddTooMany:
			return candm.RpyNull, candm.StTooManySources, nil
		default:
			return candm.RpyNull, candm.StInvalidAF, nil
		}
	}
}

func handleDelSource(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqAddress)
	if !d.collab.Sources.Remove(r.Address.ToNetIP()) {
		return candm.RpyNull, candm.StNoSuchSource, nil
	}
	return candm.RpyNull, candm.StSuccess, nil
}

func handleOnlineOffline(online bool) handlerFunc {
	return func(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
		r := req.(*candm.ReqAddressMask)
		if !d.collab.Sources.TakeOnlineOffline(r.AddressMask, online) {
			return candm.RpyNull, candm.StNoSuchSource, nil
		}
		return candm.RpyNull, candm.StSuccess, nil
	}
}

func handleBurst(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqBurst)
	if !d.collab.Sources.Burst(r.AddressMask, r.NGoodSamples, r.NTotalSamples) {
		return candm.RpyNull, candm.StNoSuchSource, nil
	}
	return candm.RpyNull, candm.StSuccess, nil
}

func handleModifyAddrInt32(op func(sourcesOps, Sources, net.IP, int32) bool) handlerFunc {
	return func(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
		r := req.(*candm.ReqModifyAddrInt32)
		if !op(sourcesOps{}, d.collab.Sources, r.Address.ToNetIP(), r.Value) {
			return candm.RpyNull, candm.StNoSuchSource, nil
		}
		return candm.RpyNull, candm.StSuccess, nil
	}
}

func handleModifyAddrFloat(op func(sourcesOps, Sources, net.IP, float64) bool) handlerFunc {
	return func(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
		r := req.(*candm.ReqModifyAddrFloat)
		if !op(sourcesOps{}, d.collab.Sources, r.Address.ToNetIP(), r.Value.ToFloat()) {
			return candm.RpyNull, candm.StNoSuchSource, nil
		}
		return candm.RpyNull, candm.StSuccess, nil
	}
}

func handleRefresh(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqAddress)
	if !d.collab.Sources.Refresh(r.Address.ToNetIP()) {
		return candm.RpyNull, candm.StNoSuchSource, nil
	}
	return candm.RpyNull, candm.StSuccess, nil
}

// handleRekey reloads the symmetric-key table. The wire request carries
// no address: REKEY re-reads the whole key file, it doesn't re-key one
// source.
func handleRekey(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	if err := d.collab.Keys.Reload(); err != nil {
		return candm.RpyNull, candm.StFailed, nil
	}
	return candm.RpyNull, candm.StSuccess, nil
}

func handleModifyMaxupdateskew(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqModifyMaxupdateskew)
	d.collab.Reference.ModifyMaxUpdateSkew(r.Value.ToFloat())
	return candm.RpyNull, candm.StSuccess, nil
}

func handleModifyMakestep(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqModifyMakestep)
	d.collab.Reference.ModifyMakestep(r.Limit.ToFloat(), r.Threshold)
	return candm.RpyNull, candm.StSuccess, nil
}

func handleLocal(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqLocal)
	d.collab.Reference.SetLocal(r.OnOff != 0, r.Stratum, r.Distance.ToFloat())
	return candm.RpyNull, candm.StSuccess, nil
}

func handleReselect(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	d.collab.Reference.Reselect()
	return candm.RpyNull, candm.StSuccess, nil
}

func handleReselectDistance(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqReselectDistance)
	d.collab.Reference.SetReselectDistance(r.Distance.ToFloat())
	return candm.RpyNull, candm.StSuccess, nil
}

func handleTracking(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpyTracking, candm.StSuccess, d.collab.Reference.Tracking()
}

func handleSettime(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	if !d.collab.Manual.Enabled() {
		return candm.RpyNull, candm.StNotEnabled, nil
	}
	r := req.(*candm.ReqSettime)
	if !d.collab.Manual.Accept(r.Ts.ToTime(), 0, 0) {
		return candm.RpyNull, candm.StBadSample, nil
	}
	return candm.RpyNull, candm.StSuccess, nil
}

func handleDfreq(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqDfreq)
	d.collab.LocalClock.AccumulateFrequency(r.Freq.ToFloat())
	return candm.RpyNull, candm.StSuccess, nil
}

func handleDoffset(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqDoffset)
	d.collab.LocalClock.AccumulateOffset(r.Offset.ToFloat())
	return candm.RpyNull, candm.StSuccess, nil
}

func handleMakestep(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	d.collab.LocalClock.MakeStep()
	return candm.RpyNull, candm.StSuccess, nil
}

func handleNSources(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpyNSources, candm.StSuccess, candm.RpyPayloadNSources{NSources: int32(d.collab.Sources.NSources())}
}

func handleSourceData(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqIndex)
	data, ok := d.collab.Sources.ReportByIndex(int(r.Index))
	if !ok {
		return candm.RpyNull, candm.StNoSuchSource, nil
	}
	return candm.RpySourceData, candm.StSuccess, data
}

func handleSourceStats(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqIndex)
	stats, ok := d.collab.Sources.StatsByIndex(int(r.Index))
	if !ok {
		return candm.RpyNull, candm.StNoSuchSource, nil
	}
	return candm.RpySourceStats, candm.StSuccess, stats
}

func handleRTCReport(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	if !d.collab.Rtc.Present() {
		return candm.RpyNull, candm.StNoRTC, nil
	}
	rep, err := d.collab.Rtc.Report()
	if err != nil {
		return candm.RpyNull, candm.StBadRTCFile, nil
	}
	return candm.RpyRTC, candm.StSuccess, rep
}

func handleRclocks(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqIndex)
	rep, ok := d.collab.RefClocks.ReportByIndex(int(r.Index))
	if !ok {
		return candm.RpyNull, candm.StNoSuchSource, nil
	}
	return candm.RpyRclocks, candm.StSuccess, rep
}

func handleActivity(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpyActivity, candm.StSuccess, d.collab.Sources.Activity()
}

func handleSmoothing(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	return candm.RpySmoothing, candm.StSuccess, d.collab.Smooth.Report()
}

func handleSmoothTime(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	if !d.collab.Smooth.Enabled() {
		return candm.RpyNull, candm.StNotEnabled, nil
	}
	r := req.(*candm.ReqOption)
	d.collab.Smooth.Apply(SmoothOption(r.Option))
	return candm.RpyNull, candm.StSuccess, nil
}

func handleManualList(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	samples := d.collab.Manual.List()
	var payload candm.RpyPayloadManualList
	payload.N = int32(len(samples))
	for i, s := range samples {
		if i >= candm.MaxManualSamples {
			break
		}
		payload.Samples[i] = s
	}
	return candm.RpyManualList, candm.StSuccess, payload
}

func handleManualDelete(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqIndex)
	if !d.collab.Manual.Delete(r.Index) {
		return candm.RpyNull, candm.StBadSample, nil
	}
	return candm.RpyNull, candm.StSuccess, nil
}

func handleManual(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqOption)
	d.collab.Manual.SetOption(ManualOption(r.Option))
	return candm.RpyNull, candm.StSuccess, nil
}

// maxClientAccessPage bounds how many rows CLIENT_ACCESSES_BY_INDEX
// packs into one reply, matching candm.MaxClientsPerReply.
const maxClientAccessPage = candm.MaxClientsPerReply

func handleClientAccessesByIndex(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	r := req.(*candm.ReqClientAccessesByIndex)
	count := r.NClients
	if count > maxClientAccessPage {
		count = maxClientAccessPage
	}
	report := d.collab.ClientLog.ReportByIndex(r.FirstIndex, count)
	if !report.Active {
		return candm.RpyNull, candm.StInactive, nil
	}
	var payload candm.RpyPayloadClientAccesses
	payload.NClients = int32(len(report.Rows))
	for i, row := range report.Rows {
		if i >= maxClientAccessPage {
			break
		}
		payload.Clients[i] = row
	}
	payload.NextIndex = r.FirstIndex + count
	payload.NIndices = uint32(report.Total)
	return candm.RpyClientAccesses, candm.StSuccess, payload
}

func handleAccessSubnet(cmdNamespace bool, decision access.Decision, all bool) handlerFunc {
	return func(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
		r := req.(*candm.ReqAccessSubnet)
		subnet := ipNetFromAddrBits(r.Address, r.Bits)
		if subnet == nil {
			return candm.RpyNull, candm.StBadSubnet, nil
		}
		table := d.ntpAccess
		if cmdNamespace {
			table = d.cmdAccess
		}
		table.Add(subnet, decision, all)
		return candm.RpyNull, candm.StSuccess, nil
	}
}

func handleACheck(cmdNamespace bool) handlerFunc {
	return func(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
		r := req.(*candm.ReqAddress)
		ip := r.Address.ToNetIP()
		table := d.ntpAccess
		if cmdNamespace {
			table = d.cmdAccess
		}
		if table.Check(ip) {
			return candm.RpyNull, candm.StAccessAllowed, nil
		}
		return candm.RpyNull, candm.StAccessDenied, nil
	}
}

func handleWriteRTC(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	if !d.collab.Rtc.Present() {
		return candm.RpyNull, candm.StNoRTC, nil
	}
	if err := d.collab.Rtc.Write(); err != nil {
		return candm.RpyNull, candm.StBadRTCFile, nil
	}
	return candm.RpyNull, candm.StSuccess, nil
}

func handleTrimRTC(d *Dispatcher, req any, remote net.IP) (candm.ReplyTag, candm.Status, any) {
	if !d.collab.Rtc.Present() {
		return candm.RpyNull, candm.StNoRTC, nil
	}
	d.collab.Rtc.Trim()
	return candm.RpyNull, candm.StSuccess, nil
}

// ipNetFromAddrBits builds a CIDR subnet from a wire address and a
// prefix length, returning nil if either is malformed.
func ipNetFromAddrBits(addr candm.IPAddr, bits int32) *net.IPNet {
	ip := addr.ToNetIP()
	if ip == nil || bits < 0 {
		return nil
	}
	bitLen := 32
	if ip4 := ip.To4(); ip4 == nil {
		bitLen = 128
	} else {
		ip = ip4
	}
	if int(bits) > bitLen {
		return nil
	}
	return &net.IPNet{IP: ip.Mask(net.CIDRMask(int(bits), bitLen)), Mask: net.CIDRMask(int(bits), bitLen)}
}
