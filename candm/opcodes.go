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

// Package candm implements the command-and-monitoring wire protocol:
// the fixed-layout request/reply packets a chrony-like daemon accepts
// on its administration socket, and the codec that converts them
// to and from host-order Go values.
//
// original C++ layout this is modeled on is candm.h from
// https://gitlab.com/chrony/chrony
package candm

// Opcode identifies a request (and its matching reply) variant. Opcodes
// are assigned sequentially and double as the index into the
// permission table and the dispatcher's handler table.
type Opcode uint16

// Opcode values. Table size (len of the permission/handler arrays)
// must equal NumOpcodes; this is checked at init time.
const (
	OpNull Opcode = iota
	OpOnline
	OpOffline
	OpBurst
	OpAddServer
	OpAddPeer
	OpDelSource
	OpModifyMinpoll
	OpModifyMaxpoll
	OpModifyMaxdelay
	OpModifyMaxdelayratio
	OpModifyMaxdelaydevratio
	OpModifyMinstratum
	OpModifyPolltarget
	OpModifyMaxupdateskew
	OpModifyMakestep
	OpLocal
	OpReselect
	OpReselectDistance
	OpTracking
	OpRefresh
	OpRekey
	OpSettime
	OpDfreq
	OpDoffset
	OpMakestep
	OpNSources
	OpSourceData
	OpSourceStats
	OpRTCReport
	OpRclocks
	OpActivity
	OpSmoothing
	OpSmoothTime
	OpManualList
	OpManualDelete
	OpManual
	OpClientAccessesByIndex
	OpAllow
	OpAllowAll
	OpDeny
	OpDenyAll
	OpCmdAllow
	OpCmdAllowAll
	OpCmdDeny
	OpCmdDenyAll
	OpACheck
	OpCmdACheck
	OpWriteRTC
	OpTrimRTC
	OpDump
	OpCycleLogs
	OpLogon
	// NumOpcodes must stay last: it is the total opcode count.
	NumOpcodes
)

var opcodeNames = [NumOpcodes]string{
	"NULL", "ONLINE", "OFFLINE", "BURST", "ADD_SERVER", "ADD_PEER",
	"DEL_SOURCE", "MODIFY_MINPOLL", "MODIFY_MAXPOLL", "MODIFY_MAXDELAY",
	"MODIFY_MAXDELAYRATIO", "MODIFY_MAXDELAYDEVRATIO", "MODIFY_MINSTRATUM",
	"MODIFY_POLLTARGET", "MODIFY_MAXUPDATESKEW", "MODIFY_MAKESTEP", "LOCAL",
	"RESELECT", "RESELECT_DISTANCE", "TRACKING", "REFRESH", "REKEY",
	"SETTIME", "DFREQ", "DOFFSET", "MAKESTEP", "N_SOURCES", "SOURCE_DATA",
	"SOURCE_STATS", "RTCREPORT", "RCLOCKS", "ACTIVITY", "SMOOTHING", "SMOOTHTIME",
	"MANUAL_LIST", "MANUAL_DELETE", "MANUAL", "CLIENT_ACCESSES_BY_INDEX",
	"ALLOW", "ALLOWALL", "DENY", "DENYALL", "CMDALLOW", "CMDALLOWALL",
	"CMDDENY", "CMDDENYALL", "ACCHECK", "CMDACCHECK", "WRITERTC",
	"TRIMRTC", "DUMP", "CYCLELOGS", "LOGON",
}

func (o Opcode) String() string {
	if int(o) >= len(opcodeNames) {
		return "UNKNOWN"
	}
	return opcodeNames[o]
}

// Valid reports whether o is within the known opcode range.
func (o Opcode) Valid() bool {
	return o < NumOpcodes
}

// ReplyTag identifies the shape of a reply's payload union.
type ReplyTag uint16

// ReplyTag values.
const (
	RpyNull ReplyTag = iota
	RpyNSources
	RpySourceData
	RpyTracking
	RpySourceStats
	RpyRTC
	RpyRclocks
	RpyActivity
	RpySmoothing
	RpyManualList
	RpyClientAccesses
)

// PermissionClass is the static per-opcode authorization requirement.
type PermissionClass uint8

// PermissionClass values.
const (
	// PermOpen allows any caller that already passed the CIDR filter.
	PermOpen PermissionClass = iota
	// PermLocal restricts to localhost or filesystem-socket origin.
	// No opcode currently uses this class; it is preserved for forward
	// compatibility with deployments that expect the class to exist.
	PermLocal
	// PermAuth restricts to filesystem-socket origin only.
	PermAuth
)

// permissionTable maps every opcode to its permission class. Length
// must equal NumOpcodes; checked by init().
var permissionTable = [NumOpcodes]PermissionClass{
	OpNull:                   PermOpen,
	OpOnline:                 PermAuth,
	OpOffline:                PermAuth,
	OpBurst:                  PermAuth,
	OpAddServer:              PermAuth,
	OpAddPeer:                PermAuth,
	OpDelSource:              PermAuth,
	OpModifyMinpoll:          PermAuth,
	OpModifyMaxpoll:          PermAuth,
	OpModifyMaxdelay:         PermAuth,
	OpModifyMaxdelayratio:    PermAuth,
	OpModifyMaxdelaydevratio: PermAuth,
	OpModifyMinstratum:       PermAuth,
	OpModifyPolltarget:       PermAuth,
	OpModifyMaxupdateskew:    PermAuth,
	OpModifyMakestep:         PermAuth,
	OpLocal:                  PermAuth,
	OpReselect:               PermAuth,
	OpReselectDistance:       PermAuth,
	OpTracking:               PermOpen,
	OpRefresh:                PermAuth,
	OpRekey:                  PermAuth,
	OpSettime:                PermAuth,
	OpDfreq:                  PermAuth,
	OpDoffset:                PermAuth,
	OpMakestep:               PermAuth,
	OpNSources:               PermOpen,
	OpSourceData:             PermOpen,
	OpSourceStats:            PermOpen,
	OpRTCReport:              PermAuth,
	OpRclocks:                PermOpen,
	OpActivity:               PermOpen,
	OpSmoothing:              PermOpen,
	OpSmoothTime:             PermAuth,
	OpManualList:             PermAuth,
	OpManualDelete:           PermAuth,
	OpManual:                 PermAuth,
	OpClientAccessesByIndex:  PermAuth,
	OpAllow:                  PermAuth,
	OpAllowAll:               PermAuth,
	OpDeny:                   PermAuth,
	OpDenyAll:                PermAuth,
	OpCmdAllow:               PermAuth,
	OpCmdAllowAll:            PermAuth,
	OpCmdDeny:                PermAuth,
	OpCmdDenyAll:             PermAuth,
	OpACheck:                 PermOpen,
	OpCmdACheck:              PermOpen,
	OpWriteRTC:               PermAuth,
	OpTrimRTC:                PermAuth,
	OpDump:                   PermAuth,
	OpCycleLogs:              PermAuth,
	OpLogon:                  PermOpen,
}

// Permission returns the permission class for opcode o. Callers must
// have already checked o.Valid().
func Permission(o Opcode) PermissionClass {
	return permissionTable[o]
}

func init() {
	if len(permissionTable) != int(NumOpcodes) {
		panic("candm: permission table size does not match opcode count")
	}
}
