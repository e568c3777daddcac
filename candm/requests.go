package candm

// AddressMask pairs a subnet mask with an address; ONLINE, OFFLINE and
// BURST target every source matching this pattern.
type AddressMask struct {
	Mask    IPAddr
	Address IPAddr
}

// NTPSourceParams carries the tunable per-source parameters accepted
// by ADD_SERVER/ADD_PEER, mirroring (a trimmed version of) chrony's
// NTP_Source_Options.
type NTPSourceParams struct {
	MinPoll          int16
	MaxPoll          int16
	Presend          int16
	MinStratum       uint16
	PollTarget       int16
	Version          uint16
	MaxSources       int16
	MinSamples       int16
	MaxSamples       int16
	Filter           Float
	MaxDelay         Float
	MaxDelayRatio    Float
	MaxDelayDevRatio Float
	MinDelay         Float
	Asymmetry        Float
	Offset           Float
	Flags            uint32
	AuthKey          uint32
}

// ReqSourceAdd is the payload for ADD_SERVER and ADD_PEER.
type ReqSourceAdd struct {
	Address IPAddr
	Port    uint16
	Pad     uint16
	Params  NTPSourceParams
}

// ReqAddress is the payload for DEL_SOURCE, REFRESH-by-address-style
// requests, and as the common shape for the single-target ACCHECK
// family.
type ReqAddress struct {
	Address IPAddr
}

// ReqAddressMask is the payload for ONLINE and OFFLINE.
type ReqAddressMask struct {
	AddressMask
}

// ReqBurst is the payload for BURST.
type ReqBurst struct {
	NGoodSamples  int32
	NTotalSamples int32
	AddressMask
}

// ReqModifyAddrInt32 is the payload shape shared by MODIFY_MINPOLL,
// MODIFY_MAXPOLL, MODIFY_MINSTRATUM and MODIFY_POLLTARGET: a target
// address plus one signed integer value.
//
// Older clients built against a union layout may send MODIFY_MAXPOLL,
// MODIFY_MINSTRATUM or MODIFY_POLLTARGET with the target address
// encoded at the MODIFY_MINPOLL field offset rather than its own;
// since all four share this exact struct shape byte-for-byte, decoding
// always reads the opcode's own address field and no aliasing
// behaviour needs to be special-cased.
type ReqModifyAddrInt32 struct {
	Address IPAddr
	Value   int32
}

// ReqModifyAddrFloat is the payload shape shared by MODIFY_MAXDELAY,
// MODIFY_MAXDELAYRATIO and MODIFY_MAXDELAYDEVRATIO.
type ReqModifyAddrFloat struct {
	Address IPAddr
	Value   Float
}

// ReqModifyMaxupdateskew is the payload for MODIFY_MAXUPDATESKEW.
type ReqModifyMaxupdateskew struct {
	Value Float
}

// ReqModifyMakestep is the payload for MODIFY_MAKESTEP.
type ReqModifyMakestep struct {
	Limit     Float
	Threshold int32
}

// ReqLocal is the payload for LOCAL (enable/disable the local
// reference stratum).
type ReqLocal struct {
	OnOff    int32
	Stratum  int32
	Distance Float
}

// ReqReselectDistance is the payload for RESELECTDISTANCE.
type ReqReselectDistance struct {
	Distance Float
}

// ReqSettime is the payload for SETTIME (manual timestamp entry).
type ReqSettime struct {
	Ts Timestamp
}

// ReqDfreq is the payload for DFREQ.
type ReqDfreq struct {
	Freq Float
}

// ReqDoffset is the payload for DOFFSET.
type ReqDoffset struct {
	Offset Float
}

// ReqIndex is the payload shape shared by SOURCE_DATA, SOURCESTATS and
// MANUAL_DELETE: a single index into the relevant table.
type ReqIndex struct {
	Index int32
}

// ReqOption is the payload shape shared by MANUAL (0=disable,
// 1=enable, 2=reset) and SMOOTHTIME (0=reset, 1=activate).
type ReqOption struct {
	Option int32
}

// ReqClientAccessesByIndex is the payload for
// CLIENT_ACCESSES_BY_INDEX.
type ReqClientAccessesByIndex struct {
	FirstIndex uint32
	NClients   uint32
}

// ReqAccessSubnet is the payload shape shared by ALLOW, ALLOWALL,
// DENY, DENYALL and their CMD* (command-namespace) counterparts.
type ReqAccessSubnet struct {
	Address IPAddr
	Bits    int32
}

// ReqReserved4 is used by opcodes that carry no semantic payload but
// reserve four bytes on the wire for future use (NULL, DUMP,
// CYCLELOGS, LOGON).
type ReqReserved4 struct {
	Reserved [4]byte
}
