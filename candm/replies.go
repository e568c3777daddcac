package candm

// MaxManualSamples bounds the number of rows MANUAL_LIST packs into a
// single reply (there is no fragmentation in this protocol).
const MaxManualSamples = 16

// MaxClientsPerReply bounds how many rows CLIENT_ACCESSES_BY_INDEX
// packs into a single reply; a request for more is clamped.
const MaxClientsPerReply = 8

// RpyPayloadNSources is the payload for the NSOURCES reply.
type RpyPayloadNSources struct {
	NSources int32
}

// SourceState mirrors chrony's source state enumeration.
type SourceState uint16

// SourceState values.
const (
	SourceSync SourceState = iota
	SourceUnreach
	SourceFalseTicker
	SourceJittery
	SourceCandidate
	SourceOutlier
)

// SourceMode mirrors chrony's source mode enumeration.
type SourceMode uint16

// SourceMode values.
const (
	ModeClient SourceMode = iota
	ModePeer
	ModeRef
)

// RpyPayloadSourceData is the payload for the SOURCE_DATA reply.
type RpyPayloadSourceData struct {
	Address        IPAddr
	Poll           int16
	Stratum        uint16
	State          SourceState
	Mode           SourceMode
	Flags          uint16
	Reachability   uint16
	SinceSample    uint32
	OrigLatestMeas Float
	LatestMeas     Float
	LatestMeasErr  Float
}

// RpyPayloadTracking is the payload for the TRACKING reply.
type RpyPayloadTracking struct {
	RefID              uint32
	Address            IPAddr
	Stratum            uint16
	LeapStatus         uint16
	RefTime            Timestamp
	CurrentCorrection  Float
	LastOffset         Float
	RMSOffset          Float
	FreqPPM            Float
	ResidFreqPPM       Float
	SkewPPM            Float
	RootDelay          Float
	RootDispersion     Float
	LastUpdateInterval Float
}

// RpyPayloadSourceStats is the payload for the SOURCE_STATS reply.
type RpyPayloadSourceStats struct {
	RefID              uint32
	Address            IPAddr
	NSamples           uint32
	NRuns              uint32
	SpanSeconds        uint32
	StandardDeviation  Float
	ResidFreqPPM       Float
	SkewPPM            Float
	EstimatedOffset    Float
	EstimatedOffsetErr Float
}

// RpyPayloadRTC is the payload for the RTCREPORT reply.
type RpyPayloadRTC struct {
	RefTime     Timestamp
	NSamples    int32
	NRuns       int32
	SpanSeconds int32
	CoefSeconds Float
	CoefGain    Float
}

// RpyPayloadRefclock is the payload for the RCLOCKS reply: one
// reference-clock driver's reporting state, distinct from the RTC
// chip's own RTCREPORT.
type RpyPayloadRefclock struct {
	RefID        uint32
	NSamples     int32
	NRuns        int32
	MinSamples   int32
	MaxSamples   int32
	LastRefCount int32
	AvgOffset    Float
	AvgOffsetSD  Float
}

// RpyPayloadActivity is the payload for the ACTIVITY reply.
type RpyPayloadActivity struct {
	Online       int32
	Offline      int32
	BurstOnline  int32
	BurstOffline int32
	Unresolved   int32
}

// RpyPayloadSmoothing is the payload for the SMOOTHING reply.
type RpyPayloadSmoothing struct {
	Offset        Float
	FreqPPM       Float
	WanderPPM     Float
	LastUpdateAgo int32
	RemainingTime int32
	Active        int32
}

// ManualSample is one row of a MANUAL_LIST reply.
type ManualSample struct {
	Ts             Timestamp
	Offset         Float
	PeerDispersion Float
}

// RpyPayloadManualList is the payload for the MANUAL_LIST reply. Rows
// beyond N are zero and must be ignored by the caller.
type RpyPayloadManualList struct {
	N       int32
	Samples [MaxManualSamples]ManualSample
}

// ClientAccess is one row of a CLIENT_ACCESSES_BY_INDEX reply.
type ClientAccess struct {
	Address       IPAddr
	LastAccessAgo int32
	NTPHits       uint32
	CmdHits       uint32
}

// RpyPayloadClientAccesses is the payload for the
// CLIENT_ACCESSES_BY_INDEX reply, which reports clients a page at a
// time rather than all at once.
type RpyPayloadClientAccesses struct {
	NClients  int32
	NextIndex uint32
	NIndices  uint32
	Clients   [MaxClientsPerReply]ClientAccess
}
