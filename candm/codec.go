package candm

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// paddingTable gives the padding length (trailing reserved bytes
// within the fixed payload) for opcodes that reserve wire space for
// future growth. Opcodes absent from this map carry no padding: their
// payload struct is exactly as large as its semantic fields, which
// satisfies the padding invariant (0 <= 16) trivially.
var paddingTable = map[Opcode]int{
	OpNull:      4,
	OpDump:      4,
	OpCycleLogs: 4,
	OpLogon:     4,
}

// PaddingLen returns the padding length for opcode op.
func PaddingLen(op Opcode) int {
	return paddingTable[op]
}

// requestPayload returns the zero value of the request payload struct
// for opcode op, or nil if op is out of range.
func requestPayload(op Opcode) any {
	switch op {
	case OpNull, OpDump, OpCycleLogs, OpLogon:
		return &ReqReserved4{}
	case OpOnline, OpOffline:
		return &ReqAddressMask{}
	case OpBurst:
		return &ReqBurst{}
	case OpAddServer, OpAddPeer:
		return &ReqSourceAdd{}
	case OpDelSource, OpRefresh, OpACheck, OpCmdACheck:
		return &ReqAddress{}
	case OpModifyMinpoll, OpModifyMaxpoll, OpModifyMinstratum, OpModifyPolltarget:
		return &ReqModifyAddrInt32{}
	case OpModifyMaxdelay, OpModifyMaxdelayratio, OpModifyMaxdelaydevratio:
		return &ReqModifyAddrFloat{}
	case OpModifyMaxupdateskew:
		return &ReqModifyMaxupdateskew{}
	case OpModifyMakestep:
		return &ReqModifyMakestep{}
	case OpLocal:
		return &ReqLocal{}
	case OpReselect, OpTracking, OpRekey:
		return &struct{}{}
	case OpReselectDistance:
		return &ReqReselectDistance{}
	case OpSettime:
		return &ReqSettime{}
	case OpDfreq:
		return &ReqDfreq{}
	case OpDoffset:
		return &ReqDoffset{}
	case OpMakestep, OpNSources, OpRTCReport, OpActivity, OpSmoothing, OpManualList, OpWriteRTC, OpTrimRTC:
		return &struct{}{}
	case OpSourceData, OpSourceStats, OpManualDelete, OpRclocks:
		return &ReqIndex{}
	case OpManual, OpSmoothTime:
		return &ReqOption{}
	case OpClientAccessesByIndex:
		return &ReqClientAccessesByIndex{}
	case OpAllow, OpAllowAll, OpDeny, OpDenyAll, OpCmdAllow, OpCmdAllowAll, OpCmdDeny, OpCmdDenyAll:
		return &ReqAccessSubnet{}
	default:
		return nil
	}
}

// replyPayload returns the zero value of the reply payload struct for
// reply tag t.
func replyPayload(t ReplyTag) any {
	switch t {
	case RpyNull:
		return &struct{}{}
	case RpyNSources:
		return &RpyPayloadNSources{}
	case RpySourceData:
		return &RpyPayloadSourceData{}
	case RpyTracking:
		return &RpyPayloadTracking{}
	case RpySourceStats:
		return &RpyPayloadSourceStats{}
	case RpyRTC:
		return &RpyPayloadRTC{}
	case RpyRclocks:
		return &RpyPayloadRefclock{}
	case RpyActivity:
		return &RpyPayloadActivity{}
	case RpySmoothing:
		return &RpyPayloadSmoothing{}
	case RpyManualList:
		return &RpyPayloadManualList{}
	case RpyClientAccesses:
		return &RpyPayloadClientAccesses{}
	default:
		return nil
	}
}

// RequestPayloadLen returns the encoded byte length of opcode op's
// request payload (excluding the header).
func RequestPayloadLen(op Opcode) int {
	p := requestPayload(op)
	if p == nil {
		return 0
	}
	return binary.Size(p)
}

// RequestLength returns the total encoded byte length of a request
// with opcode op. Returns 0 for an out-of-range opcode.
func RequestLength(op Opcode) int {
	if !op.Valid() {
		return 0
	}
	return RequestHeaderSize + RequestPayloadLen(op)
}

// ReplyPayloadLen returns the encoded byte length of reply tag t's
// payload (excluding the header).
func ReplyPayloadLen(t ReplyTag) int {
	p := replyPayload(t)
	if p == nil {
		return 0
	}
	return binary.Size(p)
}

// ReplyLength returns the total encoded byte length of a reply tagged
// t.
func ReplyLength(t ReplyTag) int {
	return ReplyHeaderSize + ReplyPayloadLen(t)
}

func init() {
	for op := Opcode(0); op < NumOpcodes; op++ {
		if requestPayload(op) == nil {
			panic(fmt.Sprintf("candm: opcode %s has no registered payload shape", op))
		}
		pad := PaddingLen(op)
		length := RequestLength(op)
		if pad > MaxPaddingLen {
			panic(fmt.Sprintf("candm: opcode %s padding %d exceeds MaxPaddingLen", op, pad))
		}
		if length != 0 && pad > length {
			panic(fmt.Sprintf("candm: opcode %s padding %d exceeds wire length %d", op, pad, length))
		}
		if length != 0 && length < RequestHeaderSize {
			panic(fmt.Sprintf("candm: opcode %s wire length %d below header size", op, length))
		}
	}
}

// DecodeRequestHeader reads just the fixed-size request header from
// the front of buf.
func DecodeRequestHeader(buf []byte) (RequestHeader, error) {
	var hdr RequestHeader
	if len(buf) < RequestHeaderSize {
		return hdr, fmt.Errorf("candm: short request header: got %d bytes, want %d", len(buf), RequestHeaderSize)
	}
	r := bytes.NewReader(buf[:RequestHeaderSize])
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return hdr, fmt.Errorf("candm: decode request header: %w", err)
	}
	return hdr, nil
}

// DecodeRequestPayload decodes the opcode-specific payload following
// the header. The returned value is a pointer to the concrete payload
// struct for op; callers type-switch on it.
func DecodeRequestPayload(op Opcode, buf []byte) (any, error) {
	payload := requestPayload(op)
	if payload == nil {
		return nil, fmt.Errorf("candm: unknown opcode %d", op)
	}
	size := binary.Size(payload)
	if size == 0 {
		return payload, nil
	}
	if len(buf) < size {
		return nil, fmt.Errorf("candm: short request payload for %s: got %d bytes, want %d", op, len(buf), size)
	}
	r := bytes.NewReader(buf[:size])
	if err := binary.Read(r, binary.BigEndian, payload); err != nil {
		return nil, fmt.Errorf("candm: decode request payload for %s: %w", op, err)
	}
	return payload, nil
}

// EncodeReply serializes a reply header and its payload into a single
// wire buffer.
func EncodeReply(hdr ReplyHeader, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, hdr); err != nil {
		return nil, fmt.Errorf("candm: encode reply header: %w", err)
	}
	if payload != nil && binary.Size(payload) > 0 {
		if err := binary.Write(&buf, binary.BigEndian, payload); err != nil {
			return nil, fmt.Errorf("candm: encode reply payload: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// EncodeRequest serializes a request header and its payload, for use
// by test harnesses that play the client role.
func EncodeRequest(hdr RequestHeader, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, hdr); err != nil {
		return nil, fmt.Errorf("candm: encode request header: %w", err)
	}
	if payload != nil && binary.Size(payload) > 0 {
		if err := binary.Write(&buf, binary.BigEndian, payload); err != nil {
			return nil, fmt.Errorf("candm: encode request payload: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeReply decodes a full reply packet, for use by test harnesses
// that play the client role.
func DecodeReply(buf []byte) (ReplyHeader, any, error) {
	var hdr ReplyHeader
	if len(buf) < ReplyHeaderSize {
		return hdr, nil, fmt.Errorf("candm: short reply: got %d bytes, want at least %d", len(buf), ReplyHeaderSize)
	}
	r := bytes.NewReader(buf[:ReplyHeaderSize])
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return hdr, nil, fmt.Errorf("candm: decode reply header: %w", err)
	}
	payload := replyPayload(hdr.Reply)
	if payload == nil {
		return hdr, nil, fmt.Errorf("candm: unknown reply tag %d", hdr.Reply)
	}
	size := binary.Size(payload)
	if size == 0 {
		return hdr, payload, nil
	}
	rest := buf[ReplyHeaderSize:]
	if len(rest) < size {
		return hdr, nil, fmt.Errorf("candm: short reply payload: got %d bytes, want %d", len(rest), size)
	}
	pr := bytes.NewReader(rest[:size])
	if err := binary.Read(pr, binary.BigEndian, payload); err != nil {
		return hdr, nil, fmt.Errorf("candm: decode reply payload: %w", err)
	}
	return hdr, payload, nil
}
