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

package candm

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWireLengthInvariants(t *testing.T) {
	for op := Opcode(0); op < NumOpcodes; op++ {
		length := RequestLength(op)
		pad := PaddingLen(op)
		require.LessOrEqualf(t, pad, MaxPaddingLen, "opcode %s", op)
		if length != 0 {
			require.GreaterOrEqualf(t, length, RequestHeaderSize, "opcode %s", op)
			require.LessOrEqualf(t, pad, length, "opcode %s", op)
		}
	}
}

func TestRequestRoundTrip(t *testing.T) {
	hdr := RequestHeader{
		Version:  ProtocolVersion,
		PktType:  PktRequest,
		Command:  OpAddServer,
		Sequence: 42,
	}
	payload := &ReqSourceAdd{
		Address: NewIPAddr(net.ParseIP("192.0.2.1")),
		Port:    123,
		Params:  NTPSourceParams{MinPoll: 6, MaxPoll: 10},
	}

	buf, err := EncodeRequest(hdr, payload)
	require.NoError(t, err)
	require.Equal(t, RequestLength(OpAddServer), len(buf))

	gotHdr, err := DecodeRequestHeader(buf)
	require.NoError(t, err)
	require.Equal(t, hdr.Sequence, gotHdr.Sequence)
	require.Equal(t, hdr.Command, gotHdr.Command)

	gotPayload, err := DecodeRequestPayload(OpAddServer, buf[RequestHeaderSize:])
	require.NoError(t, err)
	require.Equal(t, payload, gotPayload)
}

func TestReplyRoundTrip(t *testing.T) {
	hdr := NewReplyHeader(OpNSources, 7)
	hdr.Reply = RpyNSources
	payload := RpyPayloadNSources{NSources: 3}

	buf, err := EncodeReply(hdr, payload)
	require.NoError(t, err)

	gotHdr, gotPayload, err := DecodeReply(buf)
	require.NoError(t, err)
	require.Equal(t, hdr.Sequence, gotHdr.Sequence)
	require.Equal(t, StSuccess, gotHdr.Status)
	require.Equal(t, &payload, gotPayload)
}

func TestDecodeRequestHeaderShortBuffer(t *testing.T) {
	_, err := DecodeRequestHeader(make([]byte, RequestHeaderSize-1))
	require.Error(t, err)
}

func TestOpcodeValid(t *testing.T) {
	require.True(t, OpNull.Valid())
	require.False(t, NumOpcodes.Valid())
	require.False(t, Opcode(9999).Valid())
}
