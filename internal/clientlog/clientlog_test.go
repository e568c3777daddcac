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

package clientlog

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInactiveWhenZeroCapacity(t *testing.T) {
	l := New(0)
	report := l.ReportByIndex(0, 8)
	require.False(t, report.Active)
}

func TestRecordAccessAccumulates(t *testing.T) {
	l := New(4)
	addr := net.ParseIP("192.0.2.1")
	l.RecordAccess(addr)
	l.RecordAccess(addr)

	report := l.ReportByIndex(0, 4)
	require.True(t, report.Active)
	require.Equal(t, 4, report.Total)
	require.Len(t, report.Rows, 1)
	require.EqualValues(t, 2, report.Rows[0].CmdHits)
}

func TestRecordBadPacketCount(t *testing.T) {
	l := New(2)
	l.RecordBadPacket(net.ParseIP("192.0.2.1"))
	l.RecordBadPacket(net.ParseIP("192.0.2.2"))
	require.EqualValues(t, 2, l.BadPacketCount())
}

func TestReportByIndexPagesPastCapacity(t *testing.T) {
	l := New(2)
	l.RecordAccess(net.ParseIP("192.0.2.1"))
	l.RecordAccess(net.ParseIP("192.0.2.2"))

	report := l.ReportByIndex(1, 4)
	require.Len(t, report.Rows, 1)
}
