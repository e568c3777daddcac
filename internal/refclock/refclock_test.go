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

package refclock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dutchanddutch/chrony/candm"
)

func TestReportByIndexUnset(t *testing.T) {
	r := New()
	_, ok := r.ReportByIndex(0)
	require.False(t, ok)
}

func TestSetAndReportByIndex(t *testing.T) {
	r := New()
	report := candm.RpyPayloadRefclock{AvgOffset: candm.EncodeFloat(1.5)}
	r.Set(2, report)

	got, ok := r.ReportByIndex(2)
	require.True(t, ok)
	require.Equal(t, report, got)

	_, ok = r.ReportByIndex(0)
	require.False(t, ok, "growing the table must not fabricate reports for skipped indices")
}
