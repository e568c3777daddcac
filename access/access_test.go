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

package access

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dutchanddutch/chrony/candm"
)

func mustCIDR(t *testing.T, s string) *net.IPNet {
	t.Helper()
	_, n, err := net.ParseCIDR(s)
	require.NoError(t, err)
	return n
}

func TestTableDefaultDeny(t *testing.T) {
	table := NewTable()
	require.False(t, table.Check(net.ParseIP("10.0.0.1")))
}

func TestTableMostSpecificWins(t *testing.T) {
	table := NewTable()
	table.Add(mustCIDR(t, "10.0.0.0/8"), DecisionAllow, true)
	table.Add(mustCIDR(t, "10.1.0.0/16"), DecisionDeny, true)

	require.True(t, table.Check(net.ParseIP("10.2.0.1")))
	require.False(t, table.Check(net.ParseIP("10.1.0.1")))
}

func TestTableAllVariantSubsumesNestedEntry(t *testing.T) {
	table := NewTable()
	table.Add(mustCIDR(t, "10.1.0.0/16"), DecisionDeny, false)
	require.False(t, table.Check(net.ParseIP("10.1.0.1")))

	// ALLOWALL over the whole /8 subsumes the narrower, already-recorded
	// exception: the broad rule becomes the sole authority.
	table.Add(mustCIDR(t, "10.0.0.0/8"), DecisionAllow, true)
	require.True(t, table.Check(net.ParseIP("10.1.0.1")))
	require.True(t, table.Check(net.ParseIP("10.2.0.1")))
}

func TestTablePlainVariantLeavesNestedEntryIntact(t *testing.T) {
	table := NewTable()
	table.Add(mustCIDR(t, "10.1.0.0/16"), DecisionDeny, false)

	// A plain (non-"all") ALLOW over the /8 does not override the
	// narrower, already-recorded exception.
	table.Add(mustCIDR(t, "10.0.0.0/8"), DecisionAllow, false)
	require.False(t, table.Check(net.ParseIP("10.1.0.1")))
	require.True(t, table.Check(net.ParseIP("10.2.0.1")))
}

func TestTableTieBrokenByMostRecent(t *testing.T) {
	table := NewTable()
	table.Add(mustCIDR(t, "192.0.2.0/24"), DecisionAllow, false)
	table.Add(mustCIDR(t, "192.0.2.0/24"), DecisionDeny, false)

	require.False(t, table.Check(net.ParseIP("192.0.2.5")))
}

func TestClassifyTrust(t *testing.T) {
	require.Equal(t, TrustFilesystem, ClassifyTrust(true, net.ParseIP("203.0.113.1")))
	require.Equal(t, TrustLocal, ClassifyTrust(false, net.ParseIP("127.0.0.1")))
	require.Equal(t, TrustRemote, ClassifyTrust(false, net.ParseIP("203.0.113.1")))
}

func TestAllowed(t *testing.T) {
	table := NewTable()
	table.Add(mustCIDR(t, "203.0.113.0/24"), DecisionAllow, true)

	require.True(t, Allowed(TrustFilesystem, net.ParseIP("198.51.100.1"), table))
	require.True(t, Allowed(TrustLocal, net.ParseIP("127.0.0.1"), table))
	require.True(t, Allowed(TrustRemote, net.ParseIP("203.0.113.9"), table))
	require.False(t, Allowed(TrustRemote, net.ParseIP("198.51.100.1"), table))
}

func TestPermissionCheck(t *testing.T) {
	require.True(t, PermissionCheck(TrustRemote, candm.OpNSources))  // PermOpen
	require.False(t, PermissionCheck(TrustRemote, candm.OpDelSource)) // PermAuth
	require.True(t, PermissionCheck(TrustFilesystem, candm.OpDelSource))
	require.False(t, PermissionCheck(TrustLocal, candm.OpDelSource))
}
