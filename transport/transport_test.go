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

package transport

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLocalSocketRoundTrip(t *testing.T) {
	serverPath := filepath.Join(t.TempDir(), "server.sock")
	clientPath := filepath.Join(t.TempDir(), "client.sock")

	server, err := OpenLocalSocket(serverPath)
	require.NoError(t, err)
	defer server.Close()

	client, err := OpenLocalSocket(clientPath)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.SendTo([]byte("hello"), &unix.SockaddrUnix{Name: serverPath}))

	var pkt Packet
	var ok bool
	require.Eventually(t, func() bool {
		pkt, ok, err = server.Recv()
		require.NoError(t, err)
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, "hello", string(pkt.Data))
	require.Equal(t, OriginUnix, pkt.Origin)
}

func TestRecvReturnsFalseWhenEmpty(t *testing.T) {
	serverPath := filepath.Join(t.TempDir(), "server.sock")
	server, err := OpenLocalSocket(serverPath)
	require.NoError(t, err)
	defer server.Close()

	_, ok, err := server.Recv()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestManagerReplyDropEveryNth(t *testing.T) {
	serverPath := filepath.Join(t.TempDir(), "server.sock")
	clientPath := filepath.Join(t.TempDir(), "client.sock")
	server, err := OpenLocalSocket(serverPath)
	require.NoError(t, err)
	defer server.Close()
	client, err := OpenLocalSocket(clientPath)
	require.NoError(t, err)
	defer client.Close()

	m := &Manager{Unix: server}
	DropEveryNth = 2
	defer func() { DropEveryNth = 0 }()

	to := &unix.SockaddrUnix{Name: clientPath}
	require.NoError(t, m.Reply(OriginUnix, to, []byte("one")))
	require.NoError(t, m.Reply(OriginUnix, to, []byte("two")))

	var pkt Packet
	var ok bool
	require.Eventually(t, func() bool {
		pkt, ok, err = client.Recv()
		require.NoError(t, err)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "one", string(pkt.Data))

	for i := 0; i < 10; i++ {
		_, ok, err := client.Recv()
		require.NoError(t, err)
		require.False(t, ok, "the second reply must have been dropped")
		time.Sleep(10 * time.Millisecond)
	}
}
