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

package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfigValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cmdportnumber: 323
cmdsocketpath: /run/chronyd-cm.sock
clientlogsize: 256
allowcmd:
  - 127.0.0.1/32
denycmd:
  - 0.0.0.0/0
`), 0644))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 323, cfg.CmdPort())
	require.Equal(t, "/run/chronyd-cm.sock", cfg.BindCmdPath())
	require.Equal(t, net.IPv4(127, 0, 0, 1).To4(), cfg.BindAddress4().To4())
}

func TestReadConfigRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notafield: true\n"), 0644))
	_, err := ReadConfig(path)
	require.Error(t, err)
}

func TestValidateRejectsBadCIDR(t *testing.T) {
	c := Config{AllowCmd: []string{"not-a-cidr"}}
	require.Error(t, c.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	c := Config{CmdPortNumber: 70000}
	require.Error(t, c.Validate())
}

func TestBindAddressDefaultsToLoopback(t *testing.T) {
	c := Config{}
	require.True(t, c.BindAddress4().IsLoopback())
	require.True(t, c.BindAddress6().IsLoopback())
}
