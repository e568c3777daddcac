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

// Package config reads and validates the command and monitoring
// core's daemon-level configuration: where to bind each transport and
// which networks are pre-seeded into the access tables.
package config

import (
	"fmt"
	"net"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Config represents configuration we expect to read from file.
type Config struct {
	BindCmdAddress4 string // address the IPv4 C/M socket binds to, "" for loopback
	BindCmdAddress6 string // address the IPv6 C/M socket binds to, "" for loopback
	CmdPortNumber   int    // UDP port both IP sockets bind to; 0 disables IP transports
	CmdSocketPath   string // filesystem socket path; "" disables it

	RTCDevice      string // path standing in for the RTC device; "" means no RTC present
	KeysFile       string // symmetric key file reloaded on REKEY
	ClientLogSize  int    // capacity of the client-access accounting table
	SmoothEnabled  bool   // whether this build supports offset/frequency smoothing

	AllowCmd []string // CIDR subnets pre-seeded as CMDALLOW on the C/M namespace
	DenyCmd  []string // CIDR subnets pre-seeded as CMDDENY on the C/M namespace

	MetricsListenAddress string // address the Prometheus /metrics endpoint binds to, "" disables it
}

// Validate checks the config is internally consistent.
func (c *Config) Validate() error {
	if c.CmdPortNumber < 0 || c.CmdPortNumber > 65535 {
		return fmt.Errorf("bad config: 'cmdportnumber' out of range")
	}
	if c.ClientLogSize < 0 {
		return fmt.Errorf("bad config: 'clientlogsize' must be >= 0")
	}
	for _, subnet := range append(append([]string{}, c.AllowCmd...), c.DenyCmd...) {
		if _, _, err := net.ParseCIDR(subnet); err != nil {
			return fmt.Errorf("bad config: invalid CIDR subnet %q: %w", subnet, err)
		}
	}
	return nil
}

// BindAddress4 implements cm.BindConfig.
func (c *Config) BindAddress4() net.IP {
	if c.BindCmdAddress4 == "" {
		return net.IPv4(127, 0, 0, 1)
	}
	return net.ParseIP(c.BindCmdAddress4)
}

// BindAddress6 implements cm.BindConfig.
func (c *Config) BindAddress6() net.IP {
	if c.BindCmdAddress6 == "" {
		return net.IPv6loopback
	}
	return net.ParseIP(c.BindCmdAddress6)
}

// BindCmdPath implements cm.BindConfig.
func (c *Config) BindCmdPath() string {
	return c.CmdSocketPath
}

// CmdPort implements cm.BindConfig.
func (c *Config) CmdPort() int {
	return c.CmdPortNumber
}

// ReadConfig reads config and unmarshals it from yaml into Config.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	c := Config{}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
