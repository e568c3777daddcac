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

package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dutchanddutch/chrony/access"
	"github.com/dutchanddutch/chrony/cm"
	"github.com/dutchanddutch/chrony/cmstats"
	"github.com/dutchanddutch/chrony/config"
	"github.com/dutchanddutch/chrony/internal/clientlog"
	"github.com/dutchanddutch/chrony/internal/keys"
	"github.com/dutchanddutch/chrony/internal/localclock"
	"github.com/dutchanddutch/chrony/internal/manual"
	"github.com/dutchanddutch/chrony/internal/refclock"
	"github.com/dutchanddutch/chrony/internal/reference"
	"github.com/dutchanddutch/chrony/internal/rtc"
	"github.com/dutchanddutch/chrony/internal/smooth"
	"github.com/dutchanddutch/chrony/internal/sources"
	"github.com/dutchanddutch/chrony/sched"
	"github.com/dutchanddutch/chrony/transport"
)

func main() {
	var configFile, logLevel string
	flag.StringVar(&configFile, "config", "/etc/chronyd-cm.yaml", "Path to the command and monitoring config file")
	flag.StringVar(&logLevel, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	flag.Parse()

	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("unrecognized log level: %v", logLevel)
	}

	cfg, err := config.ReadConfig(configFile)
	if err != nil {
		log.Fatalf("failed to read config: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	tm := &transport.Manager{}
	if cfg.CmdPort() != 0 {
		if sock, err := transport.ListenInet4(cfg.BindAddress4(), cfg.CmdPort()); err != nil {
			log.WithError(err).Warn("failed to open IPv4 command socket")
		} else {
			tm.Inet4 = sock
		}
		if sock, err := transport.ListenInet6(cfg.BindAddress6(), cfg.CmdPort()); err != nil {
			log.WithError(err).Warn("failed to open IPv6 command socket")
		} else {
			tm.Inet6 = sock
		}
		if tm.Inet4 == nil && tm.Inet6 == nil {
			return fmt.Errorf("chronyd: command port %d requested but neither IPv4 nor IPv6 socket could be opened", cfg.CmdPort())
		}
	}
	if cfg.BindCmdPath() != "" {
		sock, err := transport.OpenLocalSocket(cfg.BindCmdPath())
		if err != nil {
			return fmt.Errorf("chronyd: opening filesystem command socket: %w", err)
		}
		tm.Unix = sock
	}
	defer tm.Close()

	stats := cmstats.New()
	collab := cm.Collaborators{
		Sources:    sources.New(),
		RefClocks:  refclock.New(),
		LocalClock: localclock.New(),
		Reference:  reference.New(),
		Manual:     manual.New(),
		Smooth:     smooth.New(cfg.SmoothEnabled),
		Rtc:        rtc.New(cfg.RTCDevice, cfg.RTCDevice != ""),
		ClientLog:  clientlog.New(cfg.ClientLogSize),
		Keys:       keys.New(cfg.KeysFile),
	}

	d := cm.New(collab, tm, stats)
	for _, subnet := range cfg.AllowCmd {
		addAccessSubnet(d.CmdAccess(), subnet, true)
	}
	for _, subnet := range cfg.DenyCmd {
		addAccessSubnet(d.CmdAccess(), subnet, false)
	}
	d.Init()

	s := sched.New()
	for _, sock := range []*transport.Socket{tm.Inet4, tm.Inet6, tm.Unix} {
		if sock == nil {
			continue
		}
		sock := sock
		if err := s.Register(sock.Fd(), func(int) { pollSocket(d, sock) }); err != nil {
			return fmt.Errorf("chronyd: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.Run()
	})
	if cfg.MetricsListenAddress != "" {
		eg.Go(func() error {
			return serveMetrics(ctx, cfg.MetricsListenAddress, stats)
		})
	}
	eg.Go(func() error {
		<-ctx.Done()
		s.Stop()
		return nil
	})

	return eg.Wait()
}

func pollSocket(d *cm.Dispatcher, sock *transport.Socket) {
	for {
		pkt, ok, err := sock.Recv()
		if err != nil {
			log.WithError(err).WithField("origin", sock.Origin()).Warn("chronyd: recv failed")
			return
		}
		if !ok {
			return
		}
		d.HandlePacket(pkt)
	}
}

func addAccessSubnet(table *access.Table, cidr string, allow bool) {
	_, subnet, err := net.ParseCIDR(cidr)
	if err != nil {
		log.WithError(err).WithField("cidr", cidr).Warn("chronyd: skipping invalid access subnet")
		return
	}
	decision := access.DecisionDeny
	if allow {
		decision = access.DecisionAllow
	}
	table.Add(subnet, decision, false)
}

func serveMetrics(ctx context.Context, addr string, stats *cmstats.Stats) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(stats.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("chronyd: metrics server: %w", err)
	}
	return nil
}
