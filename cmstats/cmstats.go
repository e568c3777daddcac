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

// Package cmstats exposes Prometheus counters for the command and
// monitoring core: bad packets, replies by status, and hits per
// opcode. The registration/registry shape follows
// ptp/sptp/stats/prom_exporter.go; unlike that exporter this package
// is scraped in-process rather than polling a second HTTP endpoint,
// since the dispatcher can increment its own counters directly.
package cmstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dutchanddutch/chrony/candm"
)

// Stats holds every metric the command and monitoring core emits.
type Stats struct {
	Registry *prometheus.Registry

	BadPackets    prometheus.Counter
	RepliesByCode *prometheus.CounterVec
	OpcodeHits    *prometheus.CounterVec
	AccessDenied  prometheus.Counter
}

// New creates and registers the full metric set against a fresh
// registry.
func New() *Stats {
	s := &Stats{
		Registry: prometheus.NewRegistry(),
		BadPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chrony_cm",
			Name:      "bad_packets_total",
			Help:      "Packets rejected by the validation pipeline before a handler ran.",
		}),
		RepliesByCode: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chrony_cm",
			Name:      "replies_total",
			Help:      "Replies sent, labeled by status code.",
		}, []string{"status"}),
		OpcodeHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chrony_cm",
			Name:      "opcode_hits_total",
			Help:      "Replies sent, labeled by request opcode.",
		}, []string{"opcode"}),
		AccessDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chrony_cm",
			Name:      "access_denied_total",
			Help:      "Packets silently dropped by the CIDR access table.",
		}),
	}
	s.Registry.MustRegister(s.BadPackets, s.RepliesByCode, s.OpcodeHits, s.AccessDenied)
	return s
}

// ObserveReply records one emitted reply.
func (s *Stats) ObserveReply(op candm.Opcode, status candm.Status) {
	s.OpcodeHits.WithLabelValues(op.String()).Inc()
	s.RepliesByCode.WithLabelValues(status.String()).Inc()
}
