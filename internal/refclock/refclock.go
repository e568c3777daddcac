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

// Package refclock is a minimal in-memory implementation of the
// cm.RefClocks collaborator.
package refclock

import (
	"sync"

	"github.com/dutchanddutch/chrony/candm"
)

// Registry holds zero or more reference-clock reports, indexed the
// same way chronyd indexes its refclock array.
type Registry struct {
	mu      sync.Mutex
	reports map[int]candm.RpyPayloadRefclock
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{reports: make(map[int]candm.RpyPayloadRefclock)}
}

// Set records (or replaces) the report at index. Indices that were
// never set stay unreported.
func (r *Registry) Set(index int, report candm.RpyPayloadRefclock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[index] = report
}

// ReportByIndex implements cm.RefClocks.
func (r *Registry) ReportByIndex(index int) (candm.RpyPayloadRefclock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reports[index]
	return rep, ok
}
