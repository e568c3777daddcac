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

// Package keys is a minimal implementation of the cm.Keys
// collaborator: a symmetric-key table re-read from a file on REKEY.
package keys

import (
	"fmt"
	"os"
	"sync"
)

// Table holds a reload-on-demand key file.
type Table struct {
	mu   sync.Mutex
	path string
	raw  []byte
}

// New creates a Table that reloads from path.
func New(path string) *Table {
	return &Table{path: path}
}

// Reload implements cm.Keys.
func (t *Table) Reload() error {
	if t.path == "" {
		return nil
	}
	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("keys: reload %s: %w", t.path, err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raw = data
	return nil
}
