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

package keys

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReloadMissingFile(t *testing.T) {
	k := New(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, k.Reload())
}

func TestReloadNoPathConfigured(t *testing.T) {
	k := New("")
	require.NoError(t, k.Reload())
}

func TestReloadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 SHA1 HEX:deadbeef\n"), 0600))
	k := New(path)
	require.NoError(t, k.Reload())
}
