// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synarete/funex/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestLoadFromYamlFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "funex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
file-system:
  name-max: 100
  file-mode: "600"
pending:
  pressure-limit: 42
`), 0o644))

	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.FileSystem.NameMax)
	assert.EqualValues(t, 0o600, cfg.FileSystem.FileMode)
	assert.Equal(t, 42, cfg.Pending.PressureLimit)
	// Unspecified fields keep DefaultConfig's values.
	assert.Equal(t, 4096, cfg.FileSystem.PathMax)
}

func TestLoadWithoutFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestDumpRoundTripsThroughLoad(t *testing.T) {
	want := config.DefaultConfig()
	want.Pending.PressureLimit = 7

	text, err := want.Dump()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "funex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	got, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestOctalRoundTrip(t *testing.T) {
	var o config.Octal
	require.NoError(t, o.UnmarshalText([]byte("644")))
	assert.EqualValues(t, 0644, o)

	text, err := o.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "644", string(text))
}

func TestValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{
			name:    "zero name max",
			mutate:  func(c *config.Config) { c.FileSystem.NameMax = 0 },
			wantErr: config.NameMaxInvalidValueError,
		},
		{
			name:    "zero dir child max",
			mutate:  func(c *config.Config) { c.FileSystem.DirChildMax = 0 },
			wantErr: config.DirChildMaxInvalidValueError,
		},
		{
			name:    "non power of two block size",
			mutate:  func(c *config.Config) { c.FileSystem.BlockSize = 1000 },
			wantErr: config.BlockSizeInvalidValueError,
		},
		{
			name:    "rsec smaller than rseg",
			mutate:  func(c *config.Config) { c.FileSystem.RsecSize = 1 },
			wantErr: config.RegionTieringInvalidError,
		},
		{
			name:    "zero pressure limit",
			mutate:  func(c *config.Config) { c.Pending.PressureLimit = 0 },
			wantErr: config.PressureLimitInvalidError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tc.wantErr, err.Error())
		})
	}
}
