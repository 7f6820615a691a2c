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

// Package config holds the vproc's tuning knobs: structural limits
// (name/path length, directory child count, link count, open-file
// capacity, block/segment/section sizes), mount-wide policy flags
// (read-only, noatime), and the pending-queue pressure threshold. A
// plain struct with yaml tags, bound to pflag/viper flags and decoded
// with mapstructure.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config collects every tunable consulted by permit, data, namei,
// fileref and vproc.
type Config struct {
	FileSystem FileSystemConfig `yaml:"file-system" mapstructure:"file-system"`
	Mount      MountConfig      `yaml:"mount" mapstructure:"mount"`
	Pending    PendingConfig    `yaml:"pending" mapstructure:"pending"`
}

// FileSystemConfig holds the structural limits and ownership bits
// consulted by the super and by every operation's let-phase.
type FileSystemConfig struct {
	Uid      uint32 `yaml:"uid" mapstructure:"uid"`
	Gid      uint32 `yaml:"gid" mapstructure:"gid"`
	FileMode Octal  `yaml:"file-mode" mapstructure:"file-mode"`
	DirMode  Octal  `yaml:"dir-mode" mapstructure:"dir-mode"`

	NameMax     int `yaml:"name-max" mapstructure:"name-max"`
	PathMax     int `yaml:"path-max" mapstructure:"path-max"`
	DirChildMax int `yaml:"dir-child-max" mapstructure:"dir-child-max"`
	LinkMax     int `yaml:"link-max" mapstructure:"link-max"`
	FilerefMax  int `yaml:"fileref-max" mapstructure:"fileref-max"`

	BlockSize  int64 `yaml:"block-size" mapstructure:"block-size"`
	RsegSize   int64 `yaml:"rseg-size" mapstructure:"rseg-size"`
	RsecSize   int64 `yaml:"rsec-size" mapstructure:"rsec-size"`
	RegSizeMax int64 `yaml:"reg-size-max" mapstructure:"reg-size-max"`
}

// MountConfig holds the mount-wide policy flags.
type MountConfig struct {
	ReadOnly bool `yaml:"read-only" mapstructure:"read-only"`
	Noatime  bool `yaml:"noatime" mapstructure:"noatime"`
}

// PendingConfig tunes storage backpressure.
type PendingConfig struct {
	// PressureLimit is the pending-queue depth at which the permission
	// gate starts returning PEND for new mutating operations.
	PressureLimit int `yaml:"pressure-limit" mapstructure:"pressure-limit"`

	// BurstLimit is the token-bucket burst size backing the same check
	// (see permit.Gate, built on golang.org/x/time/rate).
	BurstLimit int `yaml:"burst-limit" mapstructure:"burst-limit"`
}

// BindFlags registers the command-line flags a host process would use
// to override defaults. The vproc core itself never parses flags; this
// exists so an embedding daemon can bind them to the same viper keys
// Load decodes.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.Uint32P("uid", "", 0, "Owning uid for all inodes.")
	flagSet.Uint32P("gid", "", 0, "Owning gid for all inodes.")
	flagSet.BoolP("read-only", "", false, "Mount the filesystem read-only.")
	flagSet.BoolP("noatime", "", true, "Suppress atime-only commits on read.")
	flagSet.IntP("pending-pressure-limit", "", DefaultConfig().Pending.PressureLimit, "Pending-queue depth that triggers backpressure.")

	for _, pair := range [][2]string{
		{"uid", "file-system.uid"},
		{"gid", "file-system.gid"},
		{"read-only", "mount.read-only"},
		{"noatime", "mount.noatime"},
		{"pending-pressure-limit", "pending.pressure-limit"},
	} {
		if err := viper.BindPFlag(pair[1], flagSet.Lookup(pair[0])); err != nil {
			return err
		}
	}

	return nil
}

// Load reads cfgFile (a YAML document in the shape of Config) into v and
// unmarshals the result, falling back to whatever flags BindFlags
// already bound when cfgFile is empty. An empty path means "flags and
// defaults only"; a non-empty one is read with viper's own YAML
// support and merged over the bound flag values.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	cfg := DefaultConfig()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("reading config file %q: %w", cfgFile, err)
		}
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

// Dump renders c back to YAML, the same tags Load decodes from, for the
// FSINFO/FQUERY introspection opcodes to surface the active tuning to a
// caller without hand-formatting each field.
func (c Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(out), nil
}
