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

package config

// DefaultConfig returns the configuration used when no override has
// been parsed yet.
func DefaultConfig() Config {
	return Config{
		FileSystem: FileSystemConfig{
			FileMode:    0644,
			DirMode:     0755,
			NameMax:     255,
			PathMax:     4096,
			DirChildMax: 1 << 16,
			LinkMax:     1 << 16,
			FilerefMax:  4096,
			BlockSize:   8192,
			RsegSize:    1 << 20,
			RsecSize:    1 << 26,
			RegSizeMax:  1 << 40,
		},
		Mount: MountConfig{
			ReadOnly: false,
			Noatime:  false,
		},
		Pending: PendingConfig{
			// Historically a hard-coded constant; kept as the default
			// but now a tuning knob.
			PressureLimit: 100000,
			BurstLimit:    1024,
		},
	}
}
