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

import "errors"

const (
	NameMaxInvalidValueError     = "name-max must be positive"
	DirChildMaxInvalidValueError = "dir-child-max must be positive"
	LinkMaxInvalidValueError     = "link-max must be positive"
	BlockSizeInvalidValueError   = "block-size must be a positive power of two"
	RegionTieringInvalidError    = "rseg-size must be <= rsec-size <= reg-size-max"
	PressureLimitInvalidError    = "pending.pressure-limit must be positive"
)

// Validate checks the structural limits the rest of the core assumes
// hold.
func (c Config) Validate() error {
	fs := c.FileSystem

	if fs.NameMax <= 0 {
		return errors.New(NameMaxInvalidValueError)
	}
	if fs.DirChildMax <= 0 {
		return errors.New(DirChildMaxInvalidValueError)
	}
	if fs.LinkMax <= 0 {
		return errors.New(LinkMaxInvalidValueError)
	}
	if fs.BlockSize <= 0 || fs.BlockSize&(fs.BlockSize-1) != 0 {
		return errors.New(BlockSizeInvalidValueError)
	}
	if !(fs.RsegSize <= fs.RsecSize && fs.RsecSize <= fs.RegSizeMax) {
		return errors.New(RegionTieringInvalidError)
	}
	if c.Pending.PressureLimit <= 0 {
		return errors.New(PressureLimitInvalidError)
	}

	return nil
}
