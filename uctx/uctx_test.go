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

package uctx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/synarete/funex/uctx"
)

func TestSuperBypassesEverything(t *testing.T) {
	s := uctx.Super()
	assert.True(t, s.Root)
	assert.True(t, s.HasCap(uctx.CAP_ADMIN))
	assert.True(t, s.HasCap(uctx.CAP_CHOWN))
}

func TestHasCapRequiresGrant(t *testing.T) {
	c := uctx.Ctx{Caps: map[uctx.Cap]bool{uctx.CAP_FOWNER: true}}
	assert.True(t, c.HasCap(uctx.CAP_FOWNER))
	assert.False(t, c.HasCap(uctx.CAP_FSETID))
}

func TestHasCapNilCapsMapIsSafe(t *testing.T) {
	var c uctx.Ctx
	assert.False(t, c.HasCap(uctx.CAP_ADMIN))
}

func TestInGroupMatchesPrimaryGid(t *testing.T) {
	c := uctx.Ctx{Gid: 100}
	assert.True(t, c.InGroup(100))
	assert.False(t, c.InGroup(200))
}

func TestInGroupMatchesSupplementary(t *testing.T) {
	c := uctx.Ctx{Gid: 100, Groups: []uint32{200, 300}}
	assert.True(t, c.InGroup(300))
	assert.False(t, c.InGroup(400))
}
