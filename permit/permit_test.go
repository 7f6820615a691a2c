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

package permit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/synarete/funex/config"
	"github.com/synarete/funex/permit"
	"github.com/synarete/funex/uctx"
)

func TestLetReadOnlyRejectsMutation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mount.ReadOnly = true
	g := permit.New(cfg)

	assert.False(t, g.LetReadOnly().OK())
	assert.False(t, g.LetModify(0).OK())
}

func TestLetModifyBackpressure(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pending.PressureLimit = 5
	g := permit.New(cfg)

	e := g.LetModify(10)
	assert.False(t, e.OK())
}

func TestAccessOwnerGroupOther(t *testing.T) {
	const mode = 0o640 // rw- r-- ---
	owner := uctx.Ctx{Uid: 100, Gid: 200}
	group := uctx.Ctx{Uid: 101, Gid: 200}
	other := uctx.Ctx{Uid: 102, Gid: 300}

	assert.True(t, permit.Access(mode, 100, 200, owner, permit.AccessRead|permit.AccessWrite))
	assert.True(t, permit.Access(mode, 100, 200, group, permit.AccessRead))
	assert.False(t, permit.Access(mode, 100, 200, group, permit.AccessWrite))
	assert.False(t, permit.Access(mode, 100, 200, other, permit.AccessRead))
}

func TestAccessRootBypassesPermsButNotExec(t *testing.T) {
	root := uctx.Super()
	assert.True(t, permit.Access(0o000, 1, 1, root, permit.AccessRead|permit.AccessWrite))
	assert.False(t, permit.Access(0o000, 1, 1, root, permit.AccessExec))
	assert.True(t, permit.Access(0o100, 1, 1, root, permit.AccessExec))
}

func TestLetStickyOwnerExceptions(t *testing.T) {
	dirUid := uint32(5)
	childUid := uint32(6)

	owner := uctx.Ctx{Uid: dirUid}
	assert.True(t, permit.LetSticky(0o1777, dirUid, childUid, owner).OK())

	childOwner := uctx.Ctx{Uid: childUid}
	assert.True(t, permit.LetSticky(0o1777, dirUid, childUid, childOwner).OK())

	stranger := uctx.Ctx{Uid: 99}
	assert.False(t, permit.LetSticky(0o1777, dirUid, childUid, stranger).OK())
}

func TestClearSuidSgid(t *testing.T) {
	mode := uint32(0o4755) // suid set
	caller := uctx.Ctx{Uid: 1}

	cleared := permit.ClearSuidSgid(mode, caller, false)
	assert.Equal(t, uint32(0), cleared&permit.ModeSUID)

	withCap := uctx.Ctx{Uid: 1, Caps: map[uctx.Cap]bool{uctx.CAP_CHOWN: true}}
	kept := permit.ClearSuidSgid(mode, withCap, false)
	assert.NotZero(t, kept&permit.ModeSUID)
}

func TestLetChildCountAndNlink(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.FileSystem.DirChildMax = 2
	cfg.FileSystem.LinkMax = 2
	g := permit.New(cfg)

	assert.True(t, g.LetChildCount(1).OK())
	assert.False(t, g.LetChildCount(2).OK())

	assert.True(t, g.LetNlink(1).OK())
	assert.False(t, g.LetNlink(2).OK())
}
