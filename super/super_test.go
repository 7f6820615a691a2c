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

package super_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/config"
	"github.com/synarete/funex/super"
)

func TestNewSeedsCursorsPastReservedInos(t *testing.T) {
	fi := super.New(config.DefaultConfig())
	require.Equal(t, addr.InoRoot, fi.RootIno)

	first := fi.NextIno(addr.REG)
	second := fi.NextIno(addr.REG)
	assert.NotEqual(t, first, second)
	assert.NotEqual(t, addr.InoRoot, first)
	assert.NotEqual(t, addr.InoPsroot, first)
}

func TestNextVlbaMonotonicAndPeekDoesNotConsume(t *testing.T) {
	fi := super.New(config.DefaultConfig())
	peeked := fi.PeekVlba()
	got := fi.NextVlba()
	assert.Equal(t, peeked, got)
	assert.NotEqual(t, got, fi.NextVlba())
}

func TestCountOpDoesNotTouchMtime(t *testing.T) {
	fi := super.New(config.DefaultConfig())
	before := fi.Mtime
	fi.CountOp("READ")
	assert.Equal(t, before, fi.Mtime, "CountOp must not advance Mtime")
	assert.EqualValues(t, 1, fi.Oper["READ"])
}

func TestTouchAdvancesMtime(t *testing.T) {
	fi := super.New(config.DefaultConfig())
	before := fi.Mtime
	fi.Touch()
	assert.False(t, fi.Mtime.Before(before))
}

func TestIncStatPerVtype(t *testing.T) {
	fi := super.New(config.DefaultConfig())
	fi.IncStat(addr.DIR, 2)
	fi.IncStat(addr.REG, 3)
	fi.IncStat(addr.REG, -1)
	assert.EqualValues(t, 2, fi.Stat.Dirs)
	assert.EqualValues(t, 2, fi.Stat.Regs)
}
