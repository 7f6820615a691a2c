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

package fileref_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/fileref"
)

func TestTieUntieRoundTrip(t *testing.T) {
	p := fileref.New(4, 1)
	ino := addr.InoCreate(10, addr.REG)

	fr := p.Tie(ino, true, true, false, false, 0, false)
	require.NotNil(t, fr)
	assert.Equal(t, ino, fr.Ino)
	assert.Equal(t, 3, p.FreeCount())

	got := p.Untie(fr)
	assert.Equal(t, ino, got)
	assert.Equal(t, 4, p.FreeCount())
}

func TestHasFreeReservationForPrivileged(t *testing.T) {
	p := fileref.New(2, 1)
	ino := addr.InoCreate(10, addr.REG)

	fr1 := p.Tie(ino, true, false, false, false, 0, false)
	require.NotNil(t, fr1)

	// One slot remains, but it is reserved for privileged callers.
	assert.False(t, p.HasFree(false))
	assert.True(t, p.HasFree(true))

	fr2 := p.Tie(ino, true, false, false, false, 0, true)
	require.NotNil(t, fr2)
	assert.Nil(t, p.Tie(ino, true, false, false, false, 0, true))
}

func TestGhostDoesNotConsumeSlot(t *testing.T) {
	p := fileref.New(1, 0)
	ino := addr.InoCreate(5, addr.REG)

	g := p.Ghost(ino)
	require.NotNil(t, g)
	assert.True(t, g.Ghost())
	assert.Equal(t, 1, p.FreeCount())

	fr := p.Tie(ino, true, true, false, false, 0, false)
	assert.NotNil(t, fr)
}
