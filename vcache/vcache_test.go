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

package vcache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/vcache"
	"github.com/synarete/funex/vnode"
)

func TestStoreAndLookup(t *testing.T) {
	c := vcache.New(16)
	d := vnode.NewDir(addr.InoCreate(5, addr.DIR), 0755, 0, 0, addr.InoRoot, time.Now())

	_, ok := c.Lookup(d.Vaddr())
	assert.False(t, ok)

	c.Store(d)
	got, ok := c.Lookup(d.Vaddr())
	require.True(t, ok)
	assert.Equal(t, d.Vaddr(), got.Vaddr())
	assert.True(t, got.Cached())
}

func TestEvictRefusesReferenced(t *testing.T) {
	c := vcache.New(16)
	d := vnode.NewDir(addr.InoCreate(5, addr.DIR), 0755, 0, 0, addr.InoRoot, time.Now())
	c.Store(d)

	d.Ref()
	assert.False(t, c.Evict(d.Vaddr()), "a referenced vnode must not be evictable")

	d.Unref(1)
	assert.True(t, c.Evict(d.Vaddr()))

	_, ok := c.Lookup(d.Vaddr())
	assert.False(t, ok)
}

func TestStoreNeverDropsReferencedUnderPressure(t *testing.T) {
	c := vcache.New(1)
	busy := vnode.NewDir(addr.InoCreate(3, addr.DIR), 0755, 0, 0, addr.InoRoot, time.Now())
	busy.Ref()
	c.Store(busy)

	// Push far past the advisory capacity; a referenced vnode must
	// still be reachable, since only an explicit Evict may remove one.
	for i := 10; i < 20; i++ {
		c.Store(vnode.NewDir(addr.InoCreate(uint64(i), addr.DIR), 0755, 0, 0, addr.InoRoot, time.Now()))
	}

	_, ok := c.Lookup(busy.Vaddr())
	require.True(t, ok, "referenced vnode dropped by cache pressure")
	assert.False(t, c.Evict(busy.Vaddr()))
}

func TestPinnedBypassesLRU(t *testing.T) {
	c := vcache.New(1)
	root := vnode.NewDir(addr.InoRoot, 0755, 0, 0, addr.InoRoot, time.Now())
	root.SetPinned(true)
	c.Store(root)

	other := vnode.NewDir(addr.InoCreate(9, addr.DIR), 0755, 0, 0, addr.InoRoot, time.Now())
	c.Store(other)

	_, ok := c.Lookup(root.Vaddr())
	assert.True(t, ok, "pinned vnode must survive LRU pressure")
	assert.False(t, c.Evict(root.Vaddr()))
}

func TestDentryRemapNullUnbinds(t *testing.T) {
	c := vcache.New(16)
	key := vcache.DentKey{DirIno: addr.InoRoot, Hash: 42, Len: 3}

	c.RemapDentry(key, addr.InoCreate(7, addr.REG))
	ino, ok := c.LookupDentry(key)
	require.True(t, ok)
	assert.Equal(t, addr.InoCreate(7, addr.REG), ino)

	c.RemapDentry(key, addr.InoNull)
	_, ok = c.LookupDentry(key)
	assert.False(t, ok)
}

func TestPeekLRUReturnsOldestWithoutRemoving(t *testing.T) {
	c := vcache.New(16)
	a := vnode.NewDir(addr.InoCreate(1, addr.DIR), 0755, 0, 0, addr.InoRoot, time.Now())
	b := vnode.NewDir(addr.InoCreate(2, addr.DIR), 0755, 0, 0, addr.InoRoot, time.Now())
	c.Store(a)
	c.Store(b)

	h, ok := c.PeekLRU()
	require.True(t, ok)
	assert.Equal(t, a.Vaddr(), h.Vaddr())

	// PeekLRU must not remove the entry.
	_, ok = c.Lookup(a.Vaddr())
	assert.True(t, ok)
}
