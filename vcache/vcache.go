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

// Package vcache is the vnode cache: a Vaddr -> vnode.Handle map with
// an explicit LRU recency order, plus a smaller dentry cache mapping
// (dir ino, name hash, name len) -> child ino.
//
// A vnode may only leave the cache through Evict, which enforces the
// eviction precondition (refcnt zero, non-pseudo, non-pinned,
// mutable); a referenced, pinned, or mid-paging vnode must never be
// dropped behind the vproc's back. The resident map is therefore
// unbounded here, and the vproc's cache-squeeze pass walks PeekLRU/
// Evict to bring it back under its target after every tick. The
// dentry cache is different: its entries are revalidated hints whose
// silent loss only costs a directory search, so it is bounded by
// github.com/hashicorp/golang-lru and sheds its own tail.
package vcache

import (
	"container/list"

	lru "github.com/hashicorp/golang-lru"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/vnode"
)

// DentKey is the dentry cache's key: (dir ino, name hash, name len).
type DentKey struct {
	DirIno addr.Ino
	Hash   uint64
	Len    int
}

// Cache is the vnode cache plus the dentry hint cache.
type Cache struct {
	capacity int

	// resident maps each cached vaddr to its element on the recency
	// list; the element's Value is the vnode.Handle itself. The list
	// front is most recently used, the back least.
	resident map[addr.Vaddr]*list.Element
	recency  *list.List

	pinned map[addr.Vaddr]vnode.Handle
	dentry *lru.Cache
}

// New builds a vnode cache whose squeeze target is capacity resident
// (non-pinned) vnodes. The target is advisory: Store never refuses or
// drops an entry, and the caller's squeeze pass is what brings the
// resident count back down.
func New(capacity int) *Cache {
	if capacity <= 0 {
		panic("vcache: capacity must be positive")
	}
	dentry, err := lru.New(4 * capacity)
	if err != nil {
		panic(err)
	}
	return &Cache{
		capacity: capacity,
		resident: make(map[addr.Vaddr]*list.Element),
		recency:  list.New(),
		pinned:   make(map[addr.Vaddr]vnode.Handle),
		dentry:   dentry,
	}
}

// Capacity returns the advisory squeeze target New was built with.
func (c *Cache) Capacity() int { return c.capacity }

// Lookup returns the cached vnode for va, promoting it to the MRU
// end. A vnode has Cached() true iff it is present here.
func (c *Cache) Lookup(va addr.Vaddr) (vnode.Handle, bool) {
	if h, ok := c.pinned[va]; ok {
		return h, true
	}
	el, ok := c.resident[va]
	if !ok {
		return nil, false
	}
	c.recency.MoveToFront(el)
	return el.Value.(vnode.Handle), true
}

// Store inserts h at the MRU end. Pinned vnodes (such as the root
// directory) bypass the recency list entirely
// so cache pressure can never evict them.
func (c *Cache) Store(h vnode.Handle) {
	h.SetCached(true)
	if h.Pinned() {
		c.pinned[h.Vaddr()] = h
		return
	}
	if el, ok := c.resident[h.Vaddr()]; ok {
		el.Value = h
		c.recency.MoveToFront(el)
		return
	}
	c.resident[h.Vaddr()] = c.recency.PushFront(h)
}

// Evict removes va if its vnode currently satisfies the eviction
// precondition (refcnt zero, non-pseudo, non-pinned, mutable). This
// is the only way an entry ever leaves the resident set. Returns
// false, leaving the cache untouched, if the precondition fails or
// the vaddr isn't cached.
func (c *Cache) Evict(va addr.Vaddr) bool {
	el, ok := c.resident[va]
	if !ok {
		return false
	}
	h := el.Value.(vnode.Handle)
	if !h.Evictable() {
		return false
	}
	h.SetCached(false)
	c.recency.Remove(el)
	delete(c.resident, va)
	return true
}

// PeekLRU returns the least-recently-used non-pinned vnode without
// promoting it. The vproc cache-squeeze loop inspects it, evicts if
// eligible via Evict, and stops at the first one that is not.
func (c *Cache) PeekLRU() (vnode.Handle, bool) {
	el := c.recency.Back()
	if el == nil {
		return nil, false
	}
	return el.Value.(vnode.Handle), true
}

func (c *Cache) Len() int { return len(c.resident) + len(c.pinned) }

// Dentry lookup.

func (c *Cache) LookupDentry(k DentKey) (addr.Ino, bool) {
	v, ok := c.dentry.Get(k)
	if !ok {
		return addr.InoNull, false
	}
	return v.(addr.Ino), true
}

// RemapDentry binds or unbinds a dentry cache entry:
// ino == addr.InoNull unbinds, otherwise overwrites.
func (c *Cache) RemapDentry(k DentKey, ino addr.Ino) {
	if ino.IsNull() {
		c.dentry.Remove(k)
		return
	}
	c.dentry.Add(k, ino)
}
