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

package vproc

import (
	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/dispatch"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/pstor"
)

// Vproc is the mounted filesystem's single cooperative scheduler: it
// never blocks a calling goroutine on I/O, instead suspending a
// dispatch.Task and relying on Tick to re-drive it once whatever it
// was waiting on resolves. There is no goroutine pool to block in;
// suspend-and-retry is the only waiting mechanism.
type Vproc struct {
	d     *dispatch.Dispatch
	store pstor.Store

	// cacheTarget is the resident vnode count squeezeCache tries to
	// bring the cache back down to after every tick.
	cacheTarget int

	// delayed tracks vaddrs whose CommitVnode was accepted but is
	// still in flight (DELAY); drainCompletions clears each one when
	// its completion arrives. A vnode is never dropped from the
	// commit pipeline while an entry remains here.
	delayed map[addr.Vaddr]bool
}

// New builds a Vproc driving d's staged/pended queues against store.
func New(d *dispatch.Dispatch, store pstor.Store, cacheTarget int) *Vproc {
	return &Vproc{
		d:           d,
		store:       store,
		cacheTarget: cacheTarget,
		delayed:     make(map[addr.Vaddr]bool),
	}
}

// DelayedLen reports how many commits are still in flight, for tests
// and introspection.
func (v *Vproc) DelayedLen() int { return len(v.delayed) }

// Tick runs exactly one cooperative scheduling pass: commit every
// vnode staged by whatever operation(s) ran since the last tick,
// drain any asynchronous commit completions that arrived on ch
// (nil is fine; a synchronous pstor.Store never populates one),
// retry every suspended task once, and squeeze the cache back toward
// its target occupancy. It never blocks.
func (v *Vproc) Tick(ch <-chan addr.Vaddr) {
	v.commitDrain()
	v.drainCompletions(ch)
	v.pendingDrain()
	v.squeezeCache()
}

// commitDrain walks the staged sequence front-to-back, handing each
// dirtied vnode to pstor.Store.CommitVnode. A DELAY result moves the
// vaddr to the delayed set, where it stays until drainCompletions
// observes the settled write; any other failure re-stages it for the
// next tick. The walk is bounded by the sequence's length on entry so
// a persistently failing commit retries across ticks instead of
// spinning inside one; a staged vnode that is still cached is never
// simply discarded, while a vaddr no longer in the cache is dropped.
func (v *Vproc) commitDrain() {
	q := v.d.Pending()
	cache := v.d.Cache()
	n := q.StagedLen()
	for i := 0; i < n && q.HasStaged(); i++ {
		va := q.SFront()
		h, ok := cache.Lookup(va)
		if !ok {
			continue
		}
		switch toErrno(v.store.CommitVnode(h)) {
		case 0:
		case errno.DELAY:
			v.delayed[va] = true
		default:
			q.Stage(va)
		}
	}
}

// drainCompletions consumes every vaddr posted to ch since the last
// tick without blocking, resolving each one's entry in the delayed
// set. A resolved commit needs no further action of its own
// (CommitVnode already applied it); the drain also gives the
// pending-drain pass a reason to run promptly rather than waiting for
// the next unrelated operation to trigger one.
func (v *Vproc) drainCompletions(ch <-chan addr.Vaddr) {
	if ch == nil {
		return
	}
	for {
		select {
		case va := <-ch:
			delete(v.delayed, va)
		default:
			return
		}
	}
}

// pendingDrain re-executes every currently pended task exactly once.
// A task that still returns errno.PEND goes back on the tail of the
// queue for the next tick (RunCount lets callers observe how many
// times it has been retried); any other outcome unpends it and, if
// the original caller supplied one, invokes its Reply callback with
// the final status.
func (v *Vproc) pendingDrain() {
	q := v.d.Pending()
	n := q.PendedLen()
	for i := 0; i < n; i++ {
		t := q.PFront()
		t.RunCount++
		e := t.Exec()
		if e == errno.PEND {
			q.Pend(t)
			continue
		}
		if t.Reply != nil {
			t.Reply(e)
		}
	}
}

// squeezeCache evicts least-recently-used, evictable vnodes (refcnt
// zero, non-pseudo, non-pinned, mutable) until the cache is back at
// or under cacheTarget, retiring each evicted vnode's storage-side
// handle.
// It stops the moment PeekLRU's least-recently-used entry is not
// evictable, since everything behind it in LRU order is at least as
// recently used and therefore no more eligible.
func (v *Vproc) squeezeCache() {
	if v.cacheTarget <= 0 {
		return
	}
	cache := v.d.Cache()
	for cache.Len() > v.cacheTarget {
		h, ok := cache.PeekLRU()
		if !ok {
			return
		}
		if !cache.Evict(h.Vaddr()) {
			return
		}
		v.store.RetireVnode(h)
	}
}
