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

// Package vnode holds the in-memory image of every on-storage object:
// inodes, directory segments, extent-map nodes, and data blocks. Each
// carries a reference count and the lifecycle status bits
// (placed/pseudo/pinned/cached/expired/forgot) that the cache and the
// commit path consult.
package vnode

import (
	"fmt"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/bkref"
)

// Vnode is the common header embedded by every cached object type.
// External synchronization is required; in this repository every
// Vnode is only ever touched from the single vproc goroutine.
type Vnode struct {
	vaddr  addr.Vaddr
	block  *bkref.Bkref
	refcnt int64

	placed  bool
	pseudo  bool
	pinned  bool
	cached  bool
	expired bool
	forgot  bool
}

func newVnode(va addr.Vaddr) Vnode {
	return Vnode{vaddr: va}
}

func (v *Vnode) Vaddr() addr.Vaddr { return v.vaddr }
func (v *Vnode) Ino() addr.Ino     { return v.vaddr.Ino }
func (v *Vnode) VType() addr.VType { return v.vaddr.Vtype }

func (v *Vnode) Block() *bkref.Bkref     { return v.block }
func (v *Vnode) SetBlock(b *bkref.Bkref) { v.block = b }

func (v *Vnode) Refcnt() int64 { return v.refcnt }

// Ref bumps the reference count.
func (v *Vnode) Ref() { v.refcnt++ }

// Unref decrements the reference count and reports whether it reached
// zero. It does not retire the vnode itself; vcache decides what
// zero-refcount plus expired means.
func (v *Vnode) Unref(n int64) bool {
	if n > v.refcnt {
		panic(fmt.Sprintf("vnode: unref %d exceeds refcnt %d for %s", n, v.refcnt, v.vaddr))
	}
	v.refcnt -= n
	return v.refcnt == 0
}

func (v *Vnode) Placed() bool     { return v.placed }
func (v *Vnode) SetPlaced(b bool) { v.placed = b }

func (v *Vnode) Pseudo() bool     { return v.pseudo }
func (v *Vnode) SetPseudo(b bool) { v.pseudo = b }

func (v *Vnode) Pinned() bool     { return v.pinned }
func (v *Vnode) SetPinned(b bool) { v.pinned = b }

func (v *Vnode) Cached() bool     { return v.cached }
func (v *Vnode) SetCached(b bool) { v.cached = b }

func (v *Vnode) Expired() bool     { return v.expired }
func (v *Vnode) SetExpired(b bool) { v.expired = b }

func (v *Vnode) Forgot() bool     { return v.forgot }
func (v *Vnode) SetForgot(b bool) { v.forgot = b }

// Evictable reports the eviction precondition shared by vcache.Evict
// and the vproc cache-squeeze pass: refcnt zero, not pseudo, not
// pinned, and mutable.
func (v *Vnode) Evictable() bool {
	return v.refcnt == 0 && !v.pseudo && !v.pinned && v.Mutable()
}

// Mutable reports whether the vnode may be safely mutated or evicted:
// it is not currently paging in or out. A block marked "slaved" (an
// outstanding BK_*_REQ in flight) is not mutable.
func (v *Vnode) Mutable() bool {
	if v.block == nil {
		return true
	}
	return !v.block.Slaved()
}
