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

// Package bkref is the in-memory, reference-counted handle for a raw
// storage block's serialized bytes. One Bkref backs each cached vnode;
// the refcount tracks how many owners (cache slot, iobuf, in-flight
// I/O job) still hold it.
//
// External synchronization is required: every Bkref in this repository
// is only ever touched from the single vproc goroutine.
package bkref

import (
	"github.com/synarete/funex/addr"
)

// Bkref is a reference-counted raw block. The same struct serves vbk
// payloads, serialized inode/dir/dirseg/regsec/regseg bodies, and the
// super block itself; vnode.Vnode.Block holds one of these per cached
// object.
type Bkref struct {
	vaddr  addr.Vaddr
	data   []byte
	refcnt int32
	slaved bool
}

// New wraps data as the backing bytes for vaddr with an initial
// reference count of one, the way a freshly spawned vnode owns its
// first reference.
func New(vaddr addr.Vaddr, data []byte) *Bkref {
	return &Bkref{vaddr: vaddr, data: data, refcnt: 1}
}

func (b *Bkref) Vaddr() addr.Vaddr { return b.vaddr }

// Bytes returns the backing slice. Callers that mutate it are expected
// to hold the only reference.
func (b *Bkref) Bytes() []byte { return b.data }

func (b *Bkref) Len() int { return len(b.data) }

// Ref increments the reference count, returning the new count for
// callers that log it.
func (b *Bkref) Ref() int32 {
	b.refcnt++
	return b.refcnt
}

// Unref decrements the reference count and reports whether it reached
// zero, at which point the caller (normally vproc's post-op drain)
// must retire the block.
func (b *Bkref) Unref() bool {
	b.refcnt--
	if b.refcnt < 0 {
		panic("bkref: refcnt went negative")
	}
	return b.refcnt == 0
}

func (b *Bkref) Refcnt() int32 { return b.refcnt }

// Slaved reports whether this block has an outstanding BK_*_REQ in
// flight to the storage layer.
func (b *Bkref) Slaved() bool { return b.slaved }

func (b *Bkref) SetSlaved(v bool) { b.slaved = v }

// Resize truncates or zero-extends the backing bytes to n.
func (b *Bkref) Resize(n int) {
	if n <= len(b.data) {
		b.data = b.data[:n]
		return
	}
	grown := make([]byte, n)
	copy(grown, b.data)
	b.data = grown
}
