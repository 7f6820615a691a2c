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

package vnode

import (
	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/bkref"
)

// Handle is the common surface vcache, pending and fileref operate
// over; every concrete vnode type (*Dir, *Reg, *Dirseg, *Regsec,
// *Regseg, *Vbk, *Symlnk, *Reflnk) satisfies it through its embedded
// Vnode. Blocks and directory segments are cached alongside inodes in
// one vnode space, so the interface covers every object type, not just
// inodes.
type Handle interface {
	Vaddr() addr.Vaddr
	Ino() addr.Ino
	VType() addr.VType

	Refcnt() int64
	Ref()
	Unref(n int64) bool

	Placed() bool
	SetPlaced(bool)
	Pseudo() bool
	SetPseudo(bool)
	Pinned() bool
	SetPinned(bool)
	Cached() bool
	SetCached(bool)
	Expired() bool
	SetExpired(bool)
	Forgot() bool
	SetForgot(bool)

	Evictable() bool
	Mutable() bool

	Block() *bkref.Bkref
	SetBlock(*bkref.Bkref)
}

var (
	_ Handle = (*Dir)(nil)
	_ Handle = (*Reg)(nil)
	_ Handle = (*Dirseg)(nil)
	_ Handle = (*Regsec)(nil)
	_ Handle = (*Regseg)(nil)
	_ Handle = (*Vbk)(nil)
	_ Handle = (*Symlnk)(nil)
	_ Handle = (*Reflnk)(nil)
)

// Inoder narrows Handle to the vnode types that embed Inode (Dir, Reg,
// Symlnk, Reflnk), exposing the common inode header (mode, uid/gid,
// nlink, name, timestamps) through AsInode so namei and permit can work
// generically across every inode-typed vnode without a type switch.
type Inoder interface {
	Handle
	AsInode() *Inode
}

var (
	_ Inoder = (*Dir)(nil)
	_ Inoder = (*Reg)(nil)
	_ Inoder = (*Symlnk)(nil)
	_ Inoder = (*Reflnk)(nil)
)
