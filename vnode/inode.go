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
	"time"

	"github.com/synarete/funex/addr"
)

// InitNlinkReg and InitNlinkDir are the link counts assigned on
// creation (directories start with an implicit self link plus the
// parent's reference to their own ".").
const (
	InitNlinkReg = 1
	InitNlinkDir = 2
)

// Inode is the common header for every vnode of an inode type (Dir,
// Reg, Symlnk, Reflnk). It is not itself a concrete on-storage vtype.
//
// No back-pointer to a filesystem-wide super is stored: an Inode is
// always reached through a vcache that is itself owned by exactly one
// vproc/super pair, which also keeps vnode import-free of super.
type Inode struct {
	Vnode

	Mode  uint32
	Uid   uint32
	Gid   uint32
	Nlink uint32
	Size  int64

	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Btime time.Time

	// Refino is the target of a REFLNK; NULL for every other inode type.
	Refino addr.Ino

	// Name is the single dentry binding under which this inode is
	// reachable via its parent's top-of-dir dent[] or a dirseg, valid
	// only while Nlink == 1 (multiply-linked inodes resolve names
	// purely through the directory structures that point at them).
	Name Name
}

func newInode(va addr.Ino, vtype addr.VType, mode uint32, uid, gid uint32, now time.Time) Inode {
	nlink := uint32(InitNlinkReg)
	if vtype == addr.DIR {
		nlink = InitNlinkDir
	}
	return Inode{
		Vnode: newVnode(addr.Of(vtype, va)),
		Mode:  mode,
		Uid:   uid,
		Gid:   gid,
		Nlink: nlink,
		Atime: now,
		Mtime: now,
		Ctime: now,
		Btime: now,
	}
}

// Touch refreshes ctime, and mtime too when mtimeAlso is set, matching
// the pattern every mutating operation in namei/data/permit follows.
func (in *Inode) Touch(now time.Time, mtimeAlso bool) {
	in.Ctime = now
	if mtimeAlso {
		in.Mtime = now
	}
}

func (in *Inode) IsDir() bool    { return in.VType() == addr.DIR }
func (in *Inode) IsReg() bool    { return in.VType() == addr.REG }
func (in *Inode) IsSymlnk() bool { return in.VType() == addr.SYMLNK }
func (in *Inode) IsReflnk() bool { return in.VType() == addr.REFLNK }

// AsInode returns the embedded Inode header, satisfying Inoder. Every
// concrete inode-typed vnode (Dir, Reg, Symlnk, Reflnk) implements this
// by returning the address of its own embedded field, letting namei and
// permit operate on mode/uid/nlink/name/timestamps without a type
// switch per concrete type.
func (in *Inode) AsInode() *Inode { return in }
