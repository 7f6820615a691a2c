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

package dispatch

import (
	"time"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/uctx"
)

// uctxCtx is a local alias for the caller identity type; every
// handler takes one as its first argument.
type uctxCtx = uctx.Ctx

// Mode type bits this package ORs into a freshly created inode's Mode
// alongside the caller-supplied permission bits, mirroring the POSIX
// S_IFMT convention GETATTR/READDIR responses must report.
const (
	modeDir    uint32 = 0o040000
	modeReg    uint32 = 0o100000
	modeLnk    uint32 = 0o120000
	modeFmtBit uint32 = 0o170000
)

func typeBitsOf(vt addr.VType) uint32 {
	switch vt {
	case addr.DIR:
		return modeDir
	case addr.SYMLNK:
		return modeLnk
	default:
		return modeReg
	}
}

// Open/Create flag bits this package consults, matching the Linux
// O_* values the FUSE upcall layer forwards verbatim.
const (
	OWronly  uint32 = 0o1
	ORdwr    uint32 = 0o2
	OAppend  uint32 = 0o2000
	OTrunc   uint32 = 0o1000
	ONoatime uint32 = 0o1000000
)

// Iattr is the client-visible attribute snapshot every op that
// touches an inode returns.
type Iattr struct {
	Ino   addr.Ino
	Mode  uint32
	Uid   uint32
	Gid   uint32
	Nlink uint32
	Size  int64
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

// SetattrValid is a bitmask of which SetattrReq fields the caller
// actually wants applied, the same "which fields are present" shape
// FUSE's SetAttrRequest.Valid carries.
type SetattrValid uint32

const (
	SetMode SetattrValid = 1 << iota
	SetUid
	SetGid
	SetSize
	SetAtime
	SetMtime
)

// SetattrReq carries SETATTR's optional new values.
type SetattrReq struct {
	Valid SetattrValid
	Mode  uint32
	Uid   uint32
	Gid   uint32
	Size  int64
	Atime time.Time
	Mtime time.Time
}

// DirEntry is one readdir result: name, child ino, mode, and the
// offset to resume the enumeration from.
type DirEntry struct {
	Name    string
	Ino     addr.Ino
	Mode    uint32
	NextOff int64
}

// FsinfoOut carries the super block's counters, surfaced by both
// STATFS (classic statvfs-style fields) and FSINFO (the wider
// introspection shape).
type FsinfoOut struct {
	BlockSize  int64
	Blocks     int64
	BlocksFree int64
	Files      int64
	FilesFree  int64
	NameMax    int

	Dirs    int64
	Regs    int64
	Symlnks int64
	Reflnks int64
	Dirsegs int64
	Vblks   int64

	Oper map[string]int64
}

// FqueryOut is a per-vnode introspection result: mode, refcnt and
// status bits for one vaddr.
type FqueryOut struct {
	Ino     addr.Ino
	VType   addr.VType
	Mode    uint32
	Refcnt  int64
	Placed  bool
	Pseudo  bool
	Pinned  bool
	Cached  bool
	Expired bool
	Forgot  bool
}
