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

// Package addr implements the identifiers that name every on-storage
// object known to the vproc: the typed inode number (Ino), the virtual
// address (Vaddr) that combines a type tag with an inode and an extra
// number, and the virtual logical block address (Vlba) used for data
// blocks. An Ino carries its object's type in its low bits so a raw
// identifier round-trips to its VType without a side table.
package addr

import "fmt"

// VType tags the kind of on-storage object a Vaddr or Ino refers to.
type VType uint8

const (
	NONE VType = iota
	SUPER
	SPMAP
	DIR
	DIRSEG
	REG
	SYMLNK
	REFLNK
	SPECIAL
	VBK
)

func (t VType) String() string {
	switch t {
	case NONE:
		return "none"
	case SUPER:
		return "super"
	case SPMAP:
		return "spmap"
	case DIR:
		return "dir"
	case DIRSEG:
		return "dirseg"
	case REG:
		return "reg"
	case SYMLNK:
		return "symlnk"
	case REFLNK:
		return "reflnk"
	case SPECIAL:
		return "special"
	case VBK:
		return "vbk"
	default:
		return fmt.Sprintf("vtype(%d)", uint8(t))
	}
}

// vtypeBits is the number of low bits of an Ino reserved for the VType
// tag. 4 bits comfortably covers the type enum above with room to grow.
const vtypeBits = 4
const vtypeMask = (1 << vtypeBits) - 1

// Ino is a 64-bit inode number whose low vtypeBits bits encode the
// object's VType, so any Ino can be mapped back to its type without a
// lookup.
type Ino uint64

// INO_NULL, INO_ROOT and INO_PSROOT are the reserved inode numbers.
// INO_ROOT is the filesystem's root directory; INO_PSROOT is the
// in-memory pseudo-root ("/.fnx") that is never placed on storage.
var (
	InoNull   = Ino(0)
	InoRoot   = InoCreate(1, DIR)
	InoPsroot = InoCreate(2, DIR)
)

// InoCreate packs a base identifier and a VType into an Ino.
func InoCreate(base uint64, vt VType) Ino {
	return Ino(base<<vtypeBits) | Ino(vt&vtypeMask)
}

// VType extracts the type tag packed into the Ino.
func (i Ino) VType() VType {
	return VType(i & vtypeMask)
}

// Base extracts the counter portion of the Ino (without its type tag).
func (i Ino) Base() uint64 {
	return uint64(i >> vtypeBits)
}

func (i Ino) IsNull() bool { return i == InoNull }

func (i Ino) String() string {
	if i.IsNull() {
		return "ino(null)"
	}
	return fmt.Sprintf("ino(%d/%s)", i.Base(), i.VType())
}

// Vlba is a virtual logical block address, drawn from the super's LBA
// allocation cursor and used as the Ino component of VBK vaddrs.
type Vlba uint64

// Vaddr identifies any on-storage object: an inode, a directory segment,
// a section/segment extent node, a super/spmap page, or a data block.
// A Vaddr is null iff Vtype == NONE.
type Vaddr struct {
	Vtype VType
	Ino   Ino
	// Xno is an extra discriminator: the directory-segment index for
	// DIRSEG vaddrs, or the byte offset for REG-region section/segment
	// addressing. Unused (zero) for plain inode vaddrs.
	Xno uint64
}

// NullVaddr is the zero value: Vtype == NONE.
var NullVaddr = Vaddr{}

func (v Vaddr) IsNull() bool { return v.Vtype == NONE }

// Of builds a Vaddr for a plain inode-typed object (no extra number).
func Of(vt VType, ino Ino) Vaddr {
	return Vaddr{Vtype: vt, Ino: ino}
}

// WithXno builds a Vaddr for an object discriminated by an extra number,
// e.g. a DIRSEG keyed by (dir ino, segment index) or a REG section/segment
// keyed by (reg ino, byte offset floor).
func WithXno(vt VType, ino Ino, xno uint64) Vaddr {
	return Vaddr{Vtype: vt, Ino: ino, Xno: xno}
}

// VblkAddr builds the Vaddr of a data block given its virtual LBA. Data
// blocks are inode-less: their Ino is allocated from the super's
// block-namespace cursor, distinct from the regular inode cursor.
func VblkAddr(lba Vlba) Vaddr {
	return Vaddr{Vtype: VBK, Ino: Ino(lba)}
}

func (v Vaddr) String() string {
	if v.IsNull() {
		return "vaddr(null)"
	}
	if v.Xno != 0 {
		return fmt.Sprintf("vaddr(%s,%s,%d)", v.Vtype, v.Ino, v.Xno)
	}
	return fmt.Sprintf("vaddr(%s,%s)", v.Vtype, v.Ino)
}

// Key returns a value suitable for use as a Go map key, since Vaddr is
// already comparable (all fields are plain scalars); it is provided so
// call sites that want a named type for cache keys don't depend on the
// struct's field layout directly.
type Key = Vaddr

func (v Vaddr) AsKey() Key { return v }
