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

// Reserved readdir offsets. DoffSelf and DoffParent yield "." and
// ".." before the real entries begin at DoffBegin; DoffNone terminates
// the enumeration.
const (
	DoffSelf   = -2
	DoffParent = -1
	DoffBegin  = 0
	DoffNone   = -3
)

// DentTopCap bounds the number of top-of-dir entries kept inline in
// the Dir vnode itself before a name must overflow into a hashed
// Dirseg.
const DentTopCap = 16

// Dent is a single directory entry. Doff is the slot's position for
// readdir purposes; a null Ino marks an empty slot.
type Dent struct {
	Name Name
	Ino  addr.Ino
	Mode uint32
	Doff int64
}

func (d *Dent) Empty() bool { return d.Ino.IsNull() }

// Dir extends Inode with the top-of-dir entry array and the hashed
// dirseg bitmap.
type Dir struct {
	Inode

	// Nchilds is the number of entries visible in the namespace:
	// top-of-dir entries plus the sum over every materialized dirseg.
	Nchilds int

	Dent [DentTopCap]Dent

	// Segmap marks which hash_to_dseg buckets have a materialized
	// Dirseg; Nsegs is its popcount.
	Segmap map[int]bool
	Nsegs  int

	// ParentdIno is an explicit back-reference, never an owning
	// pointer; the parent is resolved through the cache by ino.
	ParentdIno addr.Ino
}

// NewDir constructs a directory inode; the self/parent references are
// already accounted in its initial Nlink.
func NewDir(ino addr.Ino, mode uint32, uid, gid uint32, parent addr.Ino, now time.Time) *Dir {
	d := &Dir{
		Inode:      newInode(ino, addr.DIR, mode, uid, gid, now),
		Segmap:     make(map[int]bool),
		ParentdIno: parent,
	}
	return d
}

// FindTop searches the inline dent[] array for a matching (hash, len)
// candidate. Returns the slot index, or -1.
func (d *Dir) FindTop(name Name) int {
	for i := range d.Dent {
		e := &d.Dent[i]
		if e.Empty() {
			continue
		}
		if e.Name.Hash == name.Hash && e.Name.Len == name.Len {
			return i
		}
	}
	return -1
}

// PredictTop finds a free top-of-dir slot, or -1 if the array is full.
func (d *Dir) PredictTop() int {
	for i := range d.Dent {
		if d.Dent[i].Empty() {
			return i
		}
	}
	return -1
}

// InsertTop writes an entry at slot i and bumps Nchilds.
func (d *Dir) InsertTop(i int, name Name, ino addr.Ino, mode uint32) {
	d.Dent[i] = Dent{Name: name, Ino: ino, Mode: mode, Doff: int64(i)}
	d.Nchilds++
}

// RemoveTop clears slot i and decrements Nchilds.
func (d *Dir) RemoveTop(i int) {
	d.Dent[i] = Dent{}
	d.Nchilds--
}

func (d *Dir) HasSeg(dseg int) bool { return d.Segmap[dseg] }

func (d *Dir) SetSeg(dseg int, present bool) {
	if present {
		if !d.Segmap[dseg] {
			d.Segmap[dseg] = true
			d.Nsegs++
		}
		return
	}
	if d.Segmap[dseg] {
		delete(d.Segmap, dseg)
		d.Nsegs--
	}
}

// Empty reports whether the directory has no visible children besides
// "." and "..", the precondition rmdir/rename-override check against
// ENOTEMPTY.
func (d *Dir) Empty() bool { return d.Nchilds == 0 }
