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

// Reg extends Inode with the head of the three-level extent map.
// Segmap0 is sized by the caller (vproc.Loader, from
// config.FileSystem.RsegSize/BlockSize) to cover exactly
// [0, RsegSize) in BlockSize-sized slots; everything at or past
// RsegSize is reached through Secmap/Segmap, populated on demand by
// the data layer.
type Reg struct {
	Inode

	Segmap0 []addr.Vaddr

	// Secmap marks which second-level Regsec children exist, keyed by
	// section index (off / RsecSize, for off >= RsecSize).
	Secmap map[int]bool

	// Segmap marks which third-level Regseg children are reachable
	// directly from the Reg (the single-tier case, for offsets in
	// [RsegSize, RsecSize)).
	Segmap map[int]bool

	RSize  int64 // logical file size
	RBcap  int64 // block-aligned max mapped extent
	RNsegs int
	RNblks int64
}

// NewReg constructs a regular-file inode; segmap0Len is the number of
// block slots segment 0 holds (RsegSize / BlockSize).
func NewReg(ino addr.Ino, mode uint32, uid, gid uint32, segmap0Len int, now time.Time) *Reg {
	return &Reg{
		Inode:   newInode(ino, addr.REG, mode, uid, gid, now),
		Segmap0: make([]addr.Vaddr, segmap0Len),
		Secmap:  make(map[int]bool),
		Segmap:  make(map[int]bool),
	}
}

func (r *Reg) HasSec(sec int) bool { return r.Secmap[sec] }

func (r *Reg) SetSec(sec int, present bool) {
	if present {
		r.Secmap[sec] = true
		return
	}
	delete(r.Secmap, sec)
}

func (r *Reg) HasSeg(seg int) bool { return r.Segmap[seg] }

func (r *Reg) SetSeg(seg int, present bool) {
	if present {
		if !r.Segmap[seg] {
			r.Segmap[seg] = true
			r.RNsegs++
		}
		return
	}
	if r.Segmap[seg] {
		delete(r.Segmap, seg)
		r.RNsegs--
	}
}

// CountNonNullSegmap0 is the segment-0 contribution to the RNblks
// accounting invariant (RNblks equals the mapped-slot count summed
// across segment 0 and every regseg).
func (r *Reg) CountNonNullSegmap0() int64 {
	var n int64
	for _, v := range r.Segmap0 {
		if !v.IsNull() {
			n++
		}
	}
	return n
}
