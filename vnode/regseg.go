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

import "github.com/synarete/funex/addr"

// Regseg is the third-level extent-map leaf: an array of block-slot
// Vaddrs covering one RsegSize-wide segment.
type Regseg struct {
	Vnode

	RegIno    addr.Ino
	SegOffset int64
	Segmap    []addr.Vaddr
}

// NewRegseg builds the Vnode's address as {SPECIAL, regIno, xno} with
// xno the segment's starting byte offset, and sizes Segmap to hold one
// slot per BlockSize-sized position in the segment.
func NewRegseg(regIno addr.Ino, segOffset int64, slots int) *Regseg {
	return &Regseg{
		Vnode:     newVnode(addr.WithXno(addr.SPECIAL, regIno, uint64(segOffset))),
		RegIno:    regIno,
		SegOffset: segOffset,
		Segmap:    make([]addr.Vaddr, slots),
	}
}

func (rs *Regseg) CountNonNull() int64 {
	var n int64
	for _, v := range rs.Segmap {
		if !v.IsNull() {
			n++
		}
	}
	return n
}

func (rs *Regseg) Empty() bool { return rs.CountNonNull() == 0 }
