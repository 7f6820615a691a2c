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

// Regsec is the second-level extent-map node: it groups Regseg
// children under one RsecSize-wide section.
type Regsec struct {
	Vnode

	RegIno   addr.Ino
	SecIndex int
	Segmap   map[int]bool
}

// SecXnoTag is ORed into a Regsec's Xno to keep its address space
// disjoint from Regseg's (both are {SPECIAL, regIno, byte-offset}
// addresses; a section and the first segment it contains can share
// the same byte offset whenever RsecSize is a multiple of RsegSize, so
// the two node kinds need a distinguishing bit rather than colliding
// in the vnode cache).
const SecXnoTag uint64 = 1 << 62

// NewRegsec builds the Vnode's address as {SPECIAL, regIno, xno},
// where xno is the section's starting byte offset with SecXnoTag set.
func NewRegsec(regIno addr.Ino, secIndex int, secOffset int64) *Regsec {
	return &Regsec{
		Vnode:    newVnode(addr.WithXno(addr.SPECIAL, regIno, uint64(secOffset)|SecXnoTag)),
		RegIno:   regIno,
		SecIndex: secIndex,
		Segmap:   make(map[int]bool),
	}
}

func (rs *Regsec) HasSeg(seg int) bool { return rs.Segmap[seg] }

func (rs *Regsec) SetSeg(seg int, present bool) {
	if present {
		rs.Segmap[seg] = true
		return
	}
	delete(rs.Segmap, seg)
}

func (rs *Regsec) Empty() bool { return len(rs.Segmap) == 0 }
