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

// DsegCap bounds the entries held by one hashed directory segment
// node.
const DsegCap = 64

// Dirseg is a hashed directory-segment node, keyed by (dir_ino,
// dseg_index), created on demand when a name collides with no free
// top-of-dir slot and expired again when it empties.
type Dirseg struct {
	Vnode

	DirIno    addr.Ino
	DsegIndex int
	Dent      [DsegCap]Dent
	Nchilds   int
}

// NewDirseg builds the Vnode's address as {DIRSEG, dirIno, dsegIndex},
// the same (dir_ino, dseg_index) key namei.Dirseg/ensureDirseg look
// vnodes up by; ino is accepted for symmetry with the other
// constructors but does not participate in addressing, since a dirseg
// has no identity of its own beyond its owning directory and index.
func NewDirseg(ino addr.Ino, dirIno addr.Ino, dsegIndex int) *Dirseg {
	return &Dirseg{
		Vnode:     newVnode(addr.WithXno(addr.DIRSEG, dirIno, uint64(dsegIndex))),
		DirIno:    dirIno,
		DsegIndex: dsegIndex,
	}
}

func (ds *Dirseg) Find(name Name) int {
	for i := range ds.Dent {
		e := &ds.Dent[i]
		if e.Empty() {
			continue
		}
		if e.Name.Hash == name.Hash && e.Name.Len == name.Len {
			return i
		}
	}
	return -1
}

func (ds *Dirseg) Predict() int {
	for i := range ds.Dent {
		if ds.Dent[i].Empty() {
			return i
		}
	}
	return -1
}

func (ds *Dirseg) Insert(i int, name Name, ino addr.Ino, mode uint32, doff int64) {
	ds.Dent[i] = Dent{Name: name, Ino: ino, Mode: mode, Doff: doff}
	ds.Nchilds++
}

func (ds *Dirseg) Remove(i int) {
	ds.Dent[i] = Dent{}
	ds.Nchilds--
}

func (ds *Dirseg) Empty() bool { return ds.Nchilds == 0 }

// HashToDseg maps a name hash to a dirseg index. DsegCount bounds how
// many distinct segments a single directory may materialize.
const DsegCount = 4096

func HashToDseg(hash uint64) int {
	return int(hash % DsegCount)
}
