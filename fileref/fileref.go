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

// Package fileref is the fixed-capacity open-file table: each slot
// binds an inode to an open-session view. The pool is bounded so a
// runaway client cannot grow the open-file set without limit; the last
// few slots are held back for privileged callers.
package fileref

import "github.com/synarete/funex/addr"

// Fileref is one open-session view bound to an inode.
type Fileref struct {
	Ino       addr.Ino
	Readable  bool
	Writeable bool
	Noatime   bool
	Append    bool
	Flags     uint32

	// ghost marks a transient fileref synthesized to carry an inode
	// through a by-path operation that has no open file descriptor,
	// e.g. TRUNCATE/SETATTR arriving without OPEN having been called
	// first.
	ghost bool

	id uint64
}

func (fr *Fileref) ID() uint64  { return fr.id }
func (fr *Fileref) Ghost() bool { return fr.ghost }

// Pool is the bounded fileref table. Capacity comes from
// config.FileSystem.FilerefMax; reserved is the number of slots kept
// back for privileged (root/CAP_ADMIN) callers.
type Pool struct {
	slots    []*Fileref
	free     []int // free slot indices, LIFO
	reserved int
	nextID   uint64
}

// New builds a pool with the given capacity and the number of slots
// reserved exclusively for privileged tie() calls.
func New(capacity, reserved int) *Pool {
	p := &Pool{
		slots:    make([]*Fileref, capacity),
		free:     make([]int, capacity),
		reserved: reserved,
	}
	for i := range p.free {
		p.free[i] = capacity - 1 - i
	}
	return p
}

func (p *Pool) Capacity() int  { return len(p.slots) }
func (p *Pool) FreeCount() int { return len(p.free) }

// HasFree reports whether Tie would succeed for a caller of the given
// privilege: non-privileged callers are refused once free-count drops
// to or below the reservation, privileged callers may use any slot
// that remains free.
func (p *Pool) HasFree(privileged bool) bool {
	if privileged {
		return len(p.free) > 0
	}
	return len(p.free) > p.reserved
}

// Tie binds ino with the given session flags to a free slot, or
// returns nil if the pool (considering the privilege reservation) is
// exhausted.
func (p *Pool) Tie(ino addr.Ino, readable, writeable, noatime, append_ bool, flags uint32, privileged bool) *Fileref {
	if !p.HasFree(privileged) {
		return nil
	}
	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	p.nextID++
	fr := &Fileref{
		Ino: ino, Readable: readable, Writeable: writeable,
		Noatime: noatime, Append: append_, Flags: flags, id: p.nextID,
	}
	p.slots[idx] = fr
	return fr
}

// Ghost synthesizes a transient, read/write-agnostic fileref for a
// by-path operation, without consuming a pool slot, so by-path calls
// never compete with real open-file accounting.
func (p *Pool) Ghost(ino addr.Ino) *Fileref {
	p.nextID++
	return &Fileref{Ino: ino, Readable: true, Writeable: true, ghost: true, id: p.nextID}
}

// Lookup resolves a previously handed-out fileref id back to its
// *Fileref, the way dispatch turns a client-supplied file handle back
// into the session state OPEN/OPENDIR bound it to.
func (p *Pool) Lookup(id uint64) (*Fileref, bool) {
	for _, s := range p.slots {
		if s != nil && s.id == id {
			return s, true
		}
	}
	return nil, false
}

// HasOpen reports whether any live (non-ghost) fileref still binds
// ino; implicit truncate-on-last-unlink may only run once this is
// false.
func (p *Pool) HasOpen(ino addr.Ino) bool {
	for _, s := range p.slots {
		if s != nil && s.Ino == ino {
			return true
		}
	}
	return false
}

// Untie releases fr's slot (a no-op for a ghost fileref, which never
// held one) and returns the inode it was bound to.
func (p *Pool) Untie(fr *Fileref) addr.Ino {
	if fr.ghost {
		return fr.Ino
	}
	for i, s := range p.slots {
		if s == fr {
			p.slots[i] = nil
			p.free = append(p.free, i)
			return fr.Ino
		}
	}
	return fr.Ino
}
