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

import "hash/fnv"

// Name is a dentry binding: the hashed, length-bearing form stored in
// dent[] slots and compared against on lookup. The hash is FNV-1a
// 64-bit; no existing on-storage format constrains the choice, so any
// strong stable hash works as long as it never changes under a live
// volume.
type Name struct {
	Hash uint64
	Len  int
	Str  string
}

// NameOf builds a Name from a path component string.
func NameOf(s string) Name {
	return Name{Hash: NameHash(s), Len: len(s), Str: s}
}

// NameHash hashes the component string alone. Directory context is
// not mixed in; dirsegs are keyed by (dir_ino, dseg_index), so
// identical names in different directories never collide in the
// vnode cache anyway.
func NameHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func (n Name) Equal(o Name) bool {
	return n.Hash == o.Hash && n.Len == o.Len && n.Str == o.Str
}

func (n Name) IsZero() bool {
	return n.Len == 0 && n.Str == ""
}
