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

// Vbk is a file data block: an inode-less vnode whose Vaddr.Ino is
// drawn from the super's block-namespace (a Vlba) and whose bytes
// live in its Block *bkref.Bkref. A Vbk is reachable from exactly one
// Regseg.Segmap slot (or Reg.Segmap0 for segment 0).
type Vbk struct {
	Vnode
}

func NewVbk(lba addr.Vlba) *Vbk {
	return &Vbk{Vnode: newVnode(addr.VblkAddr(lba))}
}
