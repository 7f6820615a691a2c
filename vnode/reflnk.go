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

// Reflnk is an additional hard link to a Reg file: an inode whose
// Refino points at the real inode. namei resolves through Refino once
// for user-facing lookups but keeps the Reflnk itself for
// link-accounting operations.
type Reflnk struct {
	Inode
}

func NewReflnk(ino addr.Ino, uid, gid uint32, target addr.Ino, now time.Time) *Reflnk {
	rl := &Reflnk{
		Inode: newInode(ino, addr.REFLNK, 0, uid, gid, now),
	}
	rl.Refino = target
	return rl
}
