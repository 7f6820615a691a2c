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

// Symlnk carries an embedded path value, stored as a plain string.
// A length-dependent vtype split would only matter for a fixed-size
// on-disk block layout, which the storage contract keeps opaque.
type Symlnk struct {
	Inode
	Value string
}

func NewSymlnk(ino addr.Ino, uid, gid uint32, value string, now time.Time) *Symlnk {
	return &Symlnk{
		Inode: newInode(ino, addr.SYMLNK, 0777, uid, gid, now),
		Value: value,
	}
}
