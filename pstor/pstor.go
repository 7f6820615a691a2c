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

// Package pstor declares the contract the vproc consumes from the
// persistent storage layer. Block device I/O, super/spmap allocation
// bitmaps, and the stage/spawn/commit/sync pipeline are implemented
// elsewhere; the on-storage layout is opaque here and the vproc only
// ever drives the Store interface passed in at construction.
package pstor

import "github.com/synarete/funex/addr"

// VnodeHandle is the opaque result of spawning or staging a vnode; the
// pstor implementation owns its concrete representation, the vproc
// only ever holds this handle and the addr.Vaddr that named it.
type VnodeHandle interface {
	Vaddr() addr.Vaddr
}

// Store is the storage contract. Beyond a plain error, a call may
// report success (nil), "try again once I/O lands" (PEND), or
// "accepted, will land asynchronously" (DELAY). The core's own
// errno.Errno values are returned for these so callers compare with a
// single familiar type.
type Store interface {
	// SpawnVnode creates a brand-new vnode's storage-backed handle, used
	// by namei/data when Lookup misses and a fresh inode or data
	// structure must be instantiated.
	SpawnVnode(vaddr addr.Vaddr) (VnodeHandle, error)

	// StageVnode fetches the handle for an existing vaddr, potentially
	// returning errno.PEND if the underlying block must first be paged
	// in from the device.
	StageVnode(vaddr addr.Vaddr) (VnodeHandle, error)

	// CommitVnode hands a dirtied handle to the storage commit path.
	// Returns errno.OK() immediately or errno.DELAY if the commit is
	// still in flight; the vproc's post-op drain treats both as
	// "staged successfully", only differing in when the reply may go
	// out.
	CommitVnode(h VnodeHandle) error

	// UnmapVnode releases the storage slot entirely (spmap entry
	// reclaimed), used when a vnode is retired without ever having
	// been placed, or after a successful unlink-to-zero-refcount.
	UnmapVnode(h VnodeHandle) error

	// RetireVnode informs the storage layer that the in-memory vnode
	// is gone for good; forgot vnodes must be skipped, their
	// accounting was already released.
	RetireVnode(h VnodeHandle) error

	// Sync flushes the pending commit stream, used by FSYNC/FSYNCDIR.
	Sync() error

	// RequireVaddr reserves storage capacity for vaddr ahead of use,
	// returning errno.ENOSPC if exhausted or errno.PEND if the
	// allocator itself must page in first.
	RequireVaddr(vaddr addr.Vaddr) error
}
