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

// Package vproc is the cooperative, single-threaded scheduling loop:
// it owns the pstor.Store collaborator, resolves cache misses on
// behalf of namei/data/dispatch through Loader, and drives the
// staged/pended queues dispatch.Dispatch accumulates through
// commit-drain, completion-drain, pending-drain and cache-squeeze
// passes every Tick.
package vproc

import (
	"time"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/config"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/pstor"
	"github.com/synarete/funex/vnode"
)

// toErrno adapts a pstor.Store error return into this core's
// errno.Errno convention. pstor.Store reuses errno.Errno as its error
// values (PEND, DELAY, the POSIX codes), so the only real translation
// needed is nil -> success and an unrecognized error -> EIO.
func toErrno(err error) errno.Errno {
	if err == nil {
		return 0
	}
	if e, ok := err.(errno.Errno); ok {
		return e
	}
	return errno.EIO
}

// Loader resolves namei/data/dispatch cache misses against a
// pstor.Store, reconstructing the concrete vnode.Handle type a Vaddr
// names from its Vtype and Xno alone. On-storage content is opaque to
// this core, so neither Fetch
// nor Alloc deserializes real bytes: Alloc always starts from a
// blank, freshly-shaped vnode, and so does Fetch, since the fake
// store used in tests never round-trips content either. A production
// pstor would instead hand back a handle whose fields Fetch copies in
// place of the zero values below; that seam is exactly where this
// core's Loader stops and the opaque storage layer begins.
type Loader struct {
	store pstor.Store
	cfg   config.FileSystemConfig
}

// NewLoader builds a Loader bound to one pstor.Store and the file
// system's sizing configuration (needed to size a fresh Reg's
// Segmap0 and a fresh Regseg's slot count identically to the data
// package's own expectations).
func NewLoader(store pstor.Store, cfg config.FileSystemConfig) *Loader {
	return &Loader{store: store, cfg: cfg}
}

// Fetch loads an existing vaddr through pstor.Store.StageVnode,
// propagating errno.PEND untranslated so the caller suspends.
func (l *Loader) Fetch(va addr.Vaddr) (vnode.Handle, errno.Errno) {
	_, err := l.store.StageVnode(va)
	if e := toErrno(err); !e.OK() {
		return nil, e
	}
	return l.build(va), 0
}

// Alloc reserves storage for a brand-new vaddr through
// pstor.Store.SpawnVnode and returns its freshly built vnode.Handle.
func (l *Loader) Alloc(va addr.Vaddr) (vnode.Handle, errno.Errno) {
	_, err := l.store.SpawnVnode(va)
	if e := toErrno(err); !e.OK() {
		return nil, e
	}
	return l.build(va), 0
}

// build constructs the concrete vnode.Handle a Vaddr names, purely
// from its Vtype/Ino/Xno; the caller (dispatch's createChild, namei's
// ensureDirseg, or data's resolveSlot) is responsible for populating type-specific
// fields (mode, uid/gid, symlink target, extent-map membership bits)
// afterward.
func (l *Loader) build(va addr.Vaddr) vnode.Handle {
	now := time.Now()
	segmap0Len := int(l.cfg.RsegSize / l.cfg.BlockSize)
	slotsPerSeg := int(l.cfg.RsegSize / l.cfg.BlockSize)

	switch va.Vtype {
	case addr.DIR:
		return vnode.NewDir(va.Ino, 0, 0, 0, addr.InoNull, now)
	case addr.REG:
		return vnode.NewReg(va.Ino, 0, 0, 0, segmap0Len, now)
	case addr.SYMLNK:
		return vnode.NewSymlnk(va.Ino, 0, 0, "", now)
	case addr.REFLNK:
		return vnode.NewReflnk(va.Ino, 0, 0, addr.InoNull, now)
	case addr.DIRSEG:
		return vnode.NewDirseg(va.Ino, va.Ino, int(va.Xno))
	case addr.VBK:
		return vnode.NewVbk(addr.Vlba(va.Ino))
	case addr.SPECIAL:
		if va.Xno&vnode.SecXnoTag != 0 {
			secOff := int64(va.Xno &^ vnode.SecXnoTag)
			secIdx := int(secOff / l.cfg.RsecSize)
			return vnode.NewRegsec(va.Ino, secIdx, secOff)
		}
		segOff := int64(va.Xno)
		return vnode.NewRegseg(va.Ino, segOff, slotsPerSeg)
	default:
		return nil
	}
}

// Allocator adapts pstor.Store.RequireVaddr to the data.Allocator seam,
// translating its plain error return into errno.Errno.
type Allocator struct {
	store pstor.Store
}

func NewAllocator(store pstor.Store) *Allocator {
	return &Allocator{store: store}
}

func (a *Allocator) RequireVaddr(va addr.Vaddr) errno.Errno {
	return toErrno(a.store.RequireVaddr(va))
}
