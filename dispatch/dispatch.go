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

// Package dispatch is the operation dispatcher: one method per
// FUSE-facing opcode, each following the same template (resolve
// inode(s), let-check, prep, exec, populate the response) over the
// namei, data, permit and fileref layers.
package dispatch

import (
	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/config"
	"github.com/synarete/funex/data"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/fileref"
	"github.com/synarete/funex/logger"
	"github.com/synarete/funex/namei"
	"github.com/synarete/funex/pending"
	"github.com/synarete/funex/permit"
	"github.com/synarete/funex/super"
	"github.com/synarete/funex/vcache"
	"github.com/synarete/funex/vnode"
)

// Loader resolves a cache miss by fetching or allocating a vnode. It
// has the same two-method shape as namei.Loader and data.Loader
// (each consumer package narrows to exactly what it needs rather
// than sharing one interface type) and is satisfied by the same
// concrete vproc.Loader value passed to all three constructors.
type Loader interface {
	Fetch(va addr.Vaddr) (vnode.Handle, errno.Errno)
	Alloc(va addr.Vaddr) (vnode.Handle, errno.Errno)
}

// Syncer flushes outstanding commits, the seam FSYNC/FSYNCDIR drive
// (pstor.Store.Sync in production, a no-op in tests that don't care).
type Syncer interface {
	Sync() error
}

// Task is a suspended operation, re-driven by vproc's pending-drain
// pass once whatever it was waiting on clears. Exec re-runs the same
// handler body that first returned errno.PEND; it is idempotent to
// call repeatedly because every handler only mutates vnode state
// after its own precondition checks pass again on retry. RunCount is
// exposed for observability.
type Task struct {
	id       uint64
	Op       string
	Exec     func() errno.Errno
	RunCount int

	// Reply, when set, is invoked by vproc's pending-drain pass with
	// the task's final (non-PEND) status, once Exec stops returning
	// errno.PEND. It is nil for callers that invoke a handler
	// synchronously and have no interest in a suspended retry's
	// eventual outcome (most unit tests).
	Reply func(errno.Errno)
}

func (t *Task) TaskID() uint64 { return t.id }

// Dispatch bundles every component a handler needs: the naming layer,
// the data layer, the permission gate, the open-file table, the vnode
// cache, the super block, the loader seam to storage, and the pending
// queue suspended operations sit in while a precondition clears. It
// owns the pending queue itself (rather than vproc owning it) so that
// pending.Queue[*Task] can be instantiated here without vproc having
// to import dispatch's Task type back into a cycle.
type Dispatch struct {
	cache    *vcache.Cache
	namei    *namei.Namei
	data     *data.Data
	gate     *permit.Gate
	filerefs *fileref.Pool
	fs       *super.FSInfo
	cfg      config.Config
	loader   Loader
	syncer   Syncer

	pending    *pending.Queue[*Task]
	nextTaskID uint64
}

// New builds a Dispatch over a freshly constructed namei/data/permit/
// fileref stack, sharing one vcache.Cache and one Loader across all of
// them the way a single mounted vproc does. alloc may be nil (tests
// that never exercise the capacity-prediction path); syncer may be nil
// (FSYNC/FSYNCDIR become no-ops).
func New(cache *vcache.Cache, loader Loader, alloc data.Allocator, syncer Syncer, fs *super.FSInfo, cfg config.Config) *Dispatch {
	reserved := cfg.FileSystem.FilerefMax / 16
	if reserved < 1 {
		reserved = 1
	}
	return &Dispatch{
		cache:    cache,
		namei:    namei.New(cache, loader),
		data:     data.New(cache, loader, alloc, fs, cfg.FileSystem),
		gate:     permit.New(cfg),
		filerefs: fileref.New(cfg.FileSystem.FilerefMax, reserved),
		fs:       fs,
		cfg:      cfg,
		loader:   loader,
		syncer:   syncer,
		pending:  pending.New[*Task](),
	}
}

// Pending exposes the suspended-task queue for vproc's pending-drain
// and post-op commit-drain passes.
func (d *Dispatch) Pending() *pending.Queue[*Task] { return d.pending }

// Cache exposes the shared vnode cache for vproc's cache-squeeze pass.
func (d *Dispatch) Cache() *vcache.Cache { return d.cache }

// FS exposes the super block for vproc's FSINFO/metrics readers.
func (d *Dispatch) FS() *super.FSInfo { return d.fs }

func (d *Dispatch) newTask(op string, exec func() errno.Errno, reply func(errno.Errno)) *Task {
	d.nextTaskID++
	return &Task{id: d.nextTaskID, Op: op, Exec: exec, Reply: reply}
}

// run is every handler's outer shell: count the dispatched opcode
// once, execute the handler body, and suspend it as a pended Task if
// the body reports PEND. Retries driven by vproc call
// the Task's Exec directly, not run, so a retry is never double
// counted. reply may be nil for a synchronous caller uninterested in
// a suspended retry's eventual outcome.
func (d *Dispatch) run(opcode string, exec func() errno.Errno, reply func(errno.Errno)) errno.Errno {
	d.fs.CountOp(opcode)
	e := exec()
	if e == errno.PEND {
		logger.Debugf("%s pended: staged=%d", opcode, d.pending.StagedLen())
		d.pending.Pend(d.newTask(opcode, exec, reply))
		return e
	}
	if !e.OK() && e != errno.DELAY {
		logger.Errorf("%s failed: %v", opcode, e)
	}
	if reply != nil {
		reply(e)
	}
	return e
}

// stage marks h dirtied by the current operation; vproc's post-op
// commit drain walks the staged sequence in stage order.
func (d *Dispatch) stage(h vnode.Handle) {
	d.pending.Stage(h.Vaddr())
}

// iattr snapshots an inode-typed vnode's client-visible attributes.
// Size is special-cased for *vnode.Reg: its logical size lives in
// RSize (the extent-map-tracked field the data package maintains),
// not the generic Inode.Size header field data.go never touches.
func (d *Dispatch) iattr(h vnode.Handle) (Iattr, errno.Errno) {
	in, ok := h.(vnode.Inoder)
	if !ok {
		return Iattr{}, errno.EINVAL
	}
	base := in.AsInode()
	size := base.Size
	if reg, ok := h.(*vnode.Reg); ok {
		size = reg.RSize
	}
	return Iattr{
		Ino:   base.Ino(),
		Mode:  base.Mode,
		Uid:   base.Uid,
		Gid:   base.Gid,
		Nlink: base.Nlink,
		Size:  size,
		Atime: base.Atime,
		Mtime: base.Mtime,
		Ctime: base.Ctime,
	}, 0
}

// createChild is the shared shape behind MKDIR, MKNOD, SYMLINK and
// CREATE: reserve a fresh ino of vt, build its vnode via the loader,
// let init customize type-specific fields, then bind it under
// (parentIno, name) via namei.LinkNew: linking a brand new inode
// rather than an existing one, so it must not double the Nlink the
// constructor already seeded.
func (d *Dispatch) createChild(c uctxCtx, parentIno addr.Ino, name string, vt addr.VType, mode, uid, gid uint32, init func(h vnode.Handle)) (addr.Ino, vnode.Handle, errno.Errno) {
	if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
		return addr.InoNull, nil, e
	}
	if e := d.gate.LetNameLen(len(name)); !e.OK() {
		return addr.InoNull, nil, e
	}
	parentd, e := d.namei.Dir(parentIno)
	if !e.OK() {
		return addr.InoNull, nil, e
	}
	if !permit.Access(parentd.Mode, parentd.Uid, parentd.Gid, c, permit.AccessWrite|permit.AccessExec) {
		return addr.InoNull, nil, errno.EACCES
	}
	if e := permit.LetPseudoWrite(parentd.Pseudo(), false); !e.OK() {
		return addr.InoNull, nil, e
	}
	if e := d.gate.LetChildCount(parentd.Nchilds); !e.OK() {
		return addr.InoNull, nil, e
	}

	nm := vnode.NameOf(name)
	if _, e := d.namei.Lookup(parentd, nm); e.OK() {
		return addr.InoNull, nil, errno.EEXIST
	}

	ino := d.fs.NextIno(vt)
	h, e := d.loader.Alloc(addr.Of(vt, ino))
	if !e.OK() {
		return addr.InoNull, nil, e
	}
	in, ok := h.(vnode.Inoder)
	if !ok {
		return addr.InoNull, nil, errno.EINVAL
	}
	base := in.AsInode()
	base.Mode = mode
	base.Uid = uid
	base.Gid = gid
	base.Name = nm
	if dh, ok := h.(*vnode.Dir); ok {
		dh.ParentdIno = parentIno
	}
	if init != nil {
		init(h)
	}
	d.cache.Store(h)

	now := d.fs.Clk.Now()
	if e := d.namei.LinkNew(parentd, nm, ino, mode, vt == addr.DIR, now); !e.OK() {
		return addr.InoNull, nil, e
	}
	d.fs.IncStat(vt, 1)
	d.fs.Touch()
	d.stage(h)
	d.stage(parentd)
	return ino, h, 0
}

// unlink is the shared shape behind UNLINK and RMDIR, which differ
// only in whether the target must (RMDIR) or must not (UNLINK) be a
// directory.
func (d *Dispatch) unlink(c uctxCtx, parentIno addr.Ino, name string, wantDir bool) errno.Errno {
	if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
		return e
	}
	parentd, e := d.namei.Dir(parentIno)
	if !e.OK() {
		return e
	}
	if !permit.Access(parentd.Mode, parentd.Uid, parentd.Gid, c, permit.AccessWrite|permit.AccessExec) {
		return errno.EACCES
	}

	nm := vnode.NameOf(name)
	ino, e := d.namei.Lookup(parentd, nm)
	if !e.OK() {
		return e
	}
	h, e := d.namei.Inode(ino)
	if !e.OK() {
		return e
	}
	in, ok := h.(vnode.Inoder)
	if !ok {
		return errno.EINVAL
	}
	if e := permit.LetSticky(parentd.Mode, parentd.Uid, in.AsInode().Uid, c); !e.OK() {
		return e
	}

	dirH, isDir := h.(*vnode.Dir)
	switch {
	case wantDir && !isDir:
		return errno.ENOTDIR
	case wantDir && !dirH.Empty():
		return errno.ENOTEMPTY
	case !wantDir && isDir:
		return errno.EISDIR
	}

	nlinkTarget, e := d.namei.NlinkTarget(h)
	if !e.OK() {
		return e
	}
	now := d.fs.Clk.Now()
	if e := d.namei.Unlink(parentd, nm, nlinkTarget, now); !e.OK() {
		return e
	}
	if _, isReflnk := h.(*vnode.Reflnk); isReflnk {
		// The reflnk itself is done regardless of its target's
		// remaining links.
		h.SetExpired(true)
		d.fs.IncStat(addr.REFLNK, -1)
	}
	if isDir {
		// Drop the removed directory's ".." contribution to the parent
		// and its own "." self link.
		parentd.Nlink--
		dirH.Nlink--
	}
	if nlinkTarget.AsInode().Nlink == 0 {
		d.fs.IncStat(nlinkTarget.VType(), -1)
		if reg, ok := nlinkTarget.(*vnode.Reg); ok && !d.filerefs.HasOpen(reg.Ino()) {
			d.data.Truncate(reg, 0, now)
		}
		nlinkTarget.SetExpired(true)
	}
	d.fs.Touch()
	d.stage(parentd)
	d.stage(h)
	return 0
}

func (d *Dispatch) sync() errno.Errno {
	if d.syncer == nil {
		return 0
	}
	if err := d.syncer.Sync(); err != nil {
		if e, ok := err.(errno.Errno); ok {
			return e
		}
		return errno.EIO
	}
	return 0
}
