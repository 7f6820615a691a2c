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

// Package namei is the naming layer: lookup, link, unlink and rename
// across the top-of-dir array and the hashed directory segments.
// Resolution checks the dentry cache first, then dir-top, then the
// hashed segment, revalidating every hit against the target inode's
// bound name.
package namei

import (
	"time"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/vcache"
	"github.com/synarete/funex/vnode"
)

// PSRootName is the literal name that, looked up at the root
// directory, resolves to the in-memory pseudo-root.
const PSRootName = ".fnx"

// Loader resolves a cache miss by fetching or allocating a vnode from
// the storage layer. It is the seam between namei and pstor; vproc
// supplies the concrete implementation, tests supply an in-memory one.
type Loader interface {
	// Fetch loads an existing vaddr's vnode. It may return errno.PEND
	// if the underlying block must first page in; Namei passes any
	// error it returns on to its own caller unchanged.
	Fetch(va addr.Vaddr) (vnode.Handle, errno.Errno)

	// Alloc reserves storage capacity and returns a freshly constructed,
	// empty vnode.Handle for va.
	Alloc(va addr.Vaddr) (vnode.Handle, errno.Errno)
}

// Namei bundles the vnode cache with a Loader for cache misses.
type Namei struct {
	cache  *vcache.Cache
	loader Loader
}

func New(cache *vcache.Cache, loader Loader) *Namei {
	return &Namei{cache: cache, loader: loader}
}

func (n *Namei) fetch(va addr.Vaddr) (vnode.Handle, errno.Errno) {
	if h, ok := n.cache.Lookup(va); ok {
		return h, 0
	}
	h, e := n.loader.Fetch(va)
	if !e.OK() {
		return nil, e
	}
	n.cache.Store(h)
	return h, 0
}

func (n *Namei) Dir(ino addr.Ino) (*vnode.Dir, errno.Errno) {
	h, e := n.fetch(addr.Of(addr.DIR, ino))
	if !e.OK() {
		return nil, e
	}
	d, ok := h.(*vnode.Dir)
	if !ok {
		return nil, errno.ENOTDIR
	}
	return d, 0
}

func (n *Namei) Dirseg(dirIno addr.Ino, dsegIndex int) (*vnode.Dirseg, errno.Errno) {
	va := addr.WithXno(addr.DIRSEG, dirIno, uint64(dsegIndex))
	h, e := n.fetch(va)
	if !e.OK() {
		return nil, e
	}
	ds, ok := h.(*vnode.Dirseg)
	if !ok {
		return nil, errno.EINVAL
	}
	return ds, 0
}

// Inode fetches any inode-typed vnode by its typed Ino.
func (n *Namei) Inode(ino addr.Ino) (vnode.Handle, errno.Errno) {
	return n.fetch(addr.Of(ino.VType(), ino))
}

// Lookup resolves (parentd, name): special names first, then the
// dentry cache, then dir-top, then the hashed segment. It returns the
// raw directory entry's ino; REFLNK following for user-facing
// lookups is ResolveUser's job, kept separate because link-accounting
// callers need the reflnk itself.
func (n *Namei) Lookup(parentd *vnode.Dir, name vnode.Name) (addr.Ino, errno.Errno) {
	// 1. Special names.
	if name.Str == "." {
		return parentd.Ino(), 0
	}
	if name.Str == ".." {
		return parentd.ParentdIno, 0
	}
	if parentd.Ino() == addr.InoRoot && name.Str == PSRootName {
		return addr.InoPsroot, 0
	}

	// 2. Dentry cache.
	key := vcache.DentKey{DirIno: parentd.Ino(), Hash: name.Hash, Len: name.Len}
	if ino, ok := n.cache.LookupDentry(key); ok {
		if in, e := n.confirmedName(ino, name); e.OK() {
			return in, 0
		}
		n.cache.RemapDentry(key, addr.InoNull)
	}

	// 3. Dir-top.
	if idx := parentd.FindTop(name); idx >= 0 {
		ino := parentd.Dent[idx].Ino
		if in, e := n.confirmedName(ino, name); e.OK() {
			n.cache.RemapDentry(key, in)
			return in, 0
		}
	}

	// 4. Hashed segment.
	dseg := vnode.HashToDseg(name.Hash)
	if parentd.HasSeg(dseg) {
		ds, e := n.Dirseg(parentd.Ino(), dseg)
		if !e.OK() {
			return addr.InoNull, e
		}
		if idx := ds.Find(name); idx >= 0 {
			ino := ds.Dent[idx].Ino
			if in, e := n.confirmedName(ino, name); e.OK() {
				n.cache.RemapDentry(key, in)
				return in, 0
			}
		}
	}

	return addr.InoNull, errno.ENOENT
}

// confirmedName re-fetches ino's inode and checks its bound Name
// matches; dentry-cache hits and dent slots are hints that must be
// revalidated against the inode itself. The bound name is only
// tracked while the inode has a single binding, so a multiply-linked
// or name-less inode resolves purely through the entry just matched.
func (n *Namei) confirmedName(ino addr.Ino, name vnode.Name) (addr.Ino, errno.Errno) {
	h, e := n.Inode(ino)
	if !e.OK() {
		return addr.InoNull, e
	}
	if in, ok := h.(vnode.Inoder); ok {
		base := in.AsInode()
		if base.Nlink == 1 && !base.Name.IsZero() && !base.Name.Equal(name) {
			return addr.InoNull, errno.ENOENT
		}
	}
	return ino, 0
}

// ResolveUser follows a REFLNK once to its target for user-facing
// lookups.
func (n *Namei) ResolveUser(ino addr.Ino) (addr.Ino, errno.Errno) {
	h, e := n.Inode(ino)
	if !e.OK() {
		return addr.InoNull, e
	}
	if rl, ok := h.(*vnode.Reflnk); ok {
		return rl.Refino, 0
	}
	return ino, 0
}

// NlinkTarget resolves the vnode whose Nlink field a link/unlink of h
// must adjust: for a REFLNK that is the hard-link's real target, for
// every other inode type it is h itself.
func (n *Namei) NlinkTarget(h vnode.Handle) (vnode.Inoder, errno.Errno) {
	if rl, ok := h.(*vnode.Reflnk); ok {
		th, e := n.Inode(rl.Refino)
		if !e.OK() {
			return nil, e
		}
		in, ok := th.(vnode.Inoder)
		if !ok {
			return nil, errno.EINVAL
		}
		return in, 0
	}
	in, ok := h.(vnode.Inoder)
	if !ok {
		return nil, errno.EINVAL
	}
	return in, 0
}

func dentKey(dirIno addr.Ino, name vnode.Name) vcache.DentKey {
	return vcache.DentKey{DirIno: dirIno, Hash: name.Hash, Len: name.Len}
}

// ensureDirseg fetches the dirseg for dseg if parentd already has it,
// or allocates a fresh one on demand.
func (n *Namei) ensureDirseg(parentd *vnode.Dir, dseg int) (*vnode.Dirseg, errno.Errno) {
	if parentd.HasSeg(dseg) {
		return n.Dirseg(parentd.Ino(), dseg)
	}
	va := addr.WithXno(addr.DIRSEG, parentd.Ino(), uint64(dseg))
	h, e := n.loader.Alloc(va)
	if !e.OK() {
		return nil, e
	}
	n.cache.Store(h)
	ds, ok := h.(*vnode.Dirseg)
	if !ok {
		return nil, errno.EINVAL
	}
	return ds, 0
}

// linkEntry performs the purely structural half of linking: reserve a
// top-of-dir slot, or else a hashed-dirseg slot, write the entry, and
// remap the dentry cache. It never touches Nlink
// or timestamps; Link and Rename layer that on top, since a rename's
// in-place rebind must move an entry without bumping link counts.
func (n *Namei) linkEntry(parentd *vnode.Dir, name vnode.Name, ino addr.Ino, mode uint32) errno.Errno {
	if !parentd.Mutable() {
		return errno.PEND
	}

	if slot := parentd.PredictTop(); slot >= 0 {
		parentd.InsertTop(slot, name, ino, mode)
		n.cache.RemapDentry(dentKey(parentd.Ino(), name), ino)
		return 0
	}

	dseg := vnode.HashToDseg(name.Hash)
	ds, e := n.ensureDirseg(parentd, dseg)
	if !e.OK() {
		return e
	}
	if !ds.Mutable() {
		return errno.PEND
	}
	slot := ds.Predict()
	if slot < 0 {
		return errno.ENOSPC
	}
	wasEmpty := ds.Empty()
	ds.Insert(slot, name, ino, mode, int64(slot))
	if wasEmpty {
		parentd.SetSeg(dseg, true)
	}
	n.cache.RemapDentry(dentKey(parentd.Ino(), name), ino)
	return 0
}

// unlinkEntry is linkEntry's structural inverse: locate the entry (top
// first, then the hashed segment), clear it, remap the dentry cache,
// and expire a dirseg that becomes empty. Returns the removed entry's
// ino and mode.
func (n *Namei) unlinkEntry(parentd *vnode.Dir, name vnode.Name) (addr.Ino, uint32, errno.Errno) {
	if idx := parentd.FindTop(name); idx >= 0 {
		if !parentd.Mutable() {
			return addr.InoNull, 0, errno.PEND
		}
		ino, mode := parentd.Dent[idx].Ino, parentd.Dent[idx].Mode
		parentd.RemoveTop(idx)
		n.cache.RemapDentry(dentKey(parentd.Ino(), name), addr.InoNull)
		return ino, mode, 0
	}

	dseg := vnode.HashToDseg(name.Hash)
	if !parentd.HasSeg(dseg) {
		return addr.InoNull, 0, errno.ENOENT
	}
	ds, e := n.Dirseg(parentd.Ino(), dseg)
	if !e.OK() {
		return addr.InoNull, 0, e
	}
	idx := ds.Find(name)
	if idx < 0 {
		return addr.InoNull, 0, errno.ENOENT
	}
	if !ds.Mutable() {
		return addr.InoNull, 0, errno.PEND
	}
	ino, mode := ds.Dent[idx].Ino, ds.Dent[idx].Mode
	ds.Remove(idx)
	n.cache.RemapDentry(dentKey(parentd.Ino(), name), addr.InoNull)
	if ds.Empty() {
		parentd.SetSeg(dseg, false)
		ds.SetExpired(true)
	}
	return ino, mode, 0
}

// Link binds name to ino under parentd and bumps the appropriate
// Nlink. nlinkTarget is normally the
// vnode being created (MKDIR/CREATE/SYMLINK/MKNOD) or, for a hardlink
// (LINK), the real target a fresh REFLNK points at; callers resolve
// which via NlinkTarget.
func (n *Namei) Link(parentd *vnode.Dir, name vnode.Name, ino addr.Ino, mode uint32, nlinkTarget vnode.Inoder, now time.Time) errno.Errno {
	if e := n.linkEntry(parentd, name, ino, mode); !e.OK() {
		return e
	}
	nlinkTarget.AsInode().Nlink++
	nlinkTarget.AsInode().Touch(now, false)
	parentd.Touch(now, true)
	return 0
}

// LinkNew binds name to a freshly allocated ino without touching its
// own Nlink: newInode already seeds that to the count creation itself
// establishes (InitNlinkReg/InitNlinkDir), so running it through Link
// (which always adds one more) would overcount. A freshly created
// subdirectory's ".." does add one link to parentd, per the usual
// directory link-count convention; isDir selects that.
func (n *Namei) LinkNew(parentd *vnode.Dir, name vnode.Name, ino addr.Ino, mode uint32, isDir bool, now time.Time) errno.Errno {
	if e := n.linkEntry(parentd, name, ino, mode); !e.OK() {
		return e
	}
	if isDir {
		parentd.Nlink++
	}
	parentd.Touch(now, true)
	return 0
}

// Unlink removes name from parentd and drops the appropriate Nlink.
func (n *Namei) Unlink(parentd *vnode.Dir, name vnode.Name, nlinkTarget vnode.Inoder, now time.Time) errno.Errno {
	_, _, e := n.unlinkEntry(parentd, name)
	if !e.OK() {
		return e
	}
	nlinkTarget.AsInode().Nlink--
	nlinkTarget.AsInode().Touch(now, false)
	parentd.Touch(now, true)
	return 0
}

// isAncestor reports whether candidate appears on dir's ParentdIno
// chain up to the root; walking the destination-parent chain upward
// must never encounter a source directory or a rename would create a
// cycle.
func (n *Namei) isAncestor(candidate addr.Ino, dir *vnode.Dir) (bool, errno.Errno) {
	cur := dir
	for {
		if cur.Ino() == candidate {
			return true, 0
		}
		if cur.Ino() == addr.InoRoot {
			return false, 0
		}
		h, e := n.Dir(cur.ParentdIno)
		if !e.OK() {
			return false, e
		}
		cur = h
	}
}

// Rename covers the four rename cases (in-place, replace, move,
// override), selected by whether srcParentd and dstParentd are the
// same directory and whether dstName already resolves to an entry.
// Sticky-bit and write-access preconditions are the caller's
// responsibility (permit.LetSticky, permit.Access) since they need
// the uctx this package does not carry; Rename itself only enforces
// the structural preconditions: no cycles, dst-not-root, ENOTEMPTY
// for a non-empty directory target.
func (n *Namei) Rename(srcParentd, dstParentd *vnode.Dir, srcName, dstName vnode.Name, now time.Time) errno.Errno {
	srcIno, e := n.Lookup(srcParentd, srcName)
	if !e.OK() {
		return e
	}

	sameDir := srcParentd.Ino() == dstParentd.Ino()
	if sameDir && srcName.Equal(dstName) {
		return 0
	}

	srcH, e := n.Inode(srcIno)
	if !e.OK() {
		return e
	}
	srcDir, srcIsDir := srcH.(*vnode.Dir)

	if srcIsDir && !sameDir {
		if dstIno := dstParentd.Ino(); dstIno == srcIno {
			return errno.EINVAL
		}
		isDesc, e := n.isAncestor(srcIno, dstParentd)
		if !e.OK() {
			return e
		}
		if isDesc {
			return errno.EINVAL
		}
	}

	dstIno, dstLookupErr := n.Lookup(dstParentd, dstName)
	dstExists := dstLookupErr.OK()
	if !dstExists && dstLookupErr != errno.ENOENT {
		return dstLookupErr
	}

	if dstExists {
		if dstIno == addr.InoRoot {
			return errno.EBUSY
		}
		dstH, e := n.Inode(dstIno)
		if !e.OK() {
			return e
		}
		if dstDir, ok := dstH.(*vnode.Dir); ok && !dstDir.Empty() {
			return errno.ENOTEMPTY
		}

		nlinkTarget, e := n.NlinkTarget(dstH)
		if !e.OK() {
			return e
		}
		if e := n.Unlink(dstParentd, dstName, nlinkTarget, now); !e.OK() {
			return e
		}
	}

	// Structural rebind: remove the source binding and re-insert it
	// under the destination name, without touching Nlink: this is the
	// same link, not a new one.
	ino, mode, e := n.unlinkEntry(srcParentd, srcName)
	if !e.OK() {
		return e
	}
	if e := n.linkEntry(dstParentd, dstName, ino, mode); !e.OK() {
		// Roll back: re-insert under the original name so the
		// directory is left exactly as it was.
		_ = n.linkEntry(srcParentd, srcName, ino, mode)
		return e
	}

	// The moved inode's bound name must follow the rebind, or the
	// next lookup's name confirmation would reject the new entry.
	if srcIn, ok := srcH.(vnode.Inoder); ok {
		srcIn.AsInode().Name = dstName
	}

	if srcIsDir && !sameDir {
		srcDir.ParentdIno = dstParentd.Ino()
		srcParentd.Nlink--
		dstParentd.Nlink++
	}

	srcParentd.Touch(now, true)
	dstParentd.Touch(now, true)
	return 0
}

// Readdir doff encoding: the reserved self/parent slots are
// vnode.DoffSelf/DoffParent; the top-of-dir array occupies
// [vnode.DoffBegin, dirTopEnd); hashed-segment entries occupy doffs
// at or past dirTopEnd, computed from (dseg index, slot) pairs.
const dirTopEnd = int64(vnode.DentTopCap)

// psrootMode is the mode reported for the synthetic pseudo-root
// readdir entry: a read-only directory shell with no real dent[] of
// its own.
const psrootMode uint32 = 0o40555

func dsegSlotToDoff(dseg, slot int) int64 {
	return dirTopEnd + int64(dseg)*int64(vnode.DsegCap) + int64(slot)
}

func doffToDsegSlot(doff int64) (dseg, slot int) {
	rel := doff - dirTopEnd
	return int(rel / int64(vnode.DsegCap)), int(rel % int64(vnode.DsegCap))
}

// ReadDir yields one entry for doff, plus the doff to pass on the
// next call. Reaching the true end of the tree returns errno.EEOS,
// except on the root directory, which first yields a synthetic
// pseudo-root entry.
func (n *Namei) ReadDir(dir *vnode.Dir, doff int64) (name vnode.Name, childIno addr.Ino, mode uint32, nextDoff int64, e errno.Errno) {
	switch doff {
	case vnode.DoffNone:
		return vnode.Name{}, addr.InoNull, 0, vnode.DoffNone, errno.EEOS
	case vnode.DoffSelf:
		return vnode.NameOf("."), dir.Ino(), dir.Mode, vnode.DoffParent, 0
	case vnode.DoffParent:
		ph, e := n.Dir(dir.ParentdIno)
		if !e.OK() {
			return vnode.Name{}, addr.InoNull, 0, vnode.DoffNone, e
		}
		return vnode.NameOf(".."), ph.Ino(), ph.Mode, vnode.DoffBegin, 0
	}

	if doff >= vnode.DoffBegin && doff < dirTopEnd {
		for i := int(doff); i < len(dir.Dent); i++ {
			ent := &dir.Dent[i]
			if !ent.Empty() {
				return ent.Name, ent.Ino, ent.Mode, int64(i + 1), 0
			}
		}
		return n.readDirFromSeg(dir, 0, 0)
	}

	dseg, slot := doffToDsegSlot(doff)
	return n.readDirFromSeg(dir, dseg, slot)
}

func (n *Namei) readDirFromSeg(dir *vnode.Dir, dseg, slot int) (vnode.Name, addr.Ino, uint32, int64, errno.Errno) {
	for ; dseg < vnode.DsegCount; dseg++ {
		if !dir.HasSeg(dseg) {
			slot = 0
			continue
		}
		ds, e := n.Dirseg(dir.Ino(), dseg)
		if !e.OK() {
			return vnode.Name{}, addr.InoNull, 0, vnode.DoffNone, e
		}
		for ; slot < len(ds.Dent); slot++ {
			ent := &ds.Dent[slot]
			if !ent.Empty() {
				return ent.Name, ent.Ino, ent.Mode, dsegSlotToDoff(dseg, slot+1), 0
			}
		}
		slot = 0
	}

	if dir.Ino() == addr.InoRoot {
		return vnode.NameOf(PSRootName), addr.InoPsroot, psrootMode, vnode.DoffNone, 0
	}
	return vnode.Name{}, addr.InoNull, 0, vnode.DoffNone, errno.EEOS
}
