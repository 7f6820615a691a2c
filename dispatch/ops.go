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

package dispatch

import (
	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/fileref"
	"github.com/synarete/funex/permit"
	"github.com/synarete/funex/vnode"
)

// Lookup resolves name under parentIno, following the pseudo-root and
// user-remap indirection namei.Lookup/ResolveUser already implement.
func (d *Dispatch) Lookup(c uctxCtx, parentIno addr.Ino, name string, out *Iattr) errno.Errno {
	return d.run("LOOKUP", func() errno.Errno {
		parentd, e := d.namei.Dir(parentIno)
		if !e.OK() {
			return e
		}
		if !permit.Access(parentd.Mode, parentd.Uid, parentd.Gid, c, permit.AccessExec) {
			return errno.EACCES
		}
		ino, e := d.namei.Lookup(parentd, vnode.NameOf(name))
		if !e.OK() {
			return e
		}
		uino, e := d.namei.ResolveUser(ino)
		if !e.OK() {
			return e
		}
		h, e := d.namei.Inode(uino)
		if !e.OK() {
			return e
		}
		h.Ref()
		res, e := d.iattr(h)
		if e.OK() {
			*out = res
		}
		return e
	}, nil)
}

// Forget drops n references a FUSE client previously accumulated over
// ino, evicting it from the cache once refcnt reaches zero and the
// vnode is already marked expired. Applies uniformly across every
// vtype, not just regular files.
func (d *Dispatch) Forget(ino addr.Ino, n int64) errno.Errno {
	d.fs.CountOp("FORGET")
	h, ok := d.cache.Lookup(addr.Of(ino.VType(), ino))
	if !ok {
		return 0
	}
	if h.Unref(n) && h.Refcnt() == 0 && h.Expired() {
		d.cache.Evict(h.Vaddr())
	}
	return 0
}

// Getattr snapshots ino's client-visible attributes.
func (d *Dispatch) Getattr(ino addr.Ino, out *Iattr) errno.Errno {
	return d.run("GETATTR", func() errno.Errno {
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		res, e := d.iattr(h)
		if e.OK() {
			*out = res
		}
		return e
	}, nil)
}

// Setattr applies req's optional fields to ino: ownership, mode, size
// (driving data.Truncate), and explicit timestamps, clearing suid/sgid
// per permit.ClearSuidSgid wherever POSIX requires it.
func (d *Dispatch) Setattr(c uctxCtx, ino addr.Ino, req SetattrReq, out *Iattr, reply func(errno.Errno)) errno.Errno {
	return d.run("SETATTR", func() errno.Errno {
		if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
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
		base := in.AsInode()
		if !c.Root && c.Uid != base.Uid {
			if req.Valid&(SetMode|SetUid|SetGid) != 0 {
				return errno.EPERM
			}
			if req.Valid&SetSize != 0 && !permit.Access(base.Mode, base.Uid, base.Gid, c, permit.AccessWrite) {
				return errno.EACCES
			}
		}
		now := d.fs.Clk.Now()
		if req.Valid&SetUid != 0 {
			base.Uid = req.Uid
		}
		if req.Valid&SetGid != 0 {
			base.Gid = req.Gid
		}
		if req.Valid&SetMode != 0 {
			keep := permit.ModePermMask | permit.ModeSUID | permit.ModeSGID | permit.ModeVTX
			base.Mode = (base.Mode &^ keep) | (req.Mode & keep)
		}
		if req.Valid&(SetUid|SetGid|SetMode) != 0 {
			base.Mode = permit.ClearSuidSgid(base.Mode, c, c.InGroup(base.Gid))
		}
		if req.Valid&SetSize != 0 {
			reg, ok := h.(*vnode.Reg)
			if !ok {
				return errno.EINVAL
			}
			if e := d.gate.LetOffset(req.Size); !e.OK() {
				return e
			}
			if e := d.data.Truncate(reg, req.Size, now); !e.OK() {
				return e
			}
			base.Mode = permit.ClearSuidSgid(base.Mode, c, c.InGroup(base.Gid))
		}
		if req.Valid&SetAtime != 0 {
			base.Atime = req.Atime
		}
		if req.Valid&SetMtime != 0 {
			base.Mtime = req.Mtime
		}
		base.Touch(now, false)
		d.stage(h)
		res, e := d.iattr(h)
		if e.OK() {
			*out = res
		}
		return e
	}, reply)
}

// Readlink returns a symbolic link's target string.
func (d *Dispatch) Readlink(ino addr.Ino) (string, errno.Errno) {
	var val string
	e := d.run("READLINK", func() errno.Errno {
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		sl, ok := h.(*vnode.Symlnk)
		if !ok {
			return errno.EINVAL
		}
		val = sl.Value
		return 0
	}, nil)
	return val, e
}

// Symlink creates a new SYMLNK child under parentIno holding target.
func (d *Dispatch) Symlink(c uctxCtx, parentIno addr.Ino, name, target string, out *Iattr, reply func(errno.Errno)) (addr.Ino, errno.Errno) {
	var ino addr.Ino
	e := d.run("SYMLINK", func() errno.Errno {
		if len(target) > d.cfg.FileSystem.PathMax {
			return errno.EINVAL
		}
		i, h, e := d.createChild(c, parentIno, name, addr.SYMLNK, 0o777|typeBitsOf(addr.SYMLNK), c.Uid, c.Gid, func(h vnode.Handle) {
			h.(*vnode.Symlnk).Value = target
		})
		if !e.OK() {
			return e
		}
		ino = i
		res, e := d.iattr(h)
		if e.OK() {
			*out = res
		}
		return e
	}, reply)
	return ino, e
}

// Mknod creates a new regular file via createChild. Device and fifo
// nodes are not supported.
func (d *Dispatch) Mknod(c uctxCtx, parentIno addr.Ino, name string, mode uint32, out *Iattr, reply func(errno.Errno)) (addr.Ino, errno.Errno) {
	var ino addr.Ino
	e := d.run("MKNOD", func() errno.Errno {
		i, h, e := d.createChild(c, parentIno, name, addr.REG, (mode&permit.ModePermMask)|typeBitsOf(addr.REG), c.Uid, c.Gid, nil)
		if !e.OK() {
			return e
		}
		ino = i
		res, e := d.iattr(h)
		if e.OK() {
			*out = res
		}
		return e
	}, reply)
	return ino, e
}

// Mkdir creates a new DIR child under parentIno.
func (d *Dispatch) Mkdir(c uctxCtx, parentIno addr.Ino, name string, mode uint32, out *Iattr, reply func(errno.Errno)) (addr.Ino, errno.Errno) {
	var ino addr.Ino
	e := d.run("MKDIR", func() errno.Errno {
		i, h, e := d.createChild(c, parentIno, name, addr.DIR, (mode&permit.ModePermMask)|typeBitsOf(addr.DIR), c.Uid, c.Gid, nil)
		if !e.OK() {
			return e
		}
		ino = i
		res, e := d.iattr(h)
		if e.OK() {
			*out = res
		}
		return e
	}, reply)
	return ino, e
}

// Create makes a new REG child and ties an open fileref to it in one
// step, the CREATE opcode's combined mknod+open semantics.
func (d *Dispatch) Create(c uctxCtx, parentIno addr.Ino, name string, mode, flags uint32, out *Iattr, reply func(errno.Errno)) (addr.Ino, *fileref.Fileref, errno.Errno) {
	var ino addr.Ino
	var fr *fileref.Fileref
	e := d.run("CREATE", func() errno.Errno {
		i, h, e := d.createChild(c, parentIno, name, addr.REG, (mode&permit.ModePermMask)|typeBitsOf(addr.REG), c.Uid, c.Gid, nil)
		if !e.OK() {
			return e
		}
		ino = i
		res, e := d.iattr(h)
		if !e.OK() {
			return e
		}
		*out = res
		f := d.filerefs.Tie(ino, true, true, flags&ONoatime != 0, flags&OAppend != 0, flags, c.Root)
		if f == nil {
			return errno.ENFILE
		}
		h.Ref()
		fr = f
		return 0
	}, reply)
	return ino, fr, e
}

// Unlink removes a non-directory entry.
func (d *Dispatch) Unlink(c uctxCtx, parentIno addr.Ino, name string, reply func(errno.Errno)) errno.Errno {
	return d.run("UNLINK", func() errno.Errno { return d.unlink(c, parentIno, name, false) }, reply)
}

// Rmdir removes an empty directory entry.
func (d *Dispatch) Rmdir(c uctxCtx, parentIno addr.Ino, name string, reply func(errno.Errno)) errno.Errno {
	return d.run("RMDIR", func() errno.Errno { return d.unlink(c, parentIno, name, true) }, reply)
}

// Rename covers all four rename cases (in-place, replace, move,
// override), checking the sticky bit against whichever of the source
// and (if present) destination entries it applies to.
func (d *Dispatch) Rename(c uctxCtx, srcParentIno addr.Ino, srcName string, dstParentIno addr.Ino, dstName string, reply func(errno.Errno)) errno.Errno {
	return d.run("RENAME", func() errno.Errno {
		if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
			return e
		}
		srcParentd, e := d.namei.Dir(srcParentIno)
		if !e.OK() {
			return e
		}
		dstParentd, e := d.namei.Dir(dstParentIno)
		if !e.OK() {
			return e
		}
		if !permit.Access(srcParentd.Mode, srcParentd.Uid, srcParentd.Gid, c, permit.AccessWrite|permit.AccessExec) {
			return errno.EACCES
		}
		if !permit.Access(dstParentd.Mode, dstParentd.Uid, dstParentd.Gid, c, permit.AccessWrite|permit.AccessExec) {
			return errno.EACCES
		}

		srcNm, dstNm := vnode.NameOf(srcName), vnode.NameOf(dstName)
		if srcParentIno == dstParentIno && srcName == dstName {
			// Renaming an entry onto itself is a no-op, not an
			// overwrite of an existing destination.
			_, e := d.namei.Lookup(srcParentd, srcNm)
			return e
		}
		srcIno, e := d.namei.Lookup(srcParentd, srcNm)
		if !e.OK() {
			return e
		}
		srcH, e := d.namei.Inode(srcIno)
		if !e.OK() {
			return e
		}
		if srcIn, ok := srcH.(vnode.Inoder); ok {
			if e := permit.LetSticky(srcParentd.Mode, srcParentd.Uid, srcIn.AsInode().Uid, c); !e.OK() {
				return e
			}
		}
		var dstH vnode.Handle
		var dstTarget vnode.Inoder
		if dstIno, e2 := d.namei.Lookup(dstParentd, dstNm); e2.OK() {
			h, e3 := d.namei.Inode(dstIno)
			if !e3.OK() {
				return e3
			}
			dstH = h
			if dstIn, ok := dstH.(vnode.Inoder); ok {
				if e := permit.LetSticky(dstParentd.Mode, dstParentd.Uid, dstIn.AsInode().Uid, c); !e.OK() {
					return e
				}
			}
			t, e3 := d.namei.NlinkTarget(dstH)
			if !e3.OK() {
				return e3
			}
			dstTarget = t
		}

		now := d.fs.Clk.Now()
		if e := d.namei.Rename(srcParentd, dstParentd, srcNm, dstNm, now); !e.OK() {
			return e
		}

		// The overwritten destination was unlinked inside the rename;
		// finish its accounting here, where the fileref table and the
		// data layer are in reach.
		if dstH != nil {
			if _, isReflnk := dstH.(*vnode.Reflnk); isReflnk {
				dstH.SetExpired(true)
				d.fs.IncStat(addr.REFLNK, -1)
			}
			if dd, ok := dstH.(*vnode.Dir); ok {
				dstParentd.Nlink--
				dd.Nlink--
			}
			if dstTarget.AsInode().Nlink == 0 {
				d.fs.IncStat(dstTarget.VType(), -1)
				if reg, ok := dstTarget.(*vnode.Reg); ok && !d.filerefs.HasOpen(reg.Ino()) {
					d.data.Truncate(reg, 0, now)
				}
				dstTarget.SetExpired(true)
			}
			d.stage(dstH)
		}

		d.fs.Touch()
		d.stage(srcParentd)
		d.stage(dstParentd)
		return 0
	}, reply)
}

// Link creates a REFLNK entry pointing at an existing non-directory
// inode; hardlinks are reference vnodes rather than a second raw
// binding of the target's ino.
func (d *Dispatch) Link(c uctxCtx, ino, newParentIno addr.Ino, newName string, out *Iattr, reply func(errno.Errno)) errno.Errno {
	return d.run("LINK", func() errno.Errno {
		if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
			return e
		}
		if e := d.gate.LetNameLen(len(newName)); !e.OK() {
			return e
		}
		targetH, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		targetIn, ok := targetH.(vnode.Inoder)
		if !ok {
			return errno.EINVAL
		}
		if targetIn.AsInode().IsDir() {
			return errno.EPERM
		}
		if e := permit.LetPseudoLink(targetH.Pseudo()); !e.OK() {
			return e
		}
		if e := d.gate.LetNlink(targetIn.AsInode().Nlink); !e.OK() {
			return e
		}
		parentd, e := d.namei.Dir(newParentIno)
		if !e.OK() {
			return e
		}
		if !permit.Access(parentd.Mode, parentd.Uid, parentd.Gid, c, permit.AccessWrite|permit.AccessExec) {
			return errno.EACCES
		}
		nm := vnode.NameOf(newName)
		if _, e := d.namei.Lookup(parentd, nm); e.OK() {
			return errno.EEXIST
		}

		rlIno := d.fs.NextIno(addr.REFLNK)
		h, e := d.loader.Alloc(addr.Of(addr.REFLNK, rlIno))
		if !e.OK() {
			return e
		}
		rl, ok := h.(*vnode.Reflnk)
		if !ok {
			return errno.EINVAL
		}
		rl.Refino = ino
		rl.Name = nm
		d.cache.Store(h)

		now := d.fs.Clk.Now()
		if e := d.namei.Link(parentd, nm, rlIno, targetIn.AsInode().Mode, targetIn, now); !e.OK() {
			return e
		}
		d.fs.IncStat(addr.REFLNK, 1)
		d.fs.Touch()
		d.stage(h)
		d.stage(parentd)
		res, e := d.iattr(targetH)
		if e.OK() {
			*out = res
		}
		return e
	}, reply)
}

// Open binds an existing REG/anything-non-dir inode to a fresh
// fileref slot, checking the requested access mode against POSIX
// permission bits and the filesystem's read-only gate.
func (d *Dispatch) Open(c uctxCtx, ino addr.Ino, flags uint32) (*fileref.Fileref, errno.Errno) {
	var fr *fileref.Fileref
	e := d.run("OPEN", func() errno.Errno {
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		in, ok := h.(vnode.Inoder)
		if !ok {
			return errno.EINVAL
		}
		writeable := flags&(OWronly|ORdwr) != 0
		mask := uint32(0)
		if flags&OWronly == 0 {
			mask |= permit.AccessRead
		}
		if writeable {
			mask |= permit.AccessWrite
			if e := d.gate.LetReadOnly(); !e.OK() {
				return e
			}
		}
		if !permit.Access(in.AsInode().Mode, in.AsInode().Uid, in.AsInode().Gid, c, mask) {
			return errno.EACCES
		}
		f := d.filerefs.Tie(ino, mask&permit.AccessRead != 0, writeable, flags&ONoatime != 0, flags&OAppend != 0, flags, c.Root)
		if f == nil {
			return errno.ENFILE
		}
		h.Ref()
		fr = f
		return 0
	}, nil)
	return fr, e
}

// Read serves a WRITE-ordered byte range from a REG through its open
// fileref, deferring to data.Read for hole zero-fill and noatime.
func (d *Dispatch) Read(fr *fileref.Fileref, off, size int64) ([]byte, errno.Errno) {
	var out []byte
	e := d.run("READ", func() errno.Errno {
		if !fr.Readable {
			return errno.EBADF
		}
		h, e := d.namei.Inode(fr.Ino)
		if !e.OK() {
			return e
		}
		reg, ok := h.(*vnode.Reg)
		if !ok {
			return errno.EINVAL
		}
		buf, e := d.data.Read(reg, off, size, fr.Noatime || d.fs.Noatime, d.fs.Clk.Now())
		out = buf
		return e
	}, nil)
	return out, e
}

// Write stores buf into a REG through its open fileref, honoring
// O_APPEND and clearing suid/sgid per POSIX's write-time rule.
func (d *Dispatch) Write(c uctxCtx, fr *fileref.Fileref, off int64, buf []byte, out *Iattr, reply func(errno.Errno)) (int64, errno.Errno) {
	var n int64
	e := d.run("WRITE", func() errno.Errno {
		if !fr.Writeable {
			return errno.EBADF
		}
		if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
			return e
		}
		h, e := d.namei.Inode(fr.Ino)
		if !e.OK() {
			return e
		}
		reg, ok := h.(*vnode.Reg)
		if !ok {
			return errno.EINVAL
		}
		writeOff := off
		if fr.Append {
			writeOff = reg.RSize
		}
		if e := d.gate.LetOffset(writeOff + int64(len(buf))); !e.OK() {
			return e
		}
		now := d.fs.Clk.Now()
		w, e := d.data.Write(reg, writeOff, buf, now)
		n = w
		if !e.OK() {
			return e
		}
		reg.Mode = permit.ClearSuidSgid(reg.Mode, c, c.InGroup(reg.Gid))
		d.stage(h)
		if out != nil {
			if res, e2 := d.iattr(h); e2.OK() {
				*out = res
			}
		}
		return 0
	}, reply)
	return n, e
}

// Release untethers a fileref opened by Open/Create.
func (d *Dispatch) Release(fr *fileref.Fileref) errno.Errno {
	d.fs.CountOp("RELEASE")
	ino := d.filerefs.Untie(fr)
	if h, ok := d.cache.Lookup(addr.Of(ino.VType(), ino)); ok {
		h.Unref(1)
	}
	return 0
}

// Fsync flushes outstanding commits via the configured Syncer.
func (d *Dispatch) Fsync() errno.Errno {
	d.fs.CountOp("FSYNC")
	return d.sync()
}

// Flush is the close()-path hint FUSE issues before Release; funex has
// no per-fd write buffer to drain, so it is a pure counted no-op.
func (d *Dispatch) Flush() errno.Errno {
	d.fs.CountOp("FLUSH")
	return 0
}

// Opendir binds a DIR inode to a fresh fileref slot for READDIR.
func (d *Dispatch) Opendir(c uctxCtx, ino addr.Ino) (*fileref.Fileref, errno.Errno) {
	var fr *fileref.Fileref
	e := d.run("OPENDIR", func() errno.Errno {
		dir, e := d.namei.Dir(ino)
		if !e.OK() {
			return e
		}
		if !permit.Access(dir.Mode, dir.Uid, dir.Gid, c, permit.AccessRead|permit.AccessExec) {
			return errno.EACCES
		}
		f := d.filerefs.Tie(ino, true, false, false, false, 0, c.Root)
		if f == nil {
			return errno.ENFILE
		}
		dir.Ref()
		fr = f
		return 0
	}, nil)
	return fr, e
}

// ReadDir returns the single directory entry at doff and the next
// offset to resume from, surfacing errno.EEOS verbatim once the
// directory is exhausted.
func (d *Dispatch) ReadDir(dirIno addr.Ino, doff int64) (DirEntry, errno.Errno) {
	var out DirEntry
	e := d.run("READDIR", func() errno.Errno {
		dir, e := d.namei.Dir(dirIno)
		if !e.OK() {
			return e
		}
		name, childIno, mode, next, e := d.namei.ReadDir(dir, doff)
		out = DirEntry{Name: name.Str, Ino: childIno, Mode: mode, NextOff: next}
		return e
	}, nil)
	return out, e
}

// Releasedir untethers a fileref opened by Opendir.
func (d *Dispatch) Releasedir(fr *fileref.Fileref) errno.Errno {
	d.fs.CountOp("RELEASEDIR")
	ino := d.filerefs.Untie(fr)
	if h, ok := d.cache.Lookup(addr.Of(addr.DIR, ino)); ok {
		h.Unref(1)
	}
	return 0
}

// Fsyncdir flushes outstanding commits for a directory subtree; funex
// has one commit stream, so it delegates to the same Syncer as Fsync.
func (d *Dispatch) Fsyncdir() errno.Errno {
	d.fs.CountOp("FSYNCDIR")
	return d.sync()
}

// Access checks mask against ino's POSIX permission bits without
// binding a fileref, the ACCESS opcode's standalone probe.
func (d *Dispatch) Access(c uctxCtx, ino addr.Ino, mask uint32) errno.Errno {
	return d.run("ACCESS", func() errno.Errno {
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		in, ok := h.(vnode.Inoder)
		if !ok {
			return errno.EINVAL
		}
		if !permit.Access(in.AsInode().Mode, in.AsInode().Uid, in.AsInode().Gid, c, mask) {
			return errno.EACCES
		}
		return 0
	}, nil)
}

// Fallocate ensures off..off+length is backed by containers (without
// necessarily allocating data blocks), optionally growing RSize.
func (d *Dispatch) Fallocate(ino addr.Ino, off, length int64, keepSize bool, reply func(errno.Errno)) errno.Errno {
	return d.run("FALLOCATE", func() errno.Errno {
		if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
			return e
		}
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		reg, ok := h.(*vnode.Reg)
		if !ok {
			return errno.EINVAL
		}
		if e := d.data.Fallocate(reg, off, length, keepSize, d.fs.Clk.Now()); !e.OK() {
			return e
		}
		d.stage(h)
		return 0
	}, reply)
}

// Punch deallocates whole blocks in off..off+length without shrinking
// RSize, FALLOC_FL_PUNCH_HOLE's semantics.
func (d *Dispatch) Punch(ino addr.Ino, off, length int64, reply func(errno.Errno)) errno.Errno {
	return d.run("PUNCH", func() errno.Errno {
		if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
			return e
		}
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		reg, ok := h.(*vnode.Reg)
		if !ok {
			return errno.EINVAL
		}
		if e := d.data.Punch(reg, off, length, d.fs.Clk.Now()); !e.OK() {
			return e
		}
		d.stage(h)
		return 0
	}, reply)
}

// Truncate resizes a REG by path/ino rather than through an open
// fileref, binding a ghost fileref only to carry the call through the
// usual access checks.
func (d *Dispatch) Truncate(c uctxCtx, ino addr.Ino, off int64, out *Iattr, reply func(errno.Errno)) errno.Errno {
	return d.run("TRUNCATE", func() errno.Errno {
		if e := d.gate.LetModify(d.pending.StagedLen()); !e.OK() {
			return e
		}
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		reg, ok := h.(*vnode.Reg)
		if !ok {
			return errno.EINVAL
		}
		if !permit.Access(reg.Mode, reg.Uid, reg.Gid, c, permit.AccessWrite) {
			return errno.EACCES
		}
		if e := d.gate.LetOffset(off); !e.OK() {
			return e
		}
		fr := d.filerefs.Ghost(ino)
		defer d.filerefs.Untie(fr)
		now := d.fs.Clk.Now()
		if e := d.data.Truncate(reg, off, now); !e.OK() {
			return e
		}
		reg.Mode = permit.ClearSuidSgid(reg.Mode, c, c.InGroup(reg.Gid))
		d.stage(h)
		res, e := d.iattr(h)
		if e.OK() {
			*out = res
		}
		return e
	}, reply)
}

// Statfs reports classic statvfs-style counters over the live super
// block, same source data FSINFO reports through its wider shape.
func (d *Dispatch) Statfs(out *FsinfoOut) errno.Errno {
	return d.run("STATFS", func() errno.Errno {
		*out = d.snapshotFsinfo()
		return 0
	}, nil)
}

// Fsinfo reports the same snapshot Statfs does, including the live
// per-opcode Fsoper map.
func (d *Dispatch) Fsinfo(out *FsinfoOut) errno.Errno {
	return d.run("FSINFO", func() errno.Errno {
		*out = d.snapshotFsinfo()
		return 0
	}, nil)
}

func (d *Dispatch) snapshotFsinfo() FsinfoOut {
	st := d.fs.Stat
	oper := make(map[string]int64, len(d.fs.Oper))
	for k, v := range d.fs.Oper {
		oper[k] = v
	}
	return FsinfoOut{
		BlockSize: d.cfg.FileSystem.BlockSize,
		Files:     st.Dirs + st.Regs + st.Symlnks + st.Reflnks,
		NameMax:   d.cfg.FileSystem.NameMax,
		Dirs:      st.Dirs,
		Regs:      st.Regs,
		Symlnks:   st.Symlnks,
		Reflnks:   st.Reflnks,
		Dirsegs:   st.Dirsegs,
		Vblks:     st.Vblks,
		Oper:      oper,
	}
}

// Fquery surfaces one vnode's lifecycle status bits to a diagnostic
// caller.
func (d *Dispatch) Fquery(ino addr.Ino, out *FqueryOut) errno.Errno {
	return d.run("FQUERY", func() errno.Errno {
		h, e := d.namei.Inode(ino)
		if !e.OK() {
			return e
		}
		mode := uint32(0)
		if in, ok := h.(vnode.Inoder); ok {
			mode = in.AsInode().Mode
		}
		*out = FqueryOut{
			Ino: ino, VType: h.VType(), Mode: mode, Refcnt: h.Refcnt(),
			Placed: h.Placed(), Pseudo: h.Pseudo(), Pinned: h.Pinned(),
			Cached: h.Cached(), Expired: h.Expired(), Forgot: h.Forgot(),
		}
		return 0
	}, nil)
}
