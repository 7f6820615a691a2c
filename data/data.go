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

// Package data is the three-level extent-map data layer:
// block-granular read/write/punch/truncate/fallocate over a Reg's
// Segmap0/Secmap/Segmap tiers. The covering container is purely a
// function of the byte offset: segment 0 inline in the Reg, a direct
// Regseg for RsegSize <= off < RsecSize, and a Regsec-indexed Regseg
// beyond that.
package data

import (
	"time"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/bkref"
	"github.com/synarete/funex/config"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/super"
	"github.com/synarete/funex/vcache"
	"github.com/synarete/funex/vnode"
)

// Loader resolves a cache miss by fetching or allocating a vnode,
// mirroring namei.Loader's seam between this package and the storage
// layer (vproc supplies the concrete implementation).
type Loader interface {
	Fetch(va addr.Vaddr) (vnode.Handle, errno.Errno)
	Alloc(va addr.Vaddr) (vnode.Handle, errno.Errno)
}

// Allocator reserves storage capacity ahead of use, mirroring the
// storage contract's RequireVaddr; the write pipeline checks each
// fresh block's headroom here before binding it, surfacing ENOSPC
// before any slot is overwritten.
type Allocator interface {
	RequireVaddr(va addr.Vaddr) errno.Errno
}

// Data bundles the vnode cache, a Loader for cache misses, the super
// block's Vlba allocation cursor, and the block/region sizing
// constants every pipeline below is built from.
type Data struct {
	cache  *vcache.Cache
	loader Loader
	alloc  Allocator
	fs     *super.FSInfo
	cfg    config.FileSystemConfig
}

func New(cache *vcache.Cache, loader Loader, alloc Allocator, fs *super.FSInfo, cfg config.FileSystemConfig) *Data {
	return &Data{cache: cache, loader: loader, alloc: alloc, fs: fs, cfg: cfg}
}

func (d *Data) fetch(va addr.Vaddr) (vnode.Handle, errno.Errno) {
	if h, ok := d.cache.Lookup(va); ok {
		return h, 0
	}
	h, e := d.loader.Fetch(va)
	if !e.OK() {
		return nil, e
	}
	d.cache.Store(h)
	return h, 0
}

func floorBlock(off, bs int64) int64 { return off - off%bs }

func ceilBlock(off, bs int64) int64 {
	if off%bs == 0 {
		return off
	}
	return off - off%bs + bs
}

func (d *Data) segFloor(off int64) int64 { return floorBlock(off, d.cfg.RsegSize) }
func (d *Data) secFloor(off int64) int64 { return floorBlock(off, d.cfg.RsecSize) }

// regsegVaddr and regsecVaddr build the addresses data.resolveSlot and
// vnode.NewRegseg/NewRegsec agree on: {SPECIAL, regIno, byte-offset},
// with vnode.SecXnoTag disambiguating a section's address from the
// segment that may start at the very same byte offset.
func regsegVaddr(regIno addr.Ino, segOff int64) addr.Vaddr {
	return addr.WithXno(addr.SPECIAL, regIno, uint64(segOff))
}

func regsecVaddr(regIno addr.Ino, secOff int64) addr.Vaddr {
	return addr.WithXno(addr.SPECIAL, regIno, uint64(secOff)|vnode.SecXnoTag)
}

// resolveSlot returns get/set closures over the extent-map slot
// holding the Vaddr of the block that covers byte offset off. When
// create is false and the covering container does not yet exist, get
// returns addr.NullVaddr without error (a hole) rather than
// materializing one.
func (d *Data) resolveSlot(reg *vnode.Reg, off int64, create bool) (get func() addr.Vaddr, set func(addr.Vaddr), e errno.Errno) {
	nullGet := func() addr.Vaddr { return addr.NullVaddr }
	nullSet := func(addr.Vaddr) {}
	bs := d.cfg.BlockSize

	if off < d.cfg.RsegSize {
		idx := int(off / bs)
		if idx >= len(reg.Segmap0) {
			return nullGet, nullSet, errno.EFBIG
		}
		return func() addr.Vaddr { return reg.Segmap0[idx] },
			func(v addr.Vaddr) { reg.Segmap0[idx] = v }, 0
	}

	segOff := d.segFloor(off)
	zoneC := off >= d.cfg.RsecSize

	var present bool
	var markPresent func(bool)

	if !zoneC {
		segIdx := int(segOff / d.cfg.RsegSize)
		present = reg.HasSeg(segIdx)
		markPresent = func(b bool) { reg.SetSeg(segIdx, b) }
	} else {
		secOff := d.secFloor(off)
		secIdx := int(secOff / d.cfg.RsecSize)
		if !reg.HasSec(secIdx) {
			if !create {
				return nullGet, nullSet, 0
			}
			h, ae := d.loader.Alloc(regsecVaddr(reg.Ino(), secOff))
			if !ae.OK() {
				return nullGet, nullSet, ae
			}
			d.cache.Store(h)
			reg.SetSec(secIdx, true)
		}
		rsH, fe := d.fetch(regsecVaddr(reg.Ino(), secOff))
		if !fe.OK() {
			return nullGet, nullSet, fe
		}
		rsec, ok := rsH.(*vnode.Regsec)
		if !ok {
			return nullGet, nullSet, errno.EINVAL
		}
		localSeg := int((segOff - secOff) / d.cfg.RsegSize)
		present = rsec.HasSeg(localSeg)
		markPresent = func(b bool) { rsec.SetSeg(localSeg, b) }
	}

	if !present && !create {
		return nullGet, nullSet, 0
	}

	va := regsegVaddr(reg.Ino(), segOff)
	var rsegH vnode.Handle
	if !present {
		h, ae := d.loader.Alloc(va)
		if !ae.OK() {
			return nullGet, nullSet, ae
		}
		d.cache.Store(h)
		markPresent(true)
		rsegH = h
	} else {
		h, fe := d.fetch(va)
		if !fe.OK() {
			return nullGet, nullSet, fe
		}
		rsegH = h
	}

	rseg, ok := rsegH.(*vnode.Regseg)
	if !ok {
		return nullGet, nullSet, errno.EINVAL
	}
	slotIdx := int((off - segOff) / bs)
	if slotIdx >= len(rseg.Segmap) {
		return nullGet, nullSet, errno.EFBIG
	}
	return func() addr.Vaddr { return rseg.Segmap[slotIdx] },
		func(v addr.Vaddr) { rseg.Segmap[slotIdx] = v }, 0
}

// Write allocates a fresh Vbk for every block position in
// [off, off+len(buf)), merging the old block's bytes into any
// unmodified gap of a sub-block write, and replaces the map slot; the
// old block (if any) is marked expired rather than freed here;
// retirement and storage reclamation belong to vproc's post-op
// commit drain.
func (d *Data) Write(reg *vnode.Reg, off int64, buf []byte, now time.Time) (int64, errno.Errno) {
	if len(buf) == 0 {
		reg.Touch(now, false)
		return 0, 0
	}
	end := off + int64(len(buf))
	if end > d.cfg.RegSizeMax {
		return 0, errno.EFBIG
	}

	bs := d.cfg.BlockSize
	var written int64

	for pos := off; pos < end; {
		blockOff := floorBlock(pos, bs)
		inStart := pos - blockOff
		inEnd := bs
		if blockOff+bs > end {
			inEnd = end - blockOff
		}

		get, set, e := d.resolveSlot(reg, blockOff, true)
		if !e.OK() {
			return written, e
		}
		oldVa := get()

		full := make([]byte, bs)
		if !oldVa.IsNull() {
			oh, fe := d.fetch(oldVa)
			if !fe.OK() {
				return written, fe
			}
			if ob := oh.Block(); ob != nil {
				copy(full, ob.Bytes())
			}
		}
		copy(full[inStart:inEnd], buf[blockOff+inStart-off:blockOff+inEnd-off])

		lba := d.fs.NextVlba()
		newVa := addr.VblkAddr(lba)
		if d.alloc != nil {
			if e := d.alloc.RequireVaddr(newVa); !e.OK() {
				return written, e
			}
		}
		nv := vnode.NewVbk(lba)
		nv.SetBlock(bkref.New(newVa, full))
		d.cache.Store(nv)
		set(newVa)

		if oldVa.IsNull() {
			reg.RNblks++
		} else if oh, ok := d.cache.Lookup(oldVa); ok {
			oh.SetExpired(true)
		}

		written += inEnd - inStart
		pos = blockOff + inEnd
	}

	if end > reg.RSize {
		reg.RSize = end
	}
	reg.Touch(now, true)
	return written, 0
}

// Read clamps off to the logical size and yields holes as zeros.
// noatime suppresses the Atime update entirely, not just the commit
// it would otherwise trigger, and a read never stages the inode for
// commit either way, since Read never calls Touch.
func (d *Data) Read(reg *vnode.Reg, off, size int64, noatime bool, now time.Time) ([]byte, errno.Errno) {
	if off < 0 || size <= 0 || off >= reg.RSize {
		if !noatime {
			reg.Atime = now
		}
		return nil, 0
	}
	end := off + size
	if end > reg.RSize {
		end = reg.RSize
	}

	bs := d.cfg.BlockSize
	out := make([]byte, 0, end-off)

	for pos := off; pos < end; {
		blockOff := floorBlock(pos, bs)
		inStart := pos - blockOff
		inEnd := bs
		if blockOff+bs > end {
			inEnd = end - blockOff
		}
		n := inEnd - inStart

		get, _, e := d.resolveSlot(reg, blockOff, false)
		if !e.OK() {
			return out, e
		}
		va := get()

		chunk := make([]byte, n)
		if !va.IsNull() {
			h, fe := d.fetch(va)
			if !fe.OK() {
				return out, fe
			}
			if b := h.Block(); b != nil {
				bytes := b.Bytes()
				switch {
				case int64(len(bytes)) >= inEnd:
					copy(chunk, bytes[inStart:inEnd])
				case int64(len(bytes)) > inStart:
					copy(chunk, bytes[inStart:])
				}
			}
		}
		out = append(out, chunk...)
		pos = blockOff + inEnd
	}

	if !noatime {
		reg.Atime = now
	}
	return out, 0
}

// Punch deallocates with whole-block semantics only (off rounds up,
// off+len rounds down) and expires emptied Regseg/Regsec containers
// after trimming.
func (d *Data) Punch(reg *vnode.Reg, off, length int64, now time.Time) errno.Errno {
	bs := d.cfg.BlockSize
	start := ceilBlock(off, bs)
	end := floorBlock(off+length, bs)
	if end <= start {
		return 0
	}

	for blockOff := start; blockOff < end; blockOff += bs {
		get, set, e := d.resolveSlot(reg, blockOff, false)
		if !e.OK() {
			return e
		}
		va := get()
		if va.IsNull() {
			continue
		}
		if h, ok := d.cache.Lookup(va); ok {
			h.SetExpired(true)
		}
		set(addr.NullVaddr)
		reg.RNblks--
	}

	d.collapseEmptyContainers(reg, start, end)
	reg.Touch(now, true)
	return 0
}

// collapseEmptyContainers clears the Segmap/Secmap presence bit (and
// marks the container expired) for every Regseg/Regsec that a punch
// just emptied.
func (d *Data) collapseEmptyContainers(reg *vnode.Reg, start, end int64) {
	segSize := d.cfg.RsegSize
	for segOff := d.segFloor(start); segOff < end; segOff += segSize {
		if segOff < d.cfg.RsegSize {
			continue // segment 0 lives inline; nothing to collapse
		}
		h, ok := d.cache.Lookup(regsegVaddr(reg.Ino(), segOff))
		if !ok {
			continue
		}
		rseg, ok := h.(*vnode.Regseg)
		if !ok || !rseg.Empty() {
			continue
		}
		rseg.SetExpired(true)
		segIdx := int(segOff / segSize)

		if segOff < d.cfg.RsecSize {
			reg.SetSeg(segIdx, false)
			continue
		}

		secOff := d.secFloor(segOff)
		if sh, ok := d.cache.Lookup(regsecVaddr(reg.Ino(), secOff)); ok {
			rsec := sh.(*vnode.Regsec)
			localSeg := int((segOff - secOff) / segSize)
			rsec.SetSeg(localSeg, false)
			if rsec.Empty() {
				rsec.SetExpired(true)
				reg.SetSec(int(secOff/d.cfg.RsecSize), false)
			}
		}
	}
}

// Truncate shrinks by releasing the trailing blocks via Punch before
// updating the logical size; growing only updates the size (sparse
// growth, no blocks are materialized).
func (d *Data) Truncate(reg *vnode.Reg, off int64, now time.Time) errno.Errno {
	if off < 0 {
		return errno.EINVAL
	}
	if off > d.cfg.RegSizeMax {
		return errno.EFBIG
	}
	if off < reg.RSize {
		bs := d.cfg.BlockSize
		start := ceilBlock(off, bs)
		end := ceilBlock(reg.RSize, bs)
		if end > start {
			if e := d.Punch(reg, start, end-start, now); !e.OK() {
				return e
			}
		}
	}
	reg.RSize = off
	reg.Touch(now, true)
	return 0
}

// Fallocate walks the range ensuring the covering Regsec/Regseg
// containers exist without allocating any block, and grows the
// logical size to the range end unless keepSize is set.
func (d *Data) Fallocate(reg *vnode.Reg, off, length int64, keepSize bool, now time.Time) errno.Errno {
	if off < 0 || length < 0 {
		return errno.EINVAL
	}
	end := off + length
	if end > d.cfg.RegSizeMax {
		return errno.EFBIG
	}

	bs := d.cfg.BlockSize
	for blockOff := floorBlock(off, bs); blockOff < end; blockOff += bs {
		if _, _, e := d.resolveSlot(reg, blockOff, true); !e.OK() {
			return e
		}
	}

	if !keepSize && end > reg.RSize {
		reg.RSize = end
	}
	reg.Touch(now, true)
	return 0
}

// CountNonNullBlocks sums the resident-block contribution of every
// tier under reg (segment 0 plus every materialized Regseg), a
// from-scratch recount against which RNblks bookkeeping can be
// checked.
func (d *Data) CountNonNullBlocks(reg *vnode.Reg) int64 {
	n := reg.CountNonNullSegmap0()
	walk := func(segOff int64) {
		if h, ok := d.cache.Lookup(regsegVaddr(reg.Ino(), segOff)); ok {
			if rseg, ok := h.(*vnode.Regseg); ok {
				n += rseg.CountNonNull()
			}
		}
	}
	for segIdx := range reg.Segmap {
		walk(int64(segIdx) * d.cfg.RsegSize)
	}
	for secIdx := range reg.Secmap {
		secOff := int64(secIdx) * d.cfg.RsecSize
		if h, ok := d.cache.Lookup(regsecVaddr(reg.Ino(), secOff)); ok {
			if rsec, ok := h.(*vnode.Regsec); ok {
				for localSeg := range rsec.Segmap {
					walk(secOff + int64(localSeg)*d.cfg.RsegSize)
				}
			}
		}
	}
	return n
}
