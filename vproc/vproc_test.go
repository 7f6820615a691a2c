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

package vproc_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/config"
	"github.com/synarete/funex/dispatch"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/pstor/fakepstor"
	"github.com/synarete/funex/super"
	"github.com/synarete/funex/uctx"
	"github.com/synarete/funex/vcache"
	"github.com/synarete/funex/vnode"
	"github.com/synarete/funex/vproc"
)

// harness bundles one mounted vproc end to end, the same collaborator
// set a real mount wires: a vcache with an advisory capacity, a synchronous fakepstor
// Store standing in for the persistent storage layer, and the
// dispatch/vproc pair built over them.
type harness struct {
	d  *dispatch.Dispatch
	v  *vproc.Vproc
	fs *super.FSInfo
}

func newHarness(t *testing.T, cfg config.Config) *harness {
	t.Helper()
	cache := vcache.New(4096)
	store := fakepstor.New(0)
	loader := vproc.NewLoader(store, cfg.FileSystem)
	alloc := vproc.NewAllocator(store)
	fs := super.New(cfg)
	d := dispatch.New(cache, loader, alloc, store, fs, cfg)

	root := vnode.NewDir(addr.InoRoot, uint32(cfg.FileSystem.DirMode), fs.Uid, fs.Gid, addr.InoNull, time.Now())
	root.SetPinned(true)
	root.ParentdIno = addr.InoRoot
	cache.Store(root)
	fs.IncStat(addr.DIR, 1)
	_, err := store.SpawnVnode(addr.Of(addr.DIR, addr.InoRoot))
	require.NoError(t, err)

	return &harness{d: d, v: vproc.New(d, store, 4096), fs: fs}
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.FileSystem.BlockSize = 512
	cfg.FileSystem.RsegSize = 4096
	cfg.FileSystem.RsecSize = 8192
	return cfg
}

func (h *harness) mkdir(t *testing.T, parent addr.Ino, name string) addr.Ino {
	t.Helper()
	var out dispatch.Iattr
	ino, e := h.d.Mkdir(uctx.Super(), parent, name, 0o755, &out, nil)
	require.True(t, e.OK(), "mkdir %s: %v", name, e)
	return ino
}

func (h *harness) create(t *testing.T, parent addr.Ino, name string) (addr.Ino, *dispatch.Iattr) {
	t.Helper()
	var out dispatch.Iattr
	ino, fr, e := h.d.Create(uctx.Super(), parent, name, 0o644, dispatch.ORdwr, &out, nil)
	require.True(t, e.OK(), "create %s: %v", name, e)
	require.True(t, h.d.Release(fr).OK())
	return ino, &out
}

func TestScenarioS1_CreateWriteReadUnlink(t *testing.T) {
	h := newHarness(t, testConfig())
	c := uctx.Super()

	dIno := h.mkdir(t, addr.InoRoot, "d")

	var createOut dispatch.Iattr
	fIno, fr, e := h.d.Create(c, dIno, "f", 0o644, dispatch.ORdwr, &createOut, nil)
	require.True(t, e.OK())
	require.Zero(t, createOut.Size)

	n, e := h.d.Write(c, fr, 0, []byte("hello"), nil, nil)
	require.True(t, e.OK())
	require.EqualValues(t, 5, n)

	out, e := h.d.Read(fr, 0, 16)
	require.True(t, e.OK())
	require.Equal(t, "hello", string(out))

	var getOut dispatch.Iattr
	require.True(t, h.d.Getattr(fIno, &getOut).OK())
	require.EqualValues(t, 5, getOut.Size)
	require.EqualValues(t, 1, getOut.Nlink)

	require.True(t, h.d.Release(fr).OK())

	// Drive the full cooperative job loop once: commit-drain every
	// vnode staged above through the fake store before the final
	// unlink/rmdir pair.
	h.v.Tick(nil)

	require.True(t, h.d.Unlink(c, dIno, "f", nil).OK())

	require.Equal(t, errno.ENOENT, h.d.Lookup(c, dIno, "f", &dispatch.Iattr{}))
	require.True(t, h.d.Rmdir(c, addr.InoRoot, "d", nil).OK())
}

func TestScenarioS2_RenameAcrossDirsWithOverwrite(t *testing.T) {
	h := newHarness(t, testConfig())
	c := uctx.Super()

	aIno := h.mkdir(t, addr.InoRoot, "a")
	bIno := h.mkdir(t, addr.InoRoot, "b")

	var out dispatch.Iattr
	xIno, xfr, e := h.d.Create(c, aIno, "x", 0o644, dispatch.ORdwr, &out, nil)
	require.True(t, e.OK())
	_, e = h.d.Write(c, xfr, 0, []byte("X"), nil, nil)
	require.True(t, e.OK())
	require.True(t, h.d.Release(xfr).OK())

	_, yfr, e := h.d.Create(c, bIno, "y", 0o644, dispatch.ORdwr, &out, nil)
	require.True(t, e.OK())
	_, e = h.d.Write(c, yfr, 0, []byte("Y"), nil, nil)
	require.True(t, e.OK())
	require.True(t, h.d.Release(yfr).OK())

	require.True(t, h.d.Rename(c, aIno, "x", bIno, "y", nil).OK())

	var lookedUp dispatch.Iattr
	require.True(t, h.d.Lookup(c, bIno, "y", &lookedUp).OK())
	require.Equal(t, xIno, lookedUp.Ino)

	require.Equal(t, errno.ENOENT, h.d.Lookup(c, aIno, "x", &dispatch.Iattr{}))

	fr, e := h.d.Open(c, xIno, dispatch.ORdwr)
	require.True(t, e.OK())
	content, e := h.d.Read(fr, 0, 16)
	require.True(t, e.OK())
	require.Equal(t, "X", string(content))
	require.True(t, h.d.Release(fr).OK())
}

func TestScenarioS3_SparseWriteAndPunch(t *testing.T) {
	cfg := testConfig()
	cfg.FileSystem.BlockSize = 8192
	cfg.FileSystem.RsegSize = 1 << 20
	cfg.FileSystem.RsecSize = 1 << 26
	h := newHarness(t, cfg)
	c := uctx.Super()
	const blk = int64(8192)

	_, attr := h.create(t, addr.InoRoot, "f")
	fIno := attr.Ino
	fr, e := h.d.Open(c, fIno, dispatch.ORdwr)
	require.True(t, e.OK())

	_, e = h.d.Write(c, fr, 0, []byte{1}, nil, nil)
	require.True(t, e.OK())
	_, e = h.d.Write(c, fr, 3*blk, []byte{1}, nil, nil)
	require.True(t, e.OK())

	var out dispatch.Iattr
	require.True(t, h.d.Getattr(fIno, &out).OK())
	require.EqualValues(t, 3*blk+1, out.Size)

	var q dispatch.FqueryOut
	require.True(t, h.d.Fquery(fIno, &q).OK())

	require.True(t, h.d.Punch(fIno, 0, 3*blk, nil).OK())

	require.True(t, h.d.Getattr(fIno, &out).OK())
	require.EqualValues(t, 3*blk+1, out.Size, "punch must not change size")

	zeros, e := h.d.Read(fr, 0, 16)
	require.True(t, e.OK())
	for _, b := range zeros {
		require.Zero(t, b)
	}
	require.True(t, h.d.Release(fr).OK())
}

func TestScenarioS4_HardLinkAndUnlinkAccounting(t *testing.T) {
	h := newHarness(t, testConfig())
	c := uctx.Super()

	dIno := h.mkdir(t, addr.InoRoot, "d")
	fIno, _ := h.create(t, dIno, "f")

	var linkOut dispatch.Iattr
	require.True(t, h.d.Link(c, fIno, dIno, "g", &linkOut, nil).OK())
	require.EqualValues(t, 2, linkOut.Nlink)

	require.True(t, h.d.Unlink(c, dIno, "g", nil).OK())

	var out dispatch.Iattr
	require.True(t, h.d.Getattr(fIno, &out).OK())
	require.EqualValues(t, 1, out.Nlink)
}

func TestScenarioS5_ReaddirCompleteness(t *testing.T) {
	h := newHarness(t, testConfig())

	dIno := h.mkdir(t, addr.InoRoot, "D")
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"}
	for _, n := range names {
		h.mkdir(t, dIno, n)
	}

	seen := map[string]int{}
	doff := int64(vnode.DoffSelf)
	sawSelf, sawParent := false, false
	for i := 0; i < 1000; i++ {
		ent, e := h.d.ReadDir(dIno, doff)
		if e == errno.EEOS {
			break
		}
		require.True(t, e.OK(), "readdir at doff=%d: %v", doff, e)
		switch ent.Name {
		case ".":
			sawSelf = true
		case "..":
			sawParent = true
		default:
			seen[ent.Name]++
		}
		require.NotEqual(t, vnode.DoffNone, ent.NextOff, "premature DOFF_NONE")
		doff = ent.NextOff
	}

	require.True(t, sawSelf)
	require.True(t, sawParent)
	require.Len(t, seen, len(names), fmt.Sprintf("got %v", seen))
	for _, n := range names {
		require.Equal(t, 1, seen[n], "name %q yielded %d times", n, seen[n])
	}
}

func TestScenarioS6_RollbackOnChildSpaceExhaustion(t *testing.T) {
	cfg := testConfig()
	cfg.FileSystem.DirChildMax = 4
	h := newHarness(t, cfg)
	c := uctx.Super()

	dIno := h.mkdir(t, addr.InoRoot, "D")
	for i := 0; i < cfg.FileSystem.DirChildMax; i++ {
		h.mkdir(t, dIno, fmt.Sprintf("child-%d", i))
	}

	regsBefore := h.fs.Stat.Regs
	dirsBefore := h.fs.Stat.Dirs

	var out dispatch.Iattr
	_, e := h.d.Mknod(c, dIno, "one-more", 0o644, &out, nil)
	require.Equal(t, errno.EMLINK, e)

	require.Equal(t, regsBefore, h.fs.Stat.Regs)
	require.Equal(t, dirsBefore, h.fs.Stat.Dirs)

	require.Equal(t, errno.ENOENT, h.d.Lookup(c, dIno, "one-more", &dispatch.Iattr{}))
}

func TestVprocTickDrainsDelayedCommit(t *testing.T) {
	cfg := testConfig()
	cache := vcache.New(64)
	store := fakepstor.New(5 * time.Millisecond)
	loader := vproc.NewLoader(store, cfg.FileSystem)
	alloc := vproc.NewAllocator(store)
	fs := super.New(cfg)
	d := dispatch.New(cache, loader, alloc, store, fs, cfg)

	root := vnode.NewDir(addr.InoRoot, uint32(cfg.FileSystem.DirMode), fs.Uid, fs.Gid, addr.InoNull, time.Now())
	root.SetPinned(true)
	cache.Store(root)
	_, err := store.SpawnVnode(addr.Of(addr.DIR, addr.InoRoot))
	require.NoError(t, err)

	v := vproc.New(d, store, 64)
	c := uctx.Super()

	var out dispatch.Iattr
	_, e := d.Mkdir(c, addr.InoRoot, "slow", 0o755, &out, nil)
	require.True(t, e.OK())

	v.Tick(store.Completions)
	require.NotZero(t, v.DelayedLen(), "in-flight commits must stay tracked until they settle")

	require.NoError(t, store.Sync())
	v.Tick(store.Completions)
	require.Zero(t, v.DelayedLen(), "settled commits must leave the delayed set")
}
