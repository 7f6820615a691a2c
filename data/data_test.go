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

package data_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/config"
	"github.com/synarete/funex/data"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/super"
	"github.com/synarete/funex/vcache"
	"github.com/synarete/funex/vnode"
)

// fakeLoader stands in for vproc's real Loader: Alloc manufactures a
// fresh Regseg/Regsec shell for the requested tier, Fetch
// serves whatever Alloc most recently handed out for that vaddr (the
// store never actually evicts in these tests, so a real cache miss
// never reaches it).
type fakeLoader struct {
	rsegSlots int
	built     map[addr.Vaddr]vnode.Handle
}

func newFakeLoader(rsegSlots int) *fakeLoader {
	return &fakeLoader{rsegSlots: rsegSlots, built: make(map[addr.Vaddr]vnode.Handle)}
}

func (l *fakeLoader) Fetch(va addr.Vaddr) (vnode.Handle, errno.Errno) {
	if h, ok := l.built[va]; ok {
		return h, 0
	}
	return nil, errno.ENOENT
}

func (l *fakeLoader) Alloc(va addr.Vaddr) (vnode.Handle, errno.Errno) {
	var h vnode.Handle
	if va.Xno&vnode.SecXnoTag != 0 {
		secOff := int64(va.Xno &^ vnode.SecXnoTag)
		h = vnode.NewRegsec(va.Ino, 0, secOff)
	} else {
		h = vnode.NewRegseg(va.Ino, int64(va.Xno), l.rsegSlots)
	}
	l.built[va] = h
	return h, 0
}

// testConfig keeps the tiers small enough that a single test exercises
// segment 0, a direct Regseg and a Regsec-indexed Regseg without huge
// buffers: BlockSize 512, RsegSize 4096 (8 blocks), RsecSize 8192 (2
// segments per section).
func testConfig() config.FileSystemConfig {
	return config.FileSystemConfig{
		BlockSize:  512,
		RsegSize:   4096,
		RsecSize:   8192,
		RegSizeMax: 1 << 30,
	}
}

func newData(cfg config.FileSystemConfig) (*data.Data, *vnode.Reg) {
	loader := newFakeLoader(int(cfg.RsegSize / cfg.BlockSize))
	cache := vcache.New(64)
	fs := super.New(config.Config{FileSystem: cfg})
	reg := vnode.NewReg(addr.InoCreate(7, addr.REG), 0644, 0, 0, int(cfg.RsegSize/cfg.BlockSize), time.Now())
	return data.New(cache, loader, nil, fs, cfg), reg
}

func TestWriteReadRoundTripSegment0(t *testing.T) {
	d, reg := newData(testConfig())
	now := time.Now()

	buf := []byte("hello, funex")
	n, e := d.Write(reg, 0, buf, now)
	require.True(t, e.OK())
	assert.EqualValues(t, len(buf), n)
	assert.EqualValues(t, len(buf), reg.RSize)

	out, e := d.Read(reg, 0, int64(len(buf)), false, now)
	require.True(t, e.OK())
	assert.Equal(t, buf, out)
}

func TestWriteCrossesIntoDirectSegmentAndSection(t *testing.T) {
	cfg := testConfig()
	d, reg := newData(cfg)
	now := time.Now()

	// Offset 5000 lands past RsegSize (4096): direct Regseg territory.
	buf := []byte("cross-segment-write")
	_, e := d.Write(reg, 5000, buf, now)
	require.True(t, e.OK())
	assert.True(t, reg.HasSeg(1))

	out, e := d.Read(reg, 5000, int64(len(buf)), false, now)
	require.True(t, e.OK())
	assert.Equal(t, buf, out)

	// Offset past RsecSize (8192): Regsec-indexed territory.
	buf2 := []byte("sectioned-write")
	_, e = d.Write(reg, 9000, buf2, now)
	require.True(t, e.OK())
	assert.True(t, reg.HasSec(1))

	out2, e := d.Read(reg, 9000, int64(len(buf2)), false, now)
	require.True(t, e.OK())
	assert.Equal(t, buf2, out2)
}

func TestReadHoleReturnsZeros(t *testing.T) {
	d, reg := newData(testConfig())
	now := time.Now()

	reg.RSize = 2048 // pretend the file is this large with nothing ever written
	out, e := d.Read(reg, 0, 512, false, now)
	require.True(t, e.OK())
	assert.Equal(t, make([]byte, 512), out)
}

func TestReadPastEOFReturnsEmpty(t *testing.T) {
	d, reg := newData(testConfig())
	now := time.Now()

	_, _ = d.Write(reg, 0, []byte("abc"), now)
	out, e := d.Read(reg, 100, 10, false, now)
	require.True(t, e.OK())
	assert.Empty(t, out)
}

func TestNoatimeSuppressesAtimeUpdate(t *testing.T) {
	d, reg := newData(testConfig())
	now := time.Now()
	_, _ = d.Write(reg, 0, []byte("abc"), now)

	before := reg.Atime
	later := now.Add(time.Hour)
	_, e := d.Read(reg, 0, 3, true, later)
	require.True(t, e.OK())
	assert.Equal(t, before, reg.Atime, "noatime must suppress the Atime update")

	_, e = d.Read(reg, 0, 3, false, later)
	require.True(t, e.OK())
	assert.Equal(t, later, reg.Atime)
}

// TestSparseWriteAndPunch covers a sparse write followed by a
// whole-block punch over the written range, with BlockSize-granular
// hole semantics.
func TestSparseWriteAndPunch(t *testing.T) {
	cfg := testConfig()
	d, reg := newData(cfg)
	now := time.Now()

	// Write one block far out (offset 3 * BlockSize), leaving a sparse
	// gap before it that was never materialized.
	off := 3 * cfg.BlockSize
	buf := make([]byte, cfg.BlockSize)
	for i := range buf {
		buf[i] = byte(i)
	}
	_, e := d.Write(reg, off, buf, now)
	require.True(t, e.OK())
	assert.EqualValues(t, 1, d.CountNonNullBlocks(reg))

	// Reading the untouched gap comes back as zeros.
	gap, e := d.Read(reg, 0, cfg.BlockSize, false, now)
	require.True(t, e.OK())
	assert.Equal(t, make([]byte, cfg.BlockSize), gap)

	// Punch the written block away; it collapses back to a hole.
	e = d.Punch(reg, off, cfg.BlockSize, now)
	require.True(t, e.OK())
	assert.EqualValues(t, 0, d.CountNonNullBlocks(reg))

	after, e := d.Read(reg, off, cfg.BlockSize, false, now)
	require.True(t, e.OK())
	assert.Equal(t, make([]byte, cfg.BlockSize), after)
}

// TestTruncateShrinkThenGrowIsSparse: truncating down releases
// blocks, and truncating back up never rematerializes them; growth
// is purely a size-field update.
func TestTruncateShrinkThenGrowIsSparse(t *testing.T) {
	cfg := testConfig()
	d, reg := newData(cfg)
	now := time.Now()

	buf := make([]byte, 4*cfg.BlockSize)
	_, e := d.Write(reg, 0, buf, now)
	require.True(t, e.OK())
	assert.EqualValues(t, 4, d.CountNonNullBlocks(reg))

	e = d.Truncate(reg, cfg.BlockSize, now)
	require.True(t, e.OK())
	assert.EqualValues(t, cfg.BlockSize, reg.RSize)
	assert.EqualValues(t, 1, d.CountNonNullBlocks(reg))

	e = d.Truncate(reg, 4*cfg.BlockSize, now)
	require.True(t, e.OK())
	assert.EqualValues(t, 4*cfg.BlockSize, reg.RSize)
	assert.EqualValues(t, 1, d.CountNonNullBlocks(reg), "grow-back must stay sparse")

	out, e := d.Read(reg, cfg.BlockSize, cfg.BlockSize, false, now)
	require.True(t, e.OK())
	assert.Equal(t, make([]byte, cfg.BlockSize), out)
}

func TestTruncateIdempotent(t *testing.T) {
	d, reg := newData(testConfig())
	now := time.Now()
	_, _ = d.Write(reg, 0, make([]byte, 2000), now)

	e := d.Truncate(reg, 500, now)
	require.True(t, e.OK())
	nblks := d.CountNonNullBlocks(reg)

	e = d.Truncate(reg, 500, now)
	require.True(t, e.OK())
	assert.Equal(t, nblks, d.CountNonNullBlocks(reg))
	assert.EqualValues(t, 500, reg.RSize)
}

func TestFallocateKeepSizeDoesNotGrow(t *testing.T) {
	cfg := testConfig()
	d, reg := newData(cfg)
	now := time.Now()

	e := d.Fallocate(reg, 0, 5*cfg.BlockSize, true, now)
	require.True(t, e.OK())
	assert.EqualValues(t, 0, reg.RSize)

	e = d.Fallocate(reg, 0, 5*cfg.BlockSize, false, now)
	require.True(t, e.OK())
	assert.EqualValues(t, 5*cfg.BlockSize, reg.RSize)
}

func TestWriteBeyondRegSizeMaxFails(t *testing.T) {
	cfg := testConfig()
	cfg.RegSizeMax = 1024
	d, reg := newData(cfg)

	_, e := d.Write(reg, 2000, []byte("x"), time.Now())
	assert.Equal(t, errno.EFBIG, e)
}
