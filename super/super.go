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

// Package super holds the one piece of mount-wide mutable state a
// vproc carries: filesystem identity, mount flags, the ino and Vlba
// allocation cursors, and the operation/object counters. It is passed
// down explicitly rather than living in package globals; the logger
// and panic sink are the only process-level exceptions.
package super

import (
	"time"

	"github.com/google/uuid"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/clock"
	"github.com/synarete/funex/config"
)

// Fsstat counts live objects per VType.
type Fsstat struct {
	Dirs    int64
	Regs    int64
	Symlnks int64
	Reflnks int64
	Dirsegs int64
	Vblks   int64
}

// Fsoper counts dispatched operations, keyed by opcode name; the
// metrics package mirrors these into Prometheus counters.
type Fsoper map[string]int64

// FSInfo is the super block's in-memory image: identity, mount
// policy, and the two monotonic allocation cursors.
type FSInfo struct {
	UUID uuid.UUID
	Uid  uint32
	Gid  uint32

	ReadOnly bool
	Noatime  bool

	// inoCursor and lbaCursor are the next free values handed out by
	// NextIno/NextVlba; both start past the reserved inos.
	inoCursor uint64
	lbaCursor uint64

	Stat Fsstat
	Oper Fsoper

	Mtime time.Time

	RootIno addr.Ino

	// Clk is the time source every Touch call stamps Mtime from, and
	// the same source dispatch/data use for inode timestamps. A real
	// mount gets clock.RealClock{}, a test a clock.SimulatedClock.
	Clk clock.Clock
}

// New creates the super-block state for a fresh mount, seeding the
// allocation cursors past the reserved root/pseudo-root inos.
func New(cfg config.Config) *FSInfo {
	return NewWithClock(cfg, clock.RealClock{})
}

// NewWithClock is New with an explicit time source, the seam tests use
// to drive Mtime/timestamp assertions off a clock.SimulatedClock instead
// of wall time.
func NewWithClock(cfg config.Config, clk clock.Clock) *FSInfo {
	return &FSInfo{
		UUID:      uuid.New(),
		Uid:       cfg.FileSystem.Uid,
		Gid:       cfg.FileSystem.Gid,
		ReadOnly:  cfg.Mount.ReadOnly,
		Noatime:   cfg.Mount.Noatime,
		inoCursor: 3, // 0 null, 1 root, 2 psroot
		lbaCursor: 1,
		Oper:      make(Fsoper),
		Mtime:     clk.Now(),
		RootIno:   addr.InoRoot,
		Clk:       clk,
	}
}

// NextIno reserves the next free base identifier and packs it with vt.
func (fi *FSInfo) NextIno(vt addr.VType) addr.Ino {
	base := fi.inoCursor
	fi.inoCursor++
	return addr.InoCreate(base, vt)
}

// NextVlba reserves the next virtual logical block address for a new
// Vbk.
func (fi *FSInfo) NextVlba() addr.Vlba {
	lba := fi.lbaCursor
	fi.lbaCursor++
	return addr.Vlba(lba)
}

// PeekVlba reports the next Vlba that NextVlba would hand out, without
// consuming it. The write pipeline's capacity prediction checks
// headroom here before committing to N allocations.
func (fi *FSInfo) PeekVlba() addr.Vlba { return addr.Vlba(fi.lbaCursor) }

// CountOp tallies a dispatched opcode. It does not by itself touch
// Mtime: a read must never advance the modification counter, so only
// mutating handlers call Touch explicitly.
func (fi *FSInfo) CountOp(opcode string) {
	fi.Oper[opcode]++
}

// Touch bumps the super-wide modification timestamp; called only by
// handlers that actually mutate filesystem state.
func (fi *FSInfo) Touch() {
	fi.Mtime = fi.Clk.Now()
}

func (fi *FSInfo) IncStat(vt addr.VType, delta int64) {
	switch vt {
	case addr.DIR:
		fi.Stat.Dirs += delta
	case addr.REG:
		fi.Stat.Regs += delta
	case addr.SYMLNK:
		fi.Stat.Symlnks += delta
	case addr.REFLNK:
		fi.Stat.Reflnks += delta
	case addr.DIRSEG:
		fi.Stat.Dirsegs += delta
	case addr.VBK:
		fi.Stat.Vblks += delta
	}
}
