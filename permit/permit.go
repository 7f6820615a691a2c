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

// Package permit is the permission gate: every dispatcher handler
// starts with a Let* precheck from this package before touching any
// state. Checks that fail here return without mutation, so the
// dispatcher never has to unwind a precondition failure.
//
// The backpressure rule is backed by golang.org/x/time/rate alongside
// the configured pending-queue depth limit.
package permit

import (
	"golang.org/x/time/rate"

	"github.com/synarete/funex/config"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/uctx"
)

const (
	AccessRead  uint32 = 0o4
	AccessWrite uint32 = 0o2
	AccessExec  uint32 = 0o1
)

// POSIX mode bits this package consults directly.
const (
	ModeSUID uint32 = 0o4000
	ModeSGID uint32 = 0o2000
	ModeVTX  uint32 = 0o1000

	ModePermMask uint32 = 0o0777
)

// Gate holds the tuning knobs and backpressure limiter every let_*
// check consults.
type Gate struct {
	cfg     config.Config
	limiter *rate.Limiter
}

// New builds a Gate whose backpressure limiter allows one token per
// mutating operation up to BurstLimit before throttling, refilling at
// the same rate (one per nanosecond-scaled tick is not meaningful
// here; the limiter exists to smooth bursts, not to cap steady-state
// throughput, so it refills at a generous constant rate and leaves the
// hard ceiling to the PressureLimit depth check in LetModify).
func New(cfg config.Config) *Gate {
	return &Gate{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Pending.BurstLimit), cfg.Pending.BurstLimit),
	}
}

// LetReadOnly returns EROFS for any mutating operation when the mount
// is read-only.
func (g *Gate) LetReadOnly() errno.Errno {
	if g.cfg.Mount.ReadOnly {
		return errno.EROFS
	}
	return 0
}

// LetModify combines the read-only check with the backpressure rule:
// PEND once the pending queue's staged depth exceeds the configured
// pressure threshold.
func (g *Gate) LetModify(stagedDepth int) errno.Errno {
	if e := g.LetReadOnly(); !e.OK() {
		return e
	}
	if stagedDepth > g.cfg.Pending.PressureLimit {
		return errno.PEND
	}
	if !g.limiter.Allow() {
		return errno.PEND
	}
	return 0
}

// Access implements the POSIX access(2) check: mask is an OR of
// AccessRead/AccessWrite/AccessExec. Capabilities (CAP_FOWNER and the
// rest) are not consulted here; only the uctx.Ctx.Root flag bypasses
// the mode bits, and for exec only when some execute bit is set.
func Access(mode uint32, fileUid, fileGid uint32, c uctx.Ctx, mask uint32) bool {
	if c.Root {
		// Root may always read/write; execute still requires at least
		// one execute bit set somewhere, matching kernel behavior.
		if mask&AccessExec != 0 {
			return mode&(0o111) != 0
		}
		return true
	}

	var bits uint32
	switch {
	case c.Uid == fileUid:
		bits = (mode >> 6) & 0o7
	case c.InGroup(fileGid):
		bits = (mode >> 3) & 0o7
	default:
		bits = mode & 0o7
	}

	return mask&bits == mask
}

// LetSticky implements the sticky-directory rule for unlink/rmdir/
// rename: when S_ISVTX is set on the containing directory, the caller
// must own the directory, own the child, or hold FOWNER.
func LetSticky(dirMode uint32, dirUid uint32, childUid uint32, c uctx.Ctx) errno.Errno {
	if dirMode&ModeVTX == 0 {
		return 0
	}
	if c.Root || c.Uid == dirUid || c.Uid == childUid || c.HasCap(uctx.CAP_FOWNER) {
		return 0
	}
	return errno.EACCES
}

// ClearSuidSgid implements the POSIX suid/sgid-clearing table applied
// on chown/chmod/truncate/write: SUID drops unless the caller holds
// CHOWN, SGID drops unless the caller holds FSETID or is a member of
// the file's group.
func ClearSuidSgid(mode uint32, c uctx.Ctx, isGroupMember bool) uint32 {
	if mode&ModeSUID != 0 && !c.HasCap(uctx.CAP_CHOWN) {
		mode &^= ModeSUID
	}
	if mode&ModeSGID != 0 && !(c.HasCap(uctx.CAP_FSETID) || isGroupMember) {
		mode &^= ModeSGID
	}
	return mode
}

// LetChildCount enforces the per-directory child limit, returning
// EMLINK the way mknod/mkdir/link/symlink surface "directory is full"
// to the caller.
func (g *Gate) LetChildCount(current int) errno.Errno {
	if current >= g.cfg.FileSystem.DirChildMax {
		return errno.EMLINK
	}
	return 0
}

// LetNlink enforces LINK_MAX.
func (g *Gate) LetNlink(current uint32) errno.Errno {
	if int(current) >= g.cfg.FileSystem.LinkMax {
		return errno.EMLINK
	}
	return 0
}

// LetNameLen enforces NAME_MAX.
func (g *Gate) LetNameLen(n int) errno.Errno {
	if n <= 0 {
		return errno.EINVAL
	}
	if n > g.cfg.FileSystem.NameMax {
		return errno.EINVAL
	}
	return 0
}

// LetOffset enforces offsets stay within [0, RegSizeMax].
func (g *Gate) LetOffset(off int64) errno.Errno {
	if off < 0 || off > g.cfg.FileSystem.RegSizeMax {
		return errno.EFBIG
	}
	return 0
}

// LetPseudoWrite rejects writes to pseudo inodes unless the target
// advertises meta-write support; hardlinks into the pseudo tree are
// always rejected (see LetPseudoLink).
func LetPseudoWrite(pseudo bool, metaWritable bool) errno.Errno {
	if pseudo && !metaWritable {
		return errno.ENOTSUP
	}
	return 0
}

func LetPseudoLink(pseudo bool) errno.Errno {
	if pseudo {
		return errno.ENOTSUP
	}
	return 0
}
