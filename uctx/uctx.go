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

// Package uctx carries the per-task caller identity attached to every
// job entering the vproc: uid/gid/pid lifted from the kernel request
// header, widened with capabilities and supplementary groups since the
// vproc itself evaluates every POSIX permission and capability rule in
// the permit package.
package uctx

// Cap is a single capability bit consulted by the permit package.
type Cap uint8

const (
	CAP_CHOWN Cap = iota
	CAP_FOWNER
	CAP_FSETID
	CAP_ADMIN
)

// Ctx is the identity and privilege set of the caller issuing a task.
type Ctx struct {
	Uid    uint32
	Gid    uint32
	Pid    uint32
	Umask  uint32
	Groups []uint32

	// Caps holds the capability bits granted to this caller, independent
	// of Root. Root implies every Cap regardless of this set's contents.
	Caps map[Cap]bool

	// Root marks a caller that bypasses all permission and capability
	// checks (uid 0 on the mounting kernel).
	Root bool
}

// HasCap reports whether the context carries capability c. Root has
// every capability.
func (c Ctx) HasCap(cap Cap) bool {
	if c.Root {
		return true
	}
	return c.Caps[cap]
}

// InGroup reports whether gid is the primary or a supplementary group of
// the caller.
func (c Ctx) InGroup(gid uint32) bool {
	if c.Gid == gid {
		return true
	}
	for _, g := range c.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// Super returns a privileged context with Root set, so it passes every
// permission and capability check; it is not tied to any external
// caller.
func Super() Ctx {
	return Ctx{Root: true}
}
