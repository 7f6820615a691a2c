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

// Package errno defines the status codes returned by every vproc
// operation: negative POSIX errno values surfaced to the client, the
// three internal flavors (ECACHEMISS, PEND, DELAY) that never leak
// past the vproc loop, and the EEOS end-of-stream marker that readdir
// hands back to the client. Kernel-facing error codes are
// signed syscall numbers, so the POSIX values negate the x/sys/unix
// constants directly.
package errno

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Errno is a negative POSIX error code, or one of the internal status
// values below. The zero value means success.
type Errno int32

func of(u unix.Errno) Errno { return -Errno(u) }

// POSIX errors surfaced to the client 1:1.
var (
	EPERM     = of(unix.EPERM)
	EACCES    = of(unix.EACCES)
	EISDIR    = of(unix.EISDIR)
	ENOTDIR   = of(unix.ENOTDIR)
	ENOENT    = of(unix.ENOENT)
	EEXIST    = of(unix.EEXIST)
	ENOTEMPTY = of(unix.ENOTEMPTY)
	EMLINK    = of(unix.EMLINK)
	EBADF     = of(unix.EBADF)
	EROFS     = of(unix.EROFS)
	ENOSPC    = of(unix.ENOSPC)
	EFBIG     = of(unix.EFBIG)
	EINVAL    = of(unix.EINVAL)
	ENFILE    = of(unix.ENFILE)
	ENOTSUP   = of(unix.ENOTSUP)
	ESPIPE    = of(unix.ESPIPE)
	EIO       = of(unix.EIO)
	EFAULT    = of(unix.EFAULT)
	EBUSY     = of(unix.EBUSY)
)

// Internal-only statuses. These must never be returned to a FUSE caller.
const (
	// ECACHEMISS signals a vnode cache miss that the caller handles locally
	// by staging the object from pstor; it never escapes the vproc.
	ECACHEMISS Errno = -1000 - iota

	// PEND means the task must be suspended and retried once a previously
	// requested block arrives via a BK_*_RES job.
	PEND

	// DELAY means the operation completed in memory but its commit to
	// pstor is still in flight; the reply is held until the commit settles.
	DELAY

	// EEOS is the end-of-stream sentinel for readdir enumeration. Unlike
	// PEND/DELAY it IS surfaced to the client, as a normal termination of
	// a readdir loop rather than a POSIX error.
	EEOS
)

// OK reports whether e represents success (no error, no pending status).
func (e Errno) OK() bool { return e == 0 }

// Internal reports whether e is one of PEND, DELAY, ECACHEMISS: statuses
// that must be handled within the vproc and never handed to a client.
func (e Errno) Internal() bool {
	switch e {
	case PEND, DELAY, ECACHEMISS:
		return true
	default:
		return false
	}
}

// Error implements the error interface so Errno composes with
// fmt.Errorf ("%w") and errors.Is.
func (e Errno) Error() string {
	if name, ok := names[e]; ok {
		return name
	}
	return fmt.Sprintf("errno(%d)", int32(e))
}

var names = map[Errno]string{
	0:          "success",
	EPERM:      "operation not permitted",
	EACCES:     "permission denied",
	EISDIR:     "is a directory",
	ENOTDIR:    "not a directory",
	ENOENT:     "no such file or directory",
	EEXIST:     "file exists",
	ENOTEMPTY:  "directory not empty",
	EMLINK:     "too many links",
	EBADF:      "bad file descriptor",
	EROFS:      "read-only file system",
	ENOSPC:     "no space left on device",
	EFBIG:      "file too large",
	EINVAL:     "invalid argument",
	ENFILE:     "too many open files in system",
	ENOTSUP:    "operation not supported",
	ESPIPE:     "illegal seek",
	EIO:        "input/output error",
	EFAULT:     "bad address",
	EBUSY:      "device or resource busy",
	ECACHEMISS: "vnode cache miss",
	PEND:       "pending block I/O",
	DELAY:      "commit in flight",
	EEOS:       "end of stream",
}
