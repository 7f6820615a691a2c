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

// Package pending holds the vproc's two-stage queue: a staged sequence
// of vnodes dirtied by the current transaction, awaiting commit, and a
// pended sequence of tasks suspended by PEND/DELAY awaiting I/O. Both
// are built on common.FIFO's generic linked-list queue.
package pending

import (
	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/common"
)

// Task is the minimal shape the pended queue needs from a suspended
// operation: an identity to dedupe against.
type Task interface {
	TaskID() uint64
}

// Queue holds one vproc's staged and pended sequences. Not
// thread-safe; only ever touched from the single vproc goroutine.
type Queue[T Task] struct {
	staged     *common.FIFO[addr.Vaddr]
	stagedSeen map[addr.Vaddr]bool

	pended     *common.FIFO[T]
	pendedSeen map[uint64]bool
}

func New[T Task]() *Queue[T] {
	return &Queue[T]{
		staged:     common.NewFIFO[addr.Vaddr](),
		stagedSeen: make(map[addr.Vaddr]bool),
		pended:     common.NewFIFO[T](),
		pendedSeen: make(map[uint64]bool),
	}
}

// Stage appends va to the staged sequence unless it is already
// present; staging the same vaddr twice is a no-op.
func (q *Queue[T]) Stage(va addr.Vaddr) {
	if q.stagedSeen[va] {
		return
	}
	q.stagedSeen[va] = true
	q.staged.Push(va)
}

// Unstage drops va from the staged bookkeeping, used when a staged
// vnode is retired before it was ever committed. The vaddr may still
// sit in the FIFO; SFront callers must re-check Staged membership via
// the returned vaddr's cache state.
func (q *Queue[T]) Unstage(va addr.Vaddr) {
	delete(q.stagedSeen, va)
}

// Staged reports whether va is currently on the staged sequence.
func (q *Queue[T]) Staged(va addr.Vaddr) bool { return q.stagedSeen[va] }

func (q *Queue[T]) HasStaged() bool { return !q.staged.IsEmpty() }

// SFront pops the oldest staged entry, consumed by vproc's post-op
// commit drain.
func (q *Queue[T]) SFront() addr.Vaddr {
	va := q.staged.Pop()
	delete(q.stagedSeen, va)
	return va
}

func (q *Queue[T]) StagedLen() int { return q.staged.Len() }

// Pend appends t to the pended sequence, unless a task with the same
// TaskID is already pended.
func (q *Queue[T]) Pend(t T) {
	id := t.TaskID()
	if q.pendedSeen[id] {
		return
	}
	q.pendedSeen[id] = true
	q.pended.Push(t)
}

// Unpend removes bookkeeping for a task id, used once a pending-drain
// retry resolves the task one way or another.
func (q *Queue[T]) Unpend(id uint64) { delete(q.pendedSeen, id) }

func (q *Queue[T]) HasPended() bool { return !q.pended.IsEmpty() }

// PFront pops the oldest pended task.
func (q *Queue[T]) PFront() T {
	t := q.pended.Pop()
	delete(q.pendedSeen, t.TaskID())
	return t
}

func (q *Queue[T]) PendedLen() int { return q.pended.Len() }
