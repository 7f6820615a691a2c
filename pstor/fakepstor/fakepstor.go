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

// Package fakepstor is an in-memory stand-in for the persistent
// storage layer, used only by tests. It lets a CommitVnode call
// either settle immediately or asynchronously through a simulated
// background I/O worker, exercising the vproc's DELAY and
// completion-drain path. The completion worker runs on
// golang.org/x/sync/errgroup in place of a real I/O worker pool.
package fakepstor

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/errno"
	"github.com/synarete/funex/pstor"
)

// Handle is fakepstor's concrete pstor.VnodeHandle.
type Handle struct{ va addr.Vaddr }

func (h *Handle) Vaddr() addr.Vaddr { return h.va }

// Store is the fake persistent storage collaborator.
type Store struct {
	mu     sync.Mutex
	placed map[addr.Vaddr]bool
	group  *errgroup.Group
	delay  time.Duration

	// Completions receives a Vaddr once a delayed commit settles; passed
	// to vproc.Vproc.Tick, it clears that vaddr from the delayed set. No
	// block-result job is built from it.
	Completions chan addr.Vaddr
}

// New builds a fake store. When delay is zero every CommitVnode
// settles synchronously (errno.OK immediately); otherwise CommitVnode
// returns errno.DELAY and the completion is posted to Completions
// after delay elapses, simulating an I/O worker's turnaround time.
func New(delay time.Duration) *Store {
	return &Store{
		placed:      make(map[addr.Vaddr]bool),
		group:       &errgroup.Group{},
		delay:       delay,
		Completions: make(chan addr.Vaddr, 64),
	}
}

func (s *Store) SpawnVnode(va addr.Vaddr) (pstor.VnodeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed[va] = true
	return &Handle{va: va}, nil
}

func (s *Store) StageVnode(va addr.Vaddr) (pstor.VnodeHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.placed[va] {
		return nil, errno.ENOENT
	}
	return &Handle{va: va}, nil
}

func (s *Store) CommitVnode(h pstor.VnodeHandle) error {
	s.mu.Lock()
	s.placed[h.Vaddr()] = true
	s.mu.Unlock()

	if s.delay <= 0 {
		return nil
	}

	va := h.Vaddr()
	s.group.Go(func() error {
		time.Sleep(s.delay)
		s.Completions <- va
		return nil
	})
	return errno.DELAY
}

func (s *Store) UnmapVnode(h pstor.VnodeHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.placed, h.Vaddr())
	return nil
}

func (s *Store) RetireVnode(h pstor.VnodeHandle) error {
	return s.UnmapVnode(h)
}

// Sync waits for every outstanding simulated commit to finish posting
// to Completions.
func (s *Store) Sync() error {
	return s.group.Wait()
}

func (s *Store) RequireVaddr(va addr.Vaddr) error {
	return nil
}

var _ pstor.Store = (*Store)(nil)
