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

// Package clock abstracts the time source inode timestamps and the
// super block's modification counter are stamped from, so tests can
// drive deterministic times instead of depending on the wall clock.
package clock

import (
	"sync"
	"time"
)

// Clock is the single call the vproc needs from a time source. The
// cooperative loop never sleeps or schedules by deadline, so there is
// no timer surface here, only Now.
type Clock interface {
	Now() time.Time
}

// RealClock reads the wall clock; every real mount uses it.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// SimulatedClock is a settable time source for tests: Now returns
// whatever the test last set, and time never moves on its own.
type SimulatedClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewSimulatedClock(start time.Time) *SimulatedClock {
	return &SimulatedClock{t: start}
}

func (sc *SimulatedClock) Now() time.Time {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.t
}

// SetTime jumps the clock to t, backwards included.
func (sc *SimulatedClock) SetTime(t time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.t = t
}

// AdvanceTime moves the clock forward by d.
func (sc *SimulatedClock) AdvanceTime(d time.Duration) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.t = sc.t.Add(d)
}

var (
	_ Clock = RealClock{}
	_ Clock = (*SimulatedClock)(nil)
)
