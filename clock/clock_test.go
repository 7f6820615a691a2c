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

package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/synarete/funex/clock"
)

func TestSimulatedClockOnlyMovesWhenTold(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sc := clock.NewSimulatedClock(start)

	assert.Equal(t, start, sc.Now())
	assert.Equal(t, start, sc.Now(), "simulated time must not advance on its own")

	sc.AdvanceTime(time.Hour)
	assert.Equal(t, start.Add(time.Hour), sc.Now())

	sc.SetTime(start)
	assert.Equal(t, start, sc.Now())
}
