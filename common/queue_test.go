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

package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFIFOIsEmpty(t *testing.T) {
	q := NewFIFO[int]()
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())
}

func TestFIFOPushPopOrder(t *testing.T) {
	q := NewFIFO[int]()
	q.Push(4)
	q.Push(5)
	q.Push(6)
	require.Equal(t, 3, q.Len())

	assert.Equal(t, 4, q.Pop())
	assert.Equal(t, 5, q.Pop())
	assert.Equal(t, 6, q.Pop())
	assert.True(t, q.IsEmpty())
}

func TestFIFOPeekDoesNotRemove(t *testing.T) {
	q := NewFIFO[string]()
	q.Push("front")
	q.Push("back")

	assert.Equal(t, "front", q.Peek())
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, "front", q.Pop())
}

func TestFIFODrainThenRefill(t *testing.T) {
	q := NewFIFO[int]()
	q.Push(1)
	require.Equal(t, 1, q.Pop())
	require.True(t, q.IsEmpty())

	// Refilling after a full drain must relink head and tail.
	q.Push(2)
	q.Push(3)
	assert.Equal(t, 2, q.Pop())
	assert.Equal(t, 3, q.Pop())
}

func TestFIFOEmptyAccessPanics(t *testing.T) {
	assert.Panics(t, func() { NewFIFO[int]().Pop() })
	assert.Panics(t, func() { NewFIFO[int]().Peek() })
}
