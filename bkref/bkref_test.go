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

package bkref_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synarete/funex/addr"
	"github.com/synarete/funex/bkref"
)

func TestNewStartsAtOneRef(t *testing.T) {
	b := bkref.New(addr.Of(addr.REG, addr.InoCreate(1, addr.REG)), []byte("hello"))
	assert.EqualValues(t, 1, b.Refcnt())
	assert.Equal(t, "hello", string(b.Bytes()))
	assert.Equal(t, 5, b.Len())
}

func TestRefUnrefBalance(t *testing.T) {
	b := bkref.New(addr.Vaddr{}, nil)
	b.Ref()
	b.Ref()
	assert.EqualValues(t, 3, b.Refcnt())

	assert.False(t, b.Unref())
	assert.False(t, b.Unref())
	assert.True(t, b.Unref(), "last Unref must report the block reached zero")
}

func TestUnrefBelowZeroPanics(t *testing.T) {
	b := bkref.New(addr.Vaddr{}, nil)
	b.Unref()
	assert.Panics(t, func() { b.Unref() })
}

func TestSlavedFlag(t *testing.T) {
	b := bkref.New(addr.Vaddr{}, nil)
	require.False(t, b.Slaved())
	b.SetSlaved(true)
	assert.True(t, b.Slaved())
}

func TestResizeShrinkAndGrow(t *testing.T) {
	b := bkref.New(addr.Vaddr{}, []byte{1, 2, 3, 4})
	b.Resize(2)
	assert.Equal(t, []byte{1, 2}, b.Bytes())

	b.Resize(4)
	assert.Equal(t, []byte{1, 2, 0, 0}, b.Bytes())
}
