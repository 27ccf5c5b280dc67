// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferAppendGrows(t *testing.T) {
	buf := Get4K()
	defer buf.Release()

	ref := buf.Append([]byte("hello"))
	assert.Equal(t, "hello", ref.String())
	assert.Equal(t, 5, buf.Len())

	ref2 := buf.Append([]byte(" world"))
	assert.Equal(t, " world", ref2.String())
	// ref must still be valid after a further Append.
	assert.Equal(t, "hello", ref.String())
}

func TestByteRefSurvivesReserve(t *testing.T) {
	buf := Get4K()
	defer buf.Release()

	ref := buf.Append([]byte("payload"))
	buf.Reserve(1 << 20) // force a reallocation of the backing array
	assert.Equal(t, "payload", ref.String())
}

func TestByteRefStaleAfterClear(t *testing.T) {
	buf := Get4K()
	defer buf.Release()

	ref := buf.Append([]byte("payload"))
	buf.Clear()
	assert.Nil(t, ref.Bytes())
}

func TestBufferTruncate(t *testing.T) {
	buf := Get16K()
	defer buf.Release()

	ref := buf.Grow(100)
	assert.Equal(t, 100, buf.Len())
	buf.Truncate(40)
	assert.Equal(t, 40, buf.Len())
	assert.Equal(t, 40, ref.Sub(0, 40).Size())
}

func TestByteRefEqualFold(t *testing.T) {
	ref := NewByteRef([]byte("Content-Type"))
	assert.True(t, ref.EqualFoldString("content-type"))
	assert.False(t, ref.EqualFoldString("content-length"))
}

func TestByteRefParseIntAndHex(t *testing.T) {
	n, ok := NewByteRef([]byte("12345")).ParseInt()
	assert.True(t, ok)
	assert.EqualValues(t, 12345, n)

	_, ok = NewByteRef([]byte("12x45")).ParseInt()
	assert.False(t, ok)

	h, ok := NewByteRef([]byte("1a2b")).ParseHex()
	assert.True(t, ok)
	assert.EqualValues(t, 0x1a2b, h)
}
