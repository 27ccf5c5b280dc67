// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterChainEmpty(t *testing.T) {
	var fc *FilterChain
	assert.True(t, fc.Empty())

	fc2, err := NewFilterChain()
	require.NoError(t, err)
	assert.True(t, fc2.Empty())
}

func TestFilterChainUnsupportedKind(t *testing.T) {
	_, err := NewFilterChain(KindBzip2)
	assert.ErrorIs(t, err, ErrFilterUnsupported)
}

func TestGzipFilterRoundTrip(t *testing.T) {
	fc, err := NewFilterChain(KindGzip)
	require.NoError(t, err)

	out, err := fc.Write([]byte("hello, filtered world"))
	require.NoError(t, err)
	var compressed []byte
	if out != nil {
		compressed = append(compressed, out.Bytes()...)
		out.Release()
	}

	tail, err := fc.Flush()
	require.NoError(t, err)
	if tail != nil {
		compressed = append(compressed, tail.Bytes()...)
		tail.Release()
	}

	r, err := gzip.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello, filtered world", string(plain))
}

func TestIdentityFilterPassesThroughBytes(t *testing.T) {
	f, err := NewFilter(KindIdentity)
	require.NoError(t, err)

	out, err := f.Write([]byte("as-is"))
	require.NoError(t, err)
	assert.Equal(t, "as-is", string(out.Bytes()))
	out.Release()

	tail, err := f.Flush()
	require.NoError(t, err)
	assert.Nil(t, tail)
}

func TestFilterSourceFlushesOnLast(t *testing.T) {
	fc, err := NewFilterChain(KindGzip)
	require.NoError(t, err)

	inner := NewBytesSource([]byte("streamed body content"))
	fs := NewFilterSource(inner, fc, true)

	sink := NewBufferSink()
	for {
		n, err := fs.SendTo(sink)
		require.NoError(t, err)
		if n == 0 {
			break
		}
	}

	r, err := gzip.NewReader(bytes.NewReader(sink.Buf.Bytes()))
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "streamed body content", string(plain))
}
