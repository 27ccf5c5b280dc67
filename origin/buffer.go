// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Pooled byte buffers backing everything read off or written to a
// connection's socket.

package origin

import (
	"unsafe"

	"github.com/valyala/bytebufferpool"
)

// Size tiers. Buffers are requested in one of three classes and grow
// past their class transparently; the class only picks which pool a
// released buffer returns to.
const (
	tier4K   = 4 << 10
	tier16K  = 16 << 10
	tier64K1 = 64<<10 - 1
)

var (
	pool4K   bytebufferpool.Pool
	pool16K  bytebufferpool.Pool
	pool64K1 bytebufferpool.Pool
)

// Buffer is a growable, owning byte vector. It may be backed by a
// pooled arena (Get4K/Get16K/Get64K1/GetNK) or by a caller-supplied
// slice (WrapBuffer) that is never pool-recycled.
//
// A Buffer is not safe for concurrent use; it is owned by exactly one
// connection's goroutine.
type Buffer struct {
	bb    *bytebufferpool.ByteBuffer // non-nil when pool-backed
	tier  *bytebufferpool.Pool       // pool bb was drawn from, for Release
	plain []byte                     // backing slice when bb == nil
}

// GetNK returns a pooled Buffer sized to hold at least n bytes without
// an immediate reallocation, drawn from the smallest tier that fits.
func GetNK(n int) *Buffer {
	switch {
	case n <= tier4K:
		return getTier(&pool4K, tier4K)
	case n <= tier16K:
		return getTier(&pool16K, tier16K)
	default:
		return getTier(&pool64K1, tier64K1)
	}
}

// Get4K, Get16K, Get64K1 return a pooled Buffer from a specific tier.
func Get4K() *Buffer   { return getTier(&pool4K, tier4K) }
func Get16K() *Buffer  { return getTier(&pool16K, tier16K) }
func Get64K1() *Buffer { return getTier(&pool64K1, tier64K1) }

func getTier(pool *bytebufferpool.Pool, hint int) *Buffer {
	bb := pool.Get()
	if cap(bb.B) < hint {
		bb.B = make([]byte, 0, hint)
	} else {
		bb.B = bb.B[:0]
	}
	return &Buffer{bb: bb, tier: pool}
}

// WrapBuffer adapts an existing slice (e.g. one read directly off a
// socket) into a Buffer without pool ownership. Release is a no-op.
func WrapBuffer(p []byte) *Buffer { return &Buffer{plain: p} }

// Release returns a pool-backed Buffer to its tier. Calling Release
// invalidates every ByteRef still pointing into this Buffer; callers
// must ensure no such ByteRef survives.
func (b *Buffer) Release() {
	if b.bb != nil {
		b.tier.Put(b.bb)
		b.bb = nil
		b.tier = nil
	}
}

// Bytes returns the buffer's current content. The returned slice is
// only valid until the next mutating call (Append, Reserve, Clear);
// ByteRef re-derives from this on every access instead of caching it.
func (b *Buffer) Bytes() []byte {
	if b.bb != nil {
		return b.bb.B
	}
	return b.plain
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int { return len(b.Bytes()) }

// Cap returns the buffer's current capacity.
func (b *Buffer) Cap() int { return cap(b.Bytes()) }

// Clear empties the buffer without releasing its backing storage.
func (b *Buffer) Clear() {
	if b.bb != nil {
		b.bb.Reset()
	} else {
		b.plain = b.plain[:0]
	}
}

// Reserve grows the buffer's capacity to at least n bytes, possibly
// reallocating the backing array. Any ByteRef into this Buffer remains
// valid afterward because ByteRef re-derives its window from the
// Buffer on each access (see byteref.go).
func (b *Buffer) Reserve(n int) {
	cur := b.Bytes()
	if cap(cur) >= n {
		return
	}
	grown := make([]byte, len(cur), n)
	copy(grown, cur)
	if b.bb != nil {
		b.bb.B = grown
	} else {
		b.plain = grown
	}
}

// Append writes p to the end of the buffer, growing if necessary, and
// returns a ByteRef locating the freshly-written region.
func (b *Buffer) Append(p []byte) ByteRef {
	cur := b.Bytes()
	off := len(cur)
	if b.bb != nil {
		b.bb.Write(p)
	} else {
		b.plain = append(b.plain, p...)
	}
	return ByteRef{buf: b, off: off, len: len(p)}
}

// Grow extends the buffer's length by n zeroed bytes and returns a
// ByteRef over the new region, for callers (e.g. a socket Read) that
// want to write into the buffer directly.
func (b *Buffer) Grow(n int) ByteRef {
	cur := b.Bytes()
	off := len(cur)
	grown := append(cur, make([]byte, n)...)
	if b.bb != nil {
		b.bb.B = grown
	} else {
		b.plain = grown
	}
	return ByteRef{buf: b, off: off, len: n}
}

// Slice returns a non-owning ByteRef over b[offset:offset+length].
func (b *Buffer) Slice(offset, length int) ByteRef {
	return ByteRef{buf: b, off: offset, len: length}
}

// Truncate shortens the buffer's length to n, discarding bytes beyond
// it without shrinking capacity. Used after a Grow whose destination
// (e.g. a socket Read) filled fewer bytes than requested.
func (b *Buffer) Truncate(n int) {
	if b.bb != nil {
		b.bb.B = b.bb.B[:n]
	} else {
		b.plain = b.plain[:n]
	}
}

// ConstBytes reinterprets s as a []byte without copying. The caller
// must never mutate the returned slice. Grounded on the teacher's
// hemi/common.go helper of the same intent.
func ConstBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// WeakString reinterprets p as a string without copying. The caller
// must not mutate p while the returned string is in use.
func WeakString(p []byte) string {
	return unsafe.String(unsafe.SliceData(p), len(p))
}
