// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import "bytes"

// ByteRef is a non-owning (buffer, offset, length) slice. It stays
// valid across its owner's reallocations because it holds a
// pointer to the Buffer itself, not to the Buffer's backing array —
// Bytes() re-derives the window on every call. It is invalidated only
// when the Buffer is Release()d or Clear()ed to a shorter length that
// no longer covers [off, off+len).
type ByteRef struct {
	buf *Buffer
	off int
	len int
}

// EmptyRef is the zero-length, zero-value ByteRef.
var EmptyRef ByteRef

// NewByteRef wraps p as a ByteRef backed by an unowned Buffer. Useful
// for tests and for adapting a literal []byte into parser callbacks.
func NewByteRef(p []byte) ByteRef {
	return ByteRef{buf: WrapBuffer(p), off: 0, len: len(p)}
}

// Size returns the number of bytes the ref covers.
func (r ByteRef) Size() int { return r.len }

// IsEmpty reports whether the ref covers zero bytes.
func (r ByteRef) IsEmpty() bool { return r.len == 0 }

// IsZero reports whether the ref has no backing buffer at all.
func (r ByteRef) IsZero() bool { return r.buf == nil }

// Bytes returns the referenced window into the owning Buffer's current
// backing array. The result is only valid until the Buffer's next
// mutation.
func (r ByteRef) Bytes() []byte {
	if r.buf == nil {
		return nil
	}
	data := r.buf.Bytes()
	if r.off < 0 || r.off+r.len > len(data) {
		return nil // buffer was cleared/shrunk past this ref: stale
	}
	return data[r.off : r.off+r.len]
}

// String makes an owned copy of the referenced bytes.
func (r ByteRef) String() string { return string(r.Bytes()) }

// Sub returns a ByteRef over [from, from+length) of r, relative to r's
// own window.
func (r ByteRef) Sub(from, length int) ByteRef {
	if from < 0 || length < 0 || from+length > r.len {
		return EmptyRef
	}
	return ByteRef{buf: r.buf, off: r.off + from, len: length}
}

// Equal reports byte-for-byte equality against p.
func (r ByteRef) Equal(p []byte) bool { return bytes.Equal(r.Bytes(), p) }

// EqualString reports byte-for-byte equality against s.
func (r ByteRef) EqualString(s string) bool { return WeakString(r.Bytes()) == s }

// EqualFold reports case-insensitive equality against p, per ASCII
// case-folding rules (HTTP header names and values are ASCII).
func (r ByteRef) EqualFold(p []byte) bool { return bytes.EqualFold(r.Bytes(), p) }

// EqualFoldString reports case-insensitive equality against s.
func (r ByteRef) EqualFoldString(s string) bool {
	return bytes.EqualFold(r.Bytes(), ConstBytes(s))
}

// IndexByte returns the index of the first occurrence of c within r,
// or -1.
func (r ByteRef) IndexByte(c byte) int { return bytes.IndexByte(r.Bytes(), c) }

// ParseInt parses the referenced bytes as a base-10 signed integer.
func (r ByteRef) ParseInt() (int64, bool) {
	p := r.Bytes()
	if len(p) == 0 {
		return 0, false
	}
	neg := false
	if p[0] == '-' {
		neg, p = true, p[1:]
		if len(p) == 0 {
			return 0, false
		}
	}
	var n int64
	for _, c := range p {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}

// ParseHex parses the referenced bytes as a base-16 unsigned integer,
// as used for chunk-size fields. Grounded on hemi/common.go's
// hexToI64.
func (r ByteRef) ParseHex() (int64, bool) {
	hex := r.Bytes()
	if n := len(hex); n == 0 || n > 16 {
		return 0, false
	}
	var i64 int64
	for _, b := range hex {
		switch {
		case b >= '0' && b <= '9':
			b -= '0'
		case b >= 'a' && b <= 'f':
			b = b - 'a' + 10
		case b >= 'A' && b <= 'F':
			b = b - 'A' + 10
		default:
			return 0, false
		}
		i64 = i64<<4 + int64(b)
		if i64 < 0 {
			return 0, false
		}
	}
	return i64, true
}
