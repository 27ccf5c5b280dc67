// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Sources: producers of bytes with a non-blocking SendTo contract.

package origin

import (
	"io"
	"os"
)

// Source produces bytes into a Sink. SendTo writes as much as possible
// without blocking and returns the number of bytes transferred; a
// return of (0, nil) means EOF (source exhausted), and
// (n, ErrWouldBlock) means the sink could not accept more right now.
type Source interface {
	SendTo(sink Sink) (int64, error)
}

// BufferSource is a Source that drains a Buffer (or a plain []byte)
// from an internal read cursor. It may own or merely borrow the
// Buffer; Release controls which.
type BufferSource struct {
	buf    *Buffer
	cursor int
	owns   bool
}

// NewBufferSource wraps an owned Buffer: it is Released when fully
// drained or explicitly closed.
func NewBufferSource(buf *Buffer) *BufferSource { return &BufferSource{buf: buf, owns: true} }

// NewBorrowedBufferSource wraps a Buffer the source does not own; the
// caller remains responsible for releasing it.
func NewBorrowedBufferSource(buf *Buffer) *BufferSource { return &BufferSource{buf: buf} }

// NewBytesSource wraps a plain byte slice that needs no pool release.
func NewBytesSource(p []byte) *BufferSource { return &BufferSource{buf: WrapBuffer(p)} }

func (s *BufferSource) SendTo(sink Sink) (int64, error) {
	if s.buf == nil {
		return 0, nil // owned buffer already drained and released
	}
	data := s.buf.Bytes()
	if s.cursor >= len(data) {
		s.close()
		return 0, nil
	}
	n, err := sink.Write(data[s.cursor:])
	s.cursor += n
	if err != nil {
		return int64(n), err
	}
	if s.cursor >= len(data) {
		s.close()
	}
	return int64(n), nil
}

func (s *BufferSource) close() {
	if s.owns && s.buf != nil {
		s.buf.Release()
		s.buf = nil
	}
}

// FileSource streams a byte-range of an open file. When sink also
// implements io.ReaderFrom (SocketSink over a *net.TCPConn/*net.UnixConn),
// this reaches the kernel sendfile fast path.
type FileSource struct {
	file      *os.File
	offset    int64
	remaining int64
	closeFile bool
}

// NewFileSource streams count bytes of file starting at offset. If
// closeFile is true the file is closed once the source is exhausted.
func NewFileSource(file *os.File, offset, count int64, closeFile bool) *FileSource {
	return &FileSource{file: file, offset: offset, remaining: count, closeFile: closeFile}
}

func (s *FileSource) SendTo(sink Sink) (int64, error) {
	if s.remaining <= 0 {
		s.close()
		return 0, nil
	}
	if rf, ok := sink.(io.ReaderFrom); ok {
		section := io.NewSectionReader(s.file, s.offset, s.remaining)
		n, err := rf.ReadFrom(section)
		s.offset += n
		s.remaining -= n
		if s.remaining <= 0 {
			s.close()
		}
		if err != nil && err != io.EOF {
			return n, err
		}
		return n, nil
	}
	// Fallback: bounded pread into a pooled buffer, then Write.
	buf := GetNK(tier64K1)
	defer buf.Release()
	want := s.remaining
	if bufCap := int64(buf.Cap()); want > bufCap {
		want = bufCap
	}
	n, rerr := s.file.ReadAt(buf.Bytes()[:want], s.offset)
	if n > 0 {
		wn, werr := sink.Write(buf.Bytes()[:n])
		s.offset += int64(wn)
		s.remaining -= int64(wn)
		if s.remaining <= 0 {
			s.close()
		}
		if werr != nil {
			return int64(wn), werr
		}
	}
	if rerr != nil && rerr != io.EOF {
		return int64(n), rerr
	}
	return int64(n), nil
}

func (s *FileSource) close() {
	if s.closeFile && s.file != nil {
		s.file.Close()
		s.file = nil
	}
}

// CallbackSource invokes fn exactly once on its first SendTo, treating
// fn's returned bytes as the entirety of its output, then reports EOF
// forever after.
type CallbackSource struct {
	fn   func() []byte
	fired bool
	inner *BufferSource
}

// NewCallbackSource wraps fn as a one-shot Source.
func NewCallbackSource(fn func() []byte) *CallbackSource { return &CallbackSource{fn: fn} }

func (s *CallbackSource) SendTo(sink Sink) (int64, error) {
	if s.inner == nil {
		if s.fired {
			return 0, nil
		}
		s.fired = true
		s.inner = NewBytesSource(s.fn())
	}
	return s.inner.SendTo(sink)
}

// CompositeSource is an ordered queue of sources, draining head to
// tail and popping exhausted children.
type CompositeSource struct {
	items []Source
}

// PushBack appends a source to the tail of the queue.
func (c *CompositeSource) PushBack(s Source) { c.items = append(c.items, s) }

// Clear drops every queued source without draining it.
func (c *CompositeSource) Clear() { c.items = c.items[:0] }

// Size returns the number of sources still queued.
func (c *CompositeSource) Size() int { return len(c.items) }

// Empty reports whether the queue has been fully drained.
func (c *CompositeSource) Empty() bool { return len(c.items) == 0 }

func (c *CompositeSource) SendTo(sink Sink) (int64, error) {
	var total int64
	for len(c.items) > 0 {
		n, err := c.items[0].SendTo(sink)
		total += n
		if n == 0 && err == nil {
			// head exhausted (EOF): pop and continue with the next source
			c.items = c.items[1:]
			continue
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}
