// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Sinks: consumers of bytes with a non-blocking Write contract.

package origin

import (
	"errors"
	"io"
	"net"
)

// ErrWouldBlock is returned by SendTo/Write when the sink cannot
// accept more bytes right now without blocking; the caller re-invokes
// on the next writable event.
var ErrWouldBlock = errors.New("origin: would block")

// Sink is a consumer of bytes. A Source's SendTo takes a Sink so that
// fast paths (sendfile, writev) can be reached by a type assertion on
// the concrete Sink instead of virtual dispatch in the inner loop.
type Sink interface {
	// Write writes as many of p's bytes as possible without blocking.
	// A short write is not an error; the caller retains p[n:] for the
	// next attempt. ErrWouldBlock means n==0 and the sink is not
	// presently writable.
	Write(p []byte) (n int, err error)
}

// SocketSink adapts a non-blocking net.Conn into a Sink. When the
// underlying conn implements
// io.ReaderFrom (true for *net.TCPConn, *net.UnixConn), FileSource
// reaches the kernel sendfile fast path through it directly instead of
// copying through a userspace buffer.
type SocketSink struct {
	Conn net.Conn
}

func (s SocketSink) Write(p []byte) (int, error) {
	n, err := s.Conn.Write(p)
	if err != nil && isWouldBlock(err) {
		return n, ErrWouldBlock
	}
	return n, err
}

// ReadFrom implements io.ReaderFrom by delegating to the underlying
// connection when it supports it, so FileSource.SendTo can drive
// kernel sendfile without an intermediate copy.
func (s SocketSink) ReadFrom(r io.Reader) (int64, error) {
	if rf, ok := s.Conn.(io.ReaderFrom); ok {
		return rf.ReadFrom(r)
	}
	return io.Copy(struct{ io.Writer }{s}, r)
}

func isWouldBlock(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// BufferSink appends everything written to it into an owned Buffer.
// Used by tests and by filters that need to materialize a filter
// stage's output before it becomes the next stage's input.
type BufferSink struct {
	Buf *Buffer
}

// NewBufferSink allocates a fresh pooled Buffer-backed sink.
func NewBufferSink() *BufferSink { return &BufferSink{Buf: GetNK(tier4K)} }

func (s *BufferSink) Write(p []byte) (int, error) {
	s.Buf.Append(p)
	return len(p), nil
}
