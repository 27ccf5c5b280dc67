// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Filter chain and content-encoding stages.
//
// Grounded on the reviser lifecycle shape in
// hemi/classic/revisers/gzip/gzip.go (a per-response, stateful,
// before/after-hook filter stage) — the teacher's own gzip reviser is
// a stub (every hook is a TODO); this file supplies the compression
// the teacher never implemented.

package origin

import (
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// ErrFilterUnsupported is returned by NewFilter for a filter Kind this
// build cannot encode. See DESIGN.md for why bzip2 falls in this
// bucket: it has no writer anywhere in the standard library or in the
// dependencies this module carries.
var ErrFilterUnsupported = errors.New("origin: filter kind has no encoder available")

// Kind names a filter algorithm.
type Kind int

const (
	KindIdentity Kind = iota
	KindDeflate
	KindGzip
	KindBzip2
)

// Filter transforms outgoing bytes. Write may buffer internally
// (stateful compressors do); Flush drains any tail bytes a stateful
// filter is still holding, for use when the source signals Last=true.
type Filter interface {
	Write(p []byte) (*Buffer, error)
	Flush() (*Buffer, error)
}

// NewFilter constructs a Filter of the given kind, or
// ErrFilterUnsupported if this build has no encoder for it.
func NewFilter(kind Kind) (Filter, error) {
	switch kind {
	case KindIdentity:
		return identityFilter{}, nil
	case KindDeflate:
		return newFlateFilter(), nil
	case KindGzip:
		return newGzipFilter(), nil
	case KindBzip2:
		return nil, ErrFilterUnsupported
	default:
		return nil, ErrFilterUnsupported
	}
}

type identityFilter struct{}

func (identityFilter) Write(p []byte) (*Buffer, error) {
	if len(p) == 0 {
		return nil, nil
	}
	out := GetNK(len(p))
	out.Append(p)
	return out, nil
}
func (identityFilter) Flush() (*Buffer, error) { return nil, nil }

// FilterChain is an ordered list of Filters applied, in order, to
// outgoing bytes. An empty chain is observable via Empty.
type FilterChain struct {
	stages []Filter
}

// NewFilterChain builds a chain from kinds, in application order.
func NewFilterChain(kinds ...Kind) (*FilterChain, error) {
	fc := &FilterChain{}
	for _, k := range kinds {
		f, err := NewFilter(k)
		if err != nil {
			return nil, err
		}
		fc.stages = append(fc.stages, f)
	}
	return fc, nil
}

// Empty reports whether the chain has no stages.
func (fc *FilterChain) Empty() bool { return fc == nil || len(fc.stages) == 0 }

// Write pushes p through every stage in order, releasing each stage's
// intermediate Buffer as soon as it has fed the next one. The final
// stage's output is returned to the caller, who becomes responsible
// for releasing it.
func (fc *FilterChain) Write(p []byte) (*Buffer, error) {
	cur := p
	var owned *Buffer
	for i, stage := range fc.stages {
		out, err := stage.Write(cur)
		if owned != nil {
			owned.Release()
		}
		if err != nil {
			if out != nil {
				out.Release()
			}
			return nil, err
		}
		if out == nil {
			owned = nil
			cur = nil
		} else {
			owned = out
			cur = out.Bytes()
		}
		if i == len(fc.stages)-1 {
			return owned, nil
		}
	}
	return owned, nil
}

// Flush drains tail bytes from every stateful stage, in order, joining
// each stage's flushed output into the next stage's input.
func (fc *FilterChain) Flush() (*Buffer, error) {
	var final *Buffer
	for i, stage := range fc.stages {
		out, err := stage.Flush()
		if err != nil {
			if out != nil {
				out.Release()
			}
			if final != nil {
				final.Release()
			}
			return nil, err
		}
		if out == nil {
			continue
		}
		if i == len(fc.stages)-1 {
			if final != nil {
				final.Append(out.Bytes())
				out.Release()
			} else {
				final = out
			}
			continue
		}
		// feed downstream stages with this stage's flushed tail
		for j := i + 1; j < len(fc.stages); j++ {
			next, err := fc.stages[j].Write(out.Bytes())
			out.Release()
			if err != nil {
				if next != nil {
					next.Release()
				}
				if final != nil {
					final.Release()
				}
				return nil, err
			}
			out = next
			if out == nil {
				break
			}
		}
		if out != nil {
			if final != nil {
				final.Append(out.Bytes())
				out.Release()
			} else {
				final = out
			}
		}
	}
	return final, nil
}

// FilterSource wraps another Source and a FilterChain, producing
// transformed bytes. When Last is true, exhausting the inner source
// also flushes the chain's tail.
type FilterSource struct {
	inner Source
	chain *FilterChain
	last  bool
	sink  *BufferSink // accumulates inner's raw output for this SendTo
	tail  *Buffer     // filtered bytes not yet delivered
	off   int
	done  bool
}

// NewFilterSource wraps inner with chain. If last is true, the chain
// is flushed once inner reports EOF.
func NewFilterSource(inner Source, chain *FilterChain, last bool) *FilterSource {
	return &FilterSource{inner: inner, chain: chain, last: last}
}

func (s *FilterSource) SendTo(sink Sink) (int64, error) {
	var total int64
	for {
		if s.tail != nil {
			remain := s.tail.Bytes()[s.off:]
			if len(remain) > 0 {
				n, err := sink.Write(remain)
				s.off += n
				total += int64(n)
				if err != nil {
					return total, err
				}
				if s.off < len(s.tail.Bytes()) {
					return total, nil // sink is full; resume here next call
				}
			}
			s.tail.Release()
			s.tail = nil
			s.off = 0
		}
		if s.done {
			return total, nil
		}
		raw := GetNK(tier16K)
		n, err := s.inner.SendTo(&rawCollector{buf: raw})
		if n == 0 && err == nil {
			raw.Release()
			if s.last {
				out, ferr := s.chain.Flush()
				if ferr != nil {
					return total, ferr
				}
				s.tail = out
			}
			s.done = true
			if s.tail == nil {
				return total, nil
			}
			continue
		}
		if err != nil {
			raw.Release()
			return total, err
		}
		out, ferr := s.chain.Write(raw.Bytes())
		raw.Release()
		if ferr != nil {
			return total, ferr
		}
		s.tail = out
	}
}

// rawCollector adapts an in-memory Buffer as a Sink so FilterSource
// can pull raw bytes from its inner Source without touching the real
// downstream socket until they have been transformed.
type rawCollector struct{ buf *Buffer }

func (c *rawCollector) Write(p []byte) (int, error) {
	c.buf.Append(p)
	return len(p), nil
}

var _ io.Writer = (*rawCollector)(nil)

func newFlateFilter() Filter { return &flateFilter{} }

type flateFilter struct {
	w   *flate.Writer
	buf *BufferSink
}

func (f *flateFilter) ensure() {
	if f.w == nil {
		f.buf = NewBufferSink()
		f.w, _ = flate.NewWriter(f.buf, flate.DefaultCompression)
	}
}
func (f *flateFilter) Write(p []byte) (*Buffer, error) {
	f.ensure()
	if _, err := f.w.Write(p); err != nil {
		return nil, err
	}
	if err := f.w.Flush(); err != nil {
		return nil, err
	}
	out := f.buf.Buf
	f.buf = NewBufferSink()
	f.w.Reset(f.buf)
	if out.Len() == 0 {
		out.Release()
		return nil, nil
	}
	return out, nil
}
func (f *flateFilter) Flush() (*Buffer, error) {
	f.ensure()
	if err := f.w.Close(); err != nil {
		return nil, err
	}
	out := f.buf.Buf
	if out.Len() == 0 {
		out.Release()
		return nil, nil
	}
	return out, nil
}

func newGzipFilter() Filter { return &gzipFilter{} }

type gzipFilter struct {
	w   *gzip.Writer
	buf *BufferSink
}

func (f *gzipFilter) ensure() {
	if f.w == nil {
		f.buf = NewBufferSink()
		f.w, _ = gzip.NewWriterLevel(f.buf, gzip.DefaultCompression)
	}
}
func (f *gzipFilter) Write(p []byte) (*Buffer, error) {
	f.ensure()
	if _, err := f.w.Write(p); err != nil {
		return nil, err
	}
	if err := f.w.Flush(); err != nil {
		return nil, err
	}
	out := f.buf.Buf
	f.buf.Buf = GetNK(tier4K) // keep the same gzip stream; only swap its destination
	if out.Len() == 0 {
		out.Release()
		return nil, nil
	}
	return out, nil
}
func (f *gzipFilter) Flush() (*Buffer, error) {
	f.ensure()
	if err := f.w.Close(); err != nil {
		return nil, err
	}
	out := f.buf.Buf
	if out.Len() == 0 {
		out.Release()
		return nil, nil
	}
	return out, nil
}
