// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Response writer algorithm: status-line/header serialization, body
// framing (identity, chunked, or deferred), and output filtering.
package origin

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	crlfBytes         = []byte("\r\n")
	chunkedTerminator = []byte("0\r\n\r\n")
	colonSpace        = []byte(": ")
)

// Write enqueues a body chunk. It lazily serializes the status line
// and headers on the first call, exactly
// as Finish does when no body was ever written — unless the peer
// can't be sent chunked framing and no length was given, in which
// case the body is buffered until Finish so an exact Content-Length
// can be computed (see needsDeferredFraming).
func (r *HttpRequest) Write(p []byte) (int, error) {
	r.mustBeMutable()
	if len(p) == 0 {
		return 0, nil
	}
	if r.outputState == OutputUnhandled {
		r.outputState = OutputPopulating
		if r.needsDeferredFraming() {
			r.deferredBody = Get16K()
		} else {
			buildStatusLineAndHeaders(r.conn, r)
		}
	}
	if r.forbidsResponseBody() {
		return len(p), nil // dropped: this status/method combination forbids a body
	}
	r.contentWritten = true
	if r.deferredBody != nil {
		r.deferredBody.Append(p)
		return len(p), nil
	}
	if r.outputFilters != nil && !r.outputFilters.Empty() {
		out, err := r.outputFilters.Write(p)
		if err != nil {
			return 0, err
		}
		if out == nil || out.Len() == 0 {
			if out != nil {
				out.Release()
			}
			return len(p), nil
		}
		r.emit(out)
		return len(p), nil
	}
	buf := GetNK(len(p))
	buf.Append(p)
	r.emit(buf)
	return len(p), nil
}

// SendFile enqueues count bytes of file starting at offset as the next
// body source. With no active filter chain and identity framing, this
// reaches the FileSource/sendfile fast path all the way to the socket.
func (r *HttpRequest) SendFile(file *os.File, offset, count int64, closeFile bool) {
	r.mustBeMutable()
	if r.outputState == OutputUnhandled {
		// count is known up front, so an exact Content-Length can be set
		// directly instead of deferring, unlike Write's chunk-at-a-time
		// case. A filtered send still can't predict its final size this
		// way, so it falls through to ensureStandardHeaders's fallback.
		noFraming := !r.responseHeaders.Has("content-length") && !r.responseHeaders.Has("transfer-encoding")
		if noFraming && !r.supportsChunked() && (r.outputFilters == nil || r.outputFilters.Empty()) {
			r.responseHeaders.Set("Content-Length", strconv.FormatInt(count, 10))
		}
		buildStatusLineAndHeaders(r.conn, r)
		r.outputState = OutputPopulating
	}
	if r.forbidsResponseBody() {
		if closeFile {
			file.Close()
		}
		return
	}
	r.contentWritten = true
	fileSrc := NewFileSource(file, offset, count, closeFile)
	if r.outputFilters != nil && !r.outputFilters.Empty() {
		filtered := materializeFiltered(r.outputFilters, fileSrc, false)
		if filtered == nil {
			return
		}
		r.emit(filtered)
		return
	}
	if r.chunked {
		r.conn.write(chunkFrameSource(fileSrc, count))
		return
	}
	r.conn.write(fileSrc)
}

// Finish completes response production, emitting default status/header/
// body content for any part the handler never populated itself.
func (r *HttpRequest) Finish() {
	r.mustBeMutable()
	if r.outputState == OutputUnhandled {
		if r.status == StatusUndefined {
			r.status = StatusOK
		}
		if r.needsDeferredFraming() {
			r.deferredBody = Get16K()
		} else {
			buildStatusLineAndHeaders(r.conn, r)
		}
		r.outputState = OutputPopulating
		if !r.forbidsResponseBody() {
			writeDefaultResponseContent(r)
		}
	}
	if r.deferredBody != nil {
		r.finishDeferredBody()
		r.outputState = OutputFinished
		r.conn.finish(r)
		return
	}
	if r.outputFilters != nil && !r.outputFilters.Empty() && !r.forbidsResponseBody() {
		tail, err := r.outputFilters.Flush()
		if err == nil && tail != nil && tail.Len() > 0 {
			r.emit(tail)
		} else if tail != nil {
			tail.Release()
		}
	}
	if r.chunked && !r.forbidsResponseBody() {
		r.conn.write(NewBytesSource(append([]byte(nil), chunkedTerminator...)))
	}
	r.outputState = OutputFinished
	r.conn.finish(r)
}

// finishDeferredBody builds and enqueues the status line, headers, and
// body of a response whose length couldn't be committed as it was
// written, now that the whole body is known (see needsDeferredFraming).
func (r *HttpRequest) finishDeferredBody() {
	body := r.deferredBody
	r.deferredBody = nil
	if r.outputFilters != nil && !r.outputFilters.Empty() {
		out, err := r.outputFilters.Write(body.Bytes())
		body.Release()
		body = nil
		if err == nil {
			var tail *Buffer
			tail, err = r.outputFilters.Flush()
			if err == nil {
				body = joinBuffers(out, tail)
			} else if out != nil {
				out.Release()
			}
		}
	}
	length := 0
	if body != nil {
		length = body.Len()
	}
	if !r.responseHeaders.Has("content-length") && !r.responseHeaders.Has("transfer-encoding") {
		r.responseHeaders.Set("Content-Length", strconv.Itoa(length))
	}
	buildStatusLineAndHeaders(r.conn, r)
	if body != nil && body.Len() > 0 {
		r.conn.write(NewBufferSource(body))
	} else if body != nil {
		body.Release()
	}
}

// joinBuffers concatenates a and b (either may be nil) into one owned
// Buffer, releasing both inputs.
func joinBuffers(a, b *Buffer) *Buffer {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		a.Append(b.Bytes())
		b.Release()
		return a
	}
}

func (r *HttpRequest) forbidsResponseBody() bool {
	return forbidsBody(r.Method.String(), r.status)
}

// emit queues buf as the response's next output chunk, chunk-framing
// it first when Transfer-Encoding: chunked was chosen.
func (r *HttpRequest) emit(buf *Buffer) {
	if r.chunked {
		r.conn.write(chunkFrame(buf))
		return
	}
	r.conn.write(NewBufferSource(buf))
}

// chunkFrame wraps a fully-materialized buffer of known length as one
// chunked-encoding frame (RFC 7230 §4.1).
func chunkFrame(buf *Buffer) Source {
	head := Get4K()
	head.Append([]byte(strconv.FormatInt(int64(buf.Len()), 16)))
	head.Append(crlfBytes)
	cs := &CompositeSource{}
	cs.PushBack(NewBufferSource(head))
	cs.PushBack(NewBufferSource(buf))
	cs.PushBack(NewBytesSource(append([]byte(nil), crlfBytes...)))
	return cs
}

// chunkFrameSource wraps a Source of known length as one chunked frame
// without buffering its content, preserving a wrapped FileSource's
// sendfile fast path.
func chunkFrameSource(body Source, length int64) Source {
	head := Get4K()
	head.Append([]byte(strconv.FormatInt(length, 16)))
	head.Append(crlfBytes)
	cs := &CompositeSource{}
	cs.PushBack(NewBufferSource(head))
	cs.PushBack(body)
	cs.PushBack(NewBytesSource(append([]byte(nil), crlfBytes...)))
	return cs
}

// materializeFiltered drains inner fully through chain, returning the
// transformed bytes as one owned Buffer, or nil if empty. Used only by
// SendFile, where the source's length is not known post-filtering.
func materializeFiltered(chain *FilterChain, inner Source, last bool) *Buffer {
	fs := NewFilterSource(inner, chain, last)
	sink := NewBufferSink()
	for {
		n, err := fs.SendTo(sink)
		if err != nil || n == 0 {
			break
		}
	}
	if sink.Buf.Len() == 0 {
		sink.Buf.Release()
		return nil
	}
	return sink.Buf
}

// writeDefaultResponseContent emits the standard status-keyed error
// body when the handler produced none of its own.
func writeDefaultResponseContent(req *HttpRequest) {
	body := []byte(fmt.Sprintf("<html><head><title>%d %s</title></head><body><h1>%d %s</h1></body></html>\n",
		req.status, ReasonPhrase(req.status), req.status, ReasonPhrase(req.status)))
	req.Write(body)
}

// buildStatusLineAndHeaders serializes the status line and response
// headers into a fresh BufferSource and enqueues it, first filling in
// the headers every response must carry.
func buildStatusLineAndHeaders(conn *HttpConnection, req *HttpRequest) {
	if req.status == StatusUndefined {
		req.status = StatusOK
	}
	ensureStandardHeaders(conn, req)
	buf := Get4K()
	writeStatusLine(buf, req.status)
	req.responseHeaders.Walk(func(name, value string) {
		buf.Append(ConstBytes(name))
		buf.Append(colonSpace)
		buf.Append(ConstBytes(value))
		buf.Append(crlfBytes)
	})
	buf.Append(crlfBytes)
	conn.write(NewBufferSource(buf))
}

// writeStatusLine always responds in HTTP/1.1, regardless of the
// request's negotiated version, matching common origin-server
// practice for HTTP/1.0 requests.
func writeStatusLine(buf *Buffer, status int) {
	buf.Append(ConstBytes("HTTP/1.1 "))
	buf.Append([]byte(strconv.Itoa(status)))
	buf.Append([]byte(" "))
	buf.Append(ConstBytes(ReasonPhrase(status)))
	buf.Append(crlfBytes)
}

const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// ensureStandardHeaders fills in Date, Server, Connection, and a body
// framing header on every response that doesn't already set them.
func ensureStandardHeaders(conn *HttpConnection, req *HttpRequest) {
	h := &req.responseHeaders
	if !h.Has("date") {
		h.Set("Date", time.Now().UTC().Format(httpDateLayout))
	}
	if !h.Has("server") {
		h.Set("Server", "origind")
	}
	if !h.Has("connection") {
		if conn.keepAliveEnabled {
			h.Set("Connection", "keep-alive")
		} else {
			h.Set("Connection", "close")
		}
	}
	if !h.Has("content-length") && !h.Has("transfer-encoding") {
		if req.supportsChunked() {
			req.chunked = true
			h.Set("Transfer-Encoding", "chunked")
		} else {
			// Chunked transfer coding is HTTP/1.1-only (RFC 7230 §3.3.1).
			// Write/Finish buffer the body ahead of time so this branch
			// should have an explicit Content-Length already; reaching
			// it with the length still unknown means framing by closing
			// the connection instead.
			conn.keepAliveEnabled = false
			h.Set("Connection", "close")
		}
	}
}

// supportsChunked reports whether this request's negotiated version
// allows a chunked response (RFC 7230 §3.3.1: HTTP/1.1 or later).
func (r *HttpRequest) supportsChunked() bool {
	return r.VersionMajor > 1 || (r.VersionMajor == 1 && r.VersionMinor >= 1)
}

// needsDeferredFraming reports whether the response body must be
// buffered until Finish before headers can be built, because the peer
// can't be sent chunked framing and no explicit length has been set:
// an HTTP/1.0 request must get an exact Content-Length rather than
// Transfer-Encoding: chunked.
func (r *HttpRequest) needsDeferredFraming() bool {
	if r.supportsChunked() {
		return false
	}
	return !r.responseHeaders.Has("content-length") && !r.responseHeaders.Has("transfer-encoding")
}
