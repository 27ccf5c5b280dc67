// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HttpRequest carries one in-flight request/response pair through its
// entire lifecycle: parsed request line and headers in, status/headers/
// body out.

package origin

import "fmt"

// OutputState tracks how far a request's response has progressed.
// Once Finished, headers are immutable; any mutation attempt is a
// programming error (BugExitln).
type OutputState int

const (
	OutputUnhandled OutputState = iota
	OutputPopulating
	OutputFinished
)

// BodyCallback is invoked once per received request-body chunk, in
// order, terminated by exactly one call with an empty chunk.
type BodyCallback func(chunk ByteRef)

// AbortHandler is invoked at most once if the peer disconnects before
// the response completes.
type AbortHandler func()

// HttpRequest is created when a new message begins on a connection and
// destroyed when the connection is released or resumed for the next
// message. It is owned by exactly one HttpConnection and accessed only
// from that connection's goroutine.
type HttpRequest struct {
	Method ByteRef
	URI    ByteRef // decoded in place; see decodeURI
	Path   ByteRef
	Query  ByteRef

	Hostname     string
	PathInfo     string
	DocumentRoot string
	Username     string

	VersionMajor, VersionMinor int

	Headers RequestHeaders

	responseHeaders ResponseHeaders
	status          int
	outputState     OutputState
	chunked         bool
	contentWritten  bool
	bytesTransmitted int64
	outputFilters   *FilterChain
	deferredBody    *Buffer

	bodyCallback BodyCallback
	abortHandler AbortHandler
	aborted      bool

	customData map[any]any

	conn *HttpConnection
}

func (r *HttpRequest) reset(conn *HttpConnection) {
	r.Method, r.URI, r.Path, r.Query = EmptyRef, EmptyRef, EmptyRef, EmptyRef
	r.Hostname, r.PathInfo, r.DocumentRoot, r.Username = "", "", "", ""
	r.VersionMajor, r.VersionMinor = 0, 0
	r.Headers.reset()
	r.responseHeaders.reset()
	r.status = StatusUndefined
	r.outputState = OutputUnhandled
	r.chunked = false
	r.contentWritten = false
	r.bytesTransmitted = 0
	r.outputFilters = nil
	if r.deferredBody != nil {
		r.deferredBody.Release()
		r.deferredBody = nil
	}
	r.bodyCallback = nil
	r.abortHandler = nil
	r.aborted = false
	r.customData = nil
	r.conn = conn
}

// Status returns the response status code, or StatusUndefined if none
// has been set yet.
func (r *HttpRequest) Status() int { return r.status }

// SetStatus sets the response status code. It is a programming error
// to call this once OutputState is Finished.
func (r *HttpRequest) SetStatus(code int) {
	r.mustBeMutable()
	r.status = code
}

// ResponseHeaders exposes the ordered, case-insensitive outgoing
// header list. Mutating it once OutputState is Finished is a
// programming error, enforced by the individual Set/Append/Remove
// calls on ResponseHeaders having no such guard themselves — callers
// go through the request so the invariant is checked in one place.
func (r *HttpRequest) ResponseHeaders() *ResponseHeaders {
	r.mustBeMutable()
	return &r.responseHeaders
}

func (r *HttpRequest) mustBeMutable() {
	if r.outputState == OutputFinished {
		BugExitln("origin: response headers mutated after Finish")
	}
}

// OutputState reports how far response production has progressed.
func (r *HttpRequest) OutputState() OutputState { return r.outputState }

// BytesTransmitted returns the monotonically non-decreasing byte
// count written to the client for this response so far.
func (r *HttpRequest) BytesTransmitted() int64 { return r.bytesTransmitted }

// SetBodyCallback registers fn to receive each request-body chunk.
func (r *HttpRequest) SetBodyCallback(fn BodyCallback) { r.bodyCallback = fn }

// SetAbortHandler registers fn to run at most once if the peer
// disconnects before the response completes.
func (r *HttpRequest) SetAbortHandler(fn AbortHandler) { r.abortHandler = fn }

// SetFilters installs the response's output filter chain. Must be
// called before the first Write/Finish.
func (r *HttpRequest) SetFilters(fc *FilterChain) {
	r.mustBeMutable()
	r.outputFilters = fc
}

// SetCustomData attaches an arbitrary per-request value under key,
// living for the request's lifetime.
func (r *HttpRequest) SetCustomData(key, value any) {
	if r.customData == nil {
		r.customData = make(map[any]any, 4)
	}
	r.customData[key] = value
}

// CustomData retrieves a value previously attached with SetCustomData.
func (r *HttpRequest) CustomData(key any) (any, bool) {
	v, ok := r.customData[key]
	return v, ok
}

// KeepAliveDefault reports the protocol default for this request's
// version, before any Connection header override.
func (r *HttpRequest) KeepAliveDefault() bool {
	return r.VersionMajor > 1 || (r.VersionMajor == 1 && r.VersionMinor >= 1)
}

// String is a debug summary; not used on any hot path.
func (r *HttpRequest) String() string {
	return fmt.Sprintf("%s %s HTTP/%d.%d", r.Method.String(), r.URI.String(), r.VersionMajor, r.VersionMinor)
}

// decodeURI percent-decodes r.URI in place and splits it into Path and
// Query on the first '?'. In-place decoding is safe because the write
// cursor never outruns the read cursor and no ByteRef pointing past the
// decoded region is used for lookup before this runs.
func (r *HttpRequest) decodeURI() {
	data := r.URI.Bytes()
	if data == nil {
		return
	}
	w := 0
	qmark := -1
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '?' && qmark < 0:
			qmark = w
			data[w] = c
			w++
		case c == '%' && i+2 < len(data) && isHex(data[i+1]) && isHex(data[i+2]):
			data[w] = hexByte(data[i+1], data[i+2])
			w++
			i += 2
		case c == '+' && qmark < 0:
			data[w] = ' '
			w++
		default:
			data[w] = c
			w++
		}
	}
	full := r.URI.Sub(0, w)
	r.URI = full
	if qmark < 0 {
		r.Path = full
		r.Query = EmptyRef
	} else {
		r.Path = full.Sub(0, qmark)
		r.Query = full.Sub(qmark+1, w-qmark-1)
	}
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func hexByte(hi, lo byte) byte { return hexNibble(hi)<<4 | hexNibble(lo) }
