// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HttpConnection lifecycle.
//
// Grounded on hemi/web_http1_server.go's server1Conn/server1Stream:
// one goroutine per accepted connection running a blocking serve()
// loop over its (possibly pipelined) stream of requests, with the
// half-close-before-close shutdown sequence from RFC 7230 §6.6. Ordinary
// blocking I/O on one goroutine stands in for x0's single-threaded
// reactor: the Go runtime's netpoller supplies the cooperative
// suspension on socket readiness that a hand-rolled event loop would
// otherwise need to provide.
package origin

import (
	"errors"
	"io"
	"net"
	"time"
)

// ConnStatus tracks what an HttpConnection is currently doing.
type ConnStatus int

const (
	StatusStartingUp ConnStatus = iota
	StatusReadingRequest
	StatusSendingReply
	StatusKeepAliveRead
)

// HttpConnection is created when a socket is accepted and destroyed
// when its serve loop returns. It is owned by exactly one worker
// goroutine for its entire lifetime — there is no lock on its state;
// mutual exclusion comes from single-thread ownership.
type HttpConnection struct {
	id       int64
	netConn  net.Conn
	worker   *Worker
	listener *Listener
	logger   Logger
	tunables Tunables

	input       *Buffer
	inputOffset int
	parser      *Parser

	req     HttpRequest
	handler Handler

	output           CompositeSource
	status           ConnStatus
	keepAliveEnabled bool
	aborted          bool
	closed           bool

	feeding       bool
	resumePending bool

	bytesIn, bytesOut int64
}

func newConnection(id int64, netConn net.Conn, w *Worker, l *Listener, handler Handler, tunables Tunables, logger Logger) *HttpConnection {
	c := &HttpConnection{
		id:       id,
		netConn:  netConn,
		worker:   w,
		listener: l,
		handler:  handler,
		tunables: tunables,
		logger:   logger,
		input:    Get16K(),
		status:   StatusStartingUp,
	}
	c.req.reset(c)
	c.parser = NewParser(ModeRequest, tunables.Limits, Callbacks{
		OnMessageBegin:     c.onMessageBegin,
		OnMessageHeader:    c.onMessageHeader,
		OnMessageHeaderEnd: c.onMessageHeaderEnd,
		OnMessageContent:   c.onMessageContent,
		OnMessageEnd:       c.onMessageEnd,
	})
	return c
}

// ID returns the connection's monotonically assigned id.
func (c *HttpConnection) ID() int64 { return c.id }

// Aborted reports whether Abort has already fired for this connection.
func (c *HttpConnection) Aborted() bool { return c.aborted }

// serve runs this connection's entire lifecycle on the calling goroutine
// until the connection closes.
func (c *HttpConnection) serve() {
	defer c.release()

	c.status = StatusReadingRequest
	for !c.closed {
		if err := c.setReadDeadline(); err != nil {
			c.abort()
			return
		}
		n, err := c.readMore()
		if err != nil {
			if err == io.EOF {
				c.abort() // peer half-closed its side of the socket
			} else if isTimeoutErr(err) {
				c.timeout()
			} else {
				c.abort()
			}
			if c.closed {
				return
			}
			continue
		}
		c.bytesIn += int64(n)
		if !c.processInput() {
			return
		}
	}
}

// readMore performs one read into the growable input buffer.
func (c *HttpConnection) readMore() (int, error) {
	free := c.input.Cap() - c.input.Len()
	if free < 4096 {
		c.input.Reserve(c.input.Len() + 16384)
		free = c.input.Cap() - c.input.Len()
	}
	oldLen := c.input.Len()
	ref := c.input.Grow(free)
	n, err := c.netConn.Read(ref.Bytes())
	c.input.Truncate(oldLen + n)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	if n > 0 {
		return n, nil
	}
	return 0, err
}

// processInput feeds the parser from inputOffset and drives repeated
// messages on a pipelined connection. It returns false if the
// connection has been closed and serve should stop.
func (c *HttpConnection) processInput() bool {
	if c.inputOffset >= c.input.Len() {
		c.input.Clear()
		c.inputOffset = 0
	}
	for {
		data := c.input.Bytes()[c.inputOffset:]
		if len(data) == 0 && c.status != StatusReadingRequest {
			return true
		}
		c.feeding = true
		consumed, err := c.parser.Feed(data)
		c.feeding = false
		c.inputOffset += consumed
		if c.resumePending {
			// a handler finished synchronously from inside the Feed call
			// above (onMessageHeaderEnd -> dispatch -> Finish -> resume)
			// and deferred here rather than re-entering Feed while it was
			// still on the stack. inputOffset is committed now, so it's
			// safe to apply.
			c.resumePending = false
			c.applyResume()
		}
		if err != nil {
			c.failParse(err)
			return !c.closed
		}
		if c.closed {
			return false
		}
		if consumed == 0 {
			return true // need more bytes from the socket
		}
		if c.status == StatusSendingReply {
			// parser paused after onMessageEnd while HandlingRequest;
			// don't parse pipelined bytes yet.
			return true
		}
	}
}

func (c *HttpConnection) failParse(err error) {
	if errors.Is(err, ErrHeaderTooLarge) {
		c.writeErrorAndClose(StatusRequestHeaderFieldsTooLarge)
		return
	}
	c.writeErrorAndClose(StatusBadRequest)
}

// --- parser callbacks ---

func (c *HttpConnection) onMessageBegin(method, uri ByteRef, versionMajor, versionMinor int) bool {
	c.req.reset(c)
	c.req.Method = method
	c.req.URI = uri
	c.req.VersionMajor, c.req.VersionMinor = versionMajor, versionMinor
	c.req.decodeURI()
	c.keepAliveEnabled = c.req.KeepAliveDefault()
	return true
}

func (c *HttpConnection) onMessageHeader(name, value ByteRef) bool {
	if name.EqualFoldString("host") {
		c.req.Hostname = value.String()
	} else if name.EqualFoldString("connection") {
		switch {
		case containsTokenFold(value.Bytes(), "close"):
			c.keepAliveEnabled = false
		case containsTokenFold(value.Bytes(), "keep-alive"):
			c.keepAliveEnabled = true
		}
	}
	c.req.Headers.Add(name, value)
	return true
}

func (c *HttpConnection) onMessageHeaderEnd() bool {
	method := c.req.Method.String()
	_, hasCL := c.req.Headers.Get("content-length")
	_, hasTE := c.req.Headers.Get("transfer-encoding")
	contentRequired := method == "POST" || method == "PUT"
	if contentRequired && !hasCL && !hasTE {
		c.writeErrorAndClose(StatusLengthRequired)
		return false
	}
	// a body on a method that doesn't declare one is rejected outright,
	// matching x0's content_required check (HttpConnection.cpp).
	if !contentRequired && (hasCL || hasTE) {
		c.writeErrorAndClose(StatusBadRequest)
		return false
	}
	if expect, ok := c.req.Headers.Get("expect"); ok {
		if !expect.EqualFoldString("100-continue") || c.req.VersionMajor < 1 || c.req.VersionMinor < 1 {
			c.writeErrorAndClose(StatusExpectationFailed)
			return false
		}
	}
	c.status = StatusSendingReply
	c.dispatch()
	return true
}

func (c *HttpConnection) onMessageContent(chunk ByteRef) bool {
	if c.req.bodyCallback != nil {
		c.req.bodyCallback(chunk)
	}
	return true
}

func (c *HttpConnection) onMessageEnd() bool {
	// Always pause here; the handler drives the rest via Finish.
	return false
}

// dispatch invokes the configured handler on the current request.
func (c *HttpConnection) dispatch() {
	if c.handler == nil {
		c.req.SetStatus(StatusNotImplemented)
		c.req.Finish()
		return
	}
	c.handler.ServeHTTP(c, &c.req)
}

// --- output ---

// write enqueues src as the next Source in the output queue.
func (c *HttpConnection) write(src Source) { c.output.PushBack(src) }

// processOutput drains the composite output queue into the socket.
func (c *HttpConnection) processOutput() error {
	if err := c.setWriteDeadline(); err != nil {
		return err
	}
	sink := SocketSink{Conn: c.netConn}
	for !c.output.Empty() {
		n, err := c.output.SendTo(sink)
		c.bytesOut += n
		c.req.bytesTransmitted += n
		if err != nil {
			if isTimeoutErr(err) {
				return err
			}
			return err
		}
		if n == 0 {
			break
		}
	}
	return nil
}

// finish is called by response.go's Finish once the response is fully
// queued.
func (c *HttpConnection) finish(req *HttpRequest) {
	if err := c.processOutput(); err != nil {
		c.abort()
		return
	}
	c.resume()
}

// resume clears the current request in place and either continues
// parsing pipelined bytes or rearms for keep-alive. A handler may finish
// synchronously while still inside the Feed call that dispatched it
// (onMessageHeaderEnd, or a body callback mid-message); calling
// processInput again from there would re-enter Feed with c.inputOffset
// not yet committed by the enclosing processInput loop, and the parser's
// phase not yet advanced past the callback that's still running on the
// stack, recursing without end. When resume runs in that situation it
// only records the request and defers the actual state transition to
// the enclosing processInput loop, which applies it once Feed has
// returned and inputOffset reflects the bytes just consumed. Grounded
// on x0's HttpConnection::resume(), which defers to processResume() the
// same way when isInsideSocketCallback().
func (c *HttpConnection) resume() {
	if !c.keepAliveEnabled {
		c.close()
		return
	}
	if c.feeding {
		c.resumePending = true
		return
	}
	c.applyResume()
	if c.status == StatusReadingRequest {
		c.processInput()
	}
}

// applyResume performs the actual keep-alive state transition that
// resume defers while a Feed call is still unwinding.
func (c *HttpConnection) applyResume() {
	c.req.reset(c)
	if c.inputOffset < c.input.Len() {
		c.status = StatusReadingRequest
		return
	}
	c.status = StatusKeepAliveRead
}

// setReadDeadline arms the read deadline appropriate to the connection's
// current status.
func (c *HttpConnection) setReadDeadline() error {
	switch c.status {
	case StatusReadingRequest:
		return c.netConn.SetReadDeadline(time.Now().Add(c.tunables.MaxReadIdle))
	case StatusKeepAliveRead:
		return c.netConn.SetReadDeadline(time.Now().Add(c.tunables.MaxKeepAlive))
	default:
		return c.netConn.SetReadDeadline(time.Now().Add(c.tunables.MaxReadIdle))
	}
}

func (c *HttpConnection) setWriteDeadline() error {
	return c.netConn.SetWriteDeadline(time.Now().Add(c.tunables.MaxWriteIdle))
}

// timeout fires a status-specific terminal transition.
func (c *HttpConnection) timeout() {
	switch c.status {
	case StatusReadingRequest:
		c.writeErrorAndClose(StatusRequestTimeout)
	case StatusKeepAliveRead:
		c.close()
	case StatusSendingReply:
		c.abort()
	default:
		c.abort()
	}
}

// abort is idempotent: sets Aborted, clears pending output, invokes the
// request's abortHandler once, then closes.
func (c *HttpConnection) abort() {
	if c.aborted {
		return
	}
	c.aborted = true
	c.output.Clear()
	if c.req.abortHandler != nil && !c.req.aborted {
		c.req.aborted = true
		c.req.abortHandler()
	}
	c.close()
}

// close performs the RFC 7230 §6.6 half-close-before-close sequence
// (grounded on hemi/web_http1_server.go's serve()).
func (c *HttpConnection) close() {
	if c.closed {
		return
	}
	c.closed = true
	if hc, ok := c.netConn.(interface{ CloseWrite() error }); ok {
		hc.CloseWrite()
		time.Sleep(50 * time.Millisecond)
	}
	c.netConn.Close()
}

func (c *HttpConnection) release() {
	if c.input != nil {
		c.input.Release()
		c.input = nil
	}
	if c.listener != nil {
		c.worker.onConnClosed(c)
	}
}

// writeErrorAndClose responds to a parse or protocol error by emitting
// the given status with a default body, then closing after the write
// completes. Routed through the normal Finish path so headers, default
// content, and the keep-alive decision are all handled in one place.
func (c *HttpConnection) writeErrorAndClose(status int) {
	c.status = StatusSendingReply
	c.keepAliveEnabled = false
	c.req.SetStatus(status)
	c.req.Finish()
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
