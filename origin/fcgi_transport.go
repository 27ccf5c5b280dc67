// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// FastCGI gateway.
//
// Per request this dials a fresh backend connection (no pooling —
// connection reuse across requests belongs to a handler-pipeline layer
// above this transport), writes BeginRequest/Params/Stdin, and reads
// Stdout/Stderr/EndRequest back. Grounded on hemi/web_fcgi_backend.go's
// request/response dispatch shape, translated to run on the
// HttpConnection's own goroutine instead of a dedicated backend
// connection pool: the whole exchange, including Params/Stdin writes
// and the Stdout read pump, is ordinary blocking I/O, with no second
// goroutine touching connection or request state.
package origin

import (
	"io"
	"net"
	"strconv"
	"strings"
)

// FCGIConfig configures one FastCGI backend a Handler proxies to.
type FCGIConfig struct {
	Network      string // "tcp" or "unix"
	Address      string
	KeepConn     bool
	DocumentRoot string
	// ScriptFilenameFunc maps a request to the backend's absolute
	// script path. If nil, DocumentRoot+req.Path is used.
	ScriptFilenameFunc func(req *HttpRequest) string
}

// FCGIHandler is a Handler that proxies every request to a FastCGI
// Responder backend.
type FCGIHandler struct {
	cfg FCGIConfig
}

// NewFCGIHandler builds a Handler that proxies to cfg's backend.
func NewFCGIHandler(cfg FCGIConfig) *FCGIHandler { return &FCGIHandler{cfg: cfg} }

func (h *FCGIHandler) ServeHTTP(conn *HttpConnection, req *HttpRequest) {
	backend, err := net.Dial(h.cfg.Network, h.cfg.Address)
	if err != nil {
		req.SetStatus(StatusServiceUnavailable)
		req.Finish()
		return
	}
	t := &cgiTransport{conn: conn, req: req, cfg: &h.cfg, backend: backend}
	req.SetAbortHandler(t.onClientAbort)
	if err := t.sendBeginAndParams(); err != nil {
		t.fail(StatusBadGateway)
		return
	}
	req.SetBodyCallback(t.onBodyChunk)
}

// cgiTransport is a non-owning, per-request collaborator: it holds a
// reference to req only for the lifetime of one FastCGI exchange and
// never outlives it.
type cgiTransport struct {
	conn    *HttpConnection
	req     *HttpRequest
	cfg     *FCGIConfig
	backend net.Conn
}

func (t *cgiTransport) sendBeginAndParams() error {
	begin := Get4K()
	h := fcgiHeader{version: fcgiVersion1, kind: fcgiTypeBeginRequest, requestID: fcgiRequestID, contentLength: 8}
	head := h.encode()
	begin.Append(head[:])
	body := fcgiBeginRequestBody(t.cfg.KeepConn)
	begin.Append(body[:])
	_, err := t.backend.Write(begin.Bytes())
	begin.Release()
	if err != nil {
		return err
	}

	params := Get16K()
	buildFCGIParams(params, t.req, t.scriptFilename(), t.cfg.DocumentRoot, t.localAddr(), t.remoteAddr())
	err = t.writeParamRecords(params.Bytes())
	params.Release()
	if err != nil {
		return err
	}

	term := Get4K()
	appendFCGIRecord(term, fcgiTypeParams, nil)
	_, err = t.backend.Write(term.Bytes())
	term.Release()
	return err
}

func (t *cgiTransport) writeParamRecords(payload []byte) error {
	for len(payload) > 0 {
		n := len(payload)
		if n > fcgiMaxRecordPayload {
			n = fcgiMaxRecordPayload
		}
		rec := Get64K1()
		appendFCGIRecord(rec, fcgiTypeParams, payload[:n])
		_, err := t.backend.Write(rec.Bytes())
		rec.Release()
		if err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

func (t *cgiTransport) scriptFilename() string {
	if t.cfg.ScriptFilenameFunc != nil {
		return t.cfg.ScriptFilenameFunc(t.req)
	}
	return t.cfg.DocumentRoot + t.req.Path.String()
}

func (t *cgiTransport) localAddr() string {
	if a := t.conn.netConn.LocalAddr(); a != nil {
		return a.String()
	}
	return ""
}

func (t *cgiTransport) remoteAddr() string {
	if a := t.conn.netConn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

// onBodyChunk pipes the request body to the backend's Stdin stream as
// it is parsed, terminated by the empty chunk that marks end of body.
func (t *cgiTransport) onBodyChunk(chunk ByteRef) {
	if chunk.IsEmpty() {
		t.finishStdinAndRead()
		return
	}
	if err := t.writeStdin(chunk.Bytes()); err != nil {
		t.fail(StatusBadGateway)
	}
}

func (t *cgiTransport) writeStdin(p []byte) error {
	for len(p) > 0 {
		n := len(p)
		if n > fcgiMaxRecordPayload {
			n = fcgiMaxRecordPayload
		}
		rec := Get64K1()
		appendFCGIRecord(rec, fcgiTypeStdin, p[:n])
		_, err := t.backend.Write(rec.Bytes())
		rec.Release()
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (t *cgiTransport) finishStdinAndRead() {
	term := Get4K()
	appendFCGIRecord(term, fcgiTypeStdin, nil)
	_, err := t.backend.Write(term.Bytes())
	term.Release()
	if err != nil {
		t.fail(StatusBadGateway)
		return
	}
	t.readBackend()
}

// readBackend drives the response side of the exchange: Stdout is
// parsed as a CGI response (status line convention plus headers, then a
// raw byte stream) and piped into the HTTP response; Stderr is logged;
// EndRequest finishes the request.
func (t *cgiTransport) readBackend() {
	out := &cgiStdoutParser{req: t.req}
	var head [fcgiHeaderLen]byte
	for {
		if _, err := io.ReadFull(t.backend, head[:]); err != nil {
			t.fail(StatusBadGateway)
			return
		}
		h := decodeFCGIHeader(head[:])
		var payload []byte
		if h.contentLength > 0 {
			payload = make([]byte, h.contentLength)
			if _, err := io.ReadFull(t.backend, payload); err != nil {
				t.fail(StatusBadGateway)
				return
			}
		}
		if h.paddingLength > 0 {
			if _, err := io.CopyN(io.Discard, t.backend, int64(h.paddingLength)); err != nil {
				t.fail(StatusBadGateway)
				return
			}
		}
		switch h.kind {
		case fcgiTypeStdout:
			if len(payload) == 0 {
				continue // stream terminator record; EndRequest still to come
			}
			if err := out.feed(payload); err != nil {
				t.fail(StatusBadGateway)
				return
			}
			// Flush what feed just queued to the client socket before
			// reading the next Stdout record, instead of letting the
			// whole backend response pile up in conn.output. A slow
			// client's write blocking here holds up this same read
			// loop, so the backend socket stops being drained until
			// the client catches up -- one goroutine, one queue, no
			// separate pause/resume signal needed.
			if err := t.conn.processOutput(); err != nil {
				t.conn.abort()
				return
			}
		case fcgiTypeStderr:
			if len(payload) > 0 {
				t.conn.logger.Warn("fcgi stderr", "backend", t.cfg.Address, "data", string(payload))
			}
		case fcgiTypeEndRequest:
			_, protocolStatus := fcgiEndRequestBody(payload)
			if protocolStatus != fcgiStatusRequestComplete && t.req.Status() == StatusUndefined {
				t.req.SetStatus(StatusBadGateway)
			}
			t.backend.Close()
			t.req.Finish()
			return
		case fcgiTypeGetValuesResult, fcgiTypeUnknownType:
			// not used by this transport; consumed and ignored.
		default:
			t.conn.logger.Debug("fcgi: unexpected record type", "type", h.kind)
		}
	}
}

// onClientAbort sends AbortRequest to a still-connected backend, then
// closes it.
func (t *cgiTransport) onClientAbort() {
	if t.backend == nil {
		return
	}
	rec := Get4K()
	appendFCGIRecord(rec, fcgiTypeAbortRequest, nil)
	t.backend.Write(rec.Bytes())
	rec.Release()
	t.backend.Close()
}

// fail reports a backend failure. If nothing has reached the client
// yet, it emits status and finishes normally; once headers have already
// gone out there is no way to retract them, so the connection is
// aborted outright.
func (t *cgiTransport) fail(status int) {
	if t.backend != nil {
		t.backend.Close()
	}
	if t.req.OutputState() == OutputUnhandled {
		t.req.SetStatus(status)
		t.req.Finish()
		return
	}
	t.conn.abort()
}

const fcgiMaxRecordPayload = 0xffff

// cgiStdoutParser splits a FastCGI Responder's Stdout stream into a
// CGI-style header block (reusing the request parser's own header-line
// scanner) followed by an unframed byte stream, since CGI scripts
// commonly omit Content-Length and simply stream until the process
// exits.
type cgiStdoutParser struct {
	req         *HttpRequest
	buf         []byte
	headersDone bool
	sawStatus   bool
	sawLocation bool
}

func (p *cgiStdoutParser) feed(chunk []byte) error {
	if p.headersDone {
		if len(chunk) > 0 {
			p.req.Write(chunk)
		}
		return nil
	}
	p.buf = append(p.buf, chunk...)
	for {
		n, name, value, blank, ok, err := scanHeaderLine(p.buf, 0)
		if err != nil {
			return err
		}
		if !ok {
			return nil // need more bytes
		}
		p.buf = p.buf[n:]
		if blank {
			p.headersDone = true
			switch {
			case p.sawStatus:
				// already set below
			case p.sawLocation:
				// a bare Location without Status is CGI's client-redirect
				// convention: no document follows, so treat it as a 302.
				p.req.SetStatus(StatusFound)
			default:
				p.req.SetStatus(StatusOK)
			}
			rest := p.buf
			p.buf = nil
			if len(rest) > 0 {
				p.req.Write(rest)
			}
			return nil
		}
		switch {
		case strings.EqualFold(string(name), "status"):
			p.sawStatus = true
			p.req.SetStatus(parseCGIStatus(value))
		case strings.EqualFold(string(name), "location"):
			p.sawLocation = true
			p.req.ResponseHeaders().Append(string(name), string(value))
		default:
			p.req.ResponseHeaders().Append(string(name), string(value))
		}
	}
}

// parseCGIStatus reads the leading decimal code off a CGI "Status:"
// header value such as "404 Not Found".
func parseCGIStatus(value []byte) int {
	i := 0
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		i++
	}
	if i == 0 {
		return StatusOK
	}
	n, err := strconv.Atoi(string(value[:i]))
	if err != nil {
		return StatusOK
	}
	return n
}
