// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Incremental HTTP/1.x message parser.
//
// The parser is table-less and byte-driven: every byte of a request
// line, header line, or chunk-size line is classified against the
// RFC 7230 token/ctl character classes (chars.go) as it is scanned.
// It never blocks and never buffers on its own — Feed is handed the
// entire unconsumed tail of the connection's read buffer on every
// call and returns how many of those bytes it fully consumed. Bytes
// beyond a not-yet-complete token (an incomplete header line, a chunk
// still arriving) are left unconsumed; the caller re-feeds them,
// prefixed unchanged, together with whatever new bytes have since
// arrived. Because the parser always re-validates from the start of
// its still-unconsumed window rather than resuming mid-token, no
// partial-token position needs to survive across Feed calls — only
// the coarse phase (request-line vs. headers vs. body-identity vs.
// body-chunked) and the handful of body-framing scalars below do.
//
// Grounded on hemi/web_general.go's webTchar classification table and
// hemi/web_http1_mixins.go's chunk cursor management
// (chunkFore/chunkBack/chunkEdge, growChunked1) for the chunked-body
// framing walk.
package origin

import "errors"

// Mode selects the message grammar. REQUEST mode parses a full
// request-line + headers + body, as read off an HTTP/1.x connection.
// MESSAGE mode parses headers + body only — no request-line and no
// HTTP status-line — matching how FastCGI/CGI backends frame their
// stdout: any "Status: nnn" is just an ordinary header.
type Mode int

const (
	ModeRequest Mode = iota
	ModeMessage
)

// ErrMalformed is returned by Feed when the input violates the
// request-line, header, or chunk-framing grammar.
var ErrMalformed = errors.New("origin: malformed http message")

// ErrHeaderTooLarge is returned by Feed when a single header field or
// the total header count exceeds the configured Limits.
var ErrHeaderTooLarge = errors.New("origin: header limit exceeded")

// Limits bounds header size and count.
type Limits struct {
	MaxHeaderLineSize int // cap on one header's name+value size, in bytes
	MaxHeaderCount    int // cap on total header count for one message
}

// DefaultLimits mirrors conservative production defaults.
var DefaultLimits = Limits{MaxHeaderLineSize: 8 << 10, MaxHeaderCount: 100}

// Callbacks are invoked as the parser recognizes each grammar element.
// Returning false from any callback causes Feed to return immediately
// with the bytes consumed so far; the processor decides whether and
// when to resume feeding.
type Callbacks struct {
	OnMessageBegin     func(method, uri ByteRef, versionMajor, versionMinor int) bool // REQUEST mode only
	OnMessageHeader    func(name, value ByteRef) bool
	OnMessageHeaderEnd func() bool
	OnMessageContent   func(chunk ByteRef) bool // a zero-length chunk marks end of body
	OnMessageEnd       func() bool
}

type phase int

const (
	phRequestMethod phase = iota
	phRequestURI
	phRequestVersion
	phRequestLineEnd
	phHeaderLine
	phHeaderEnd
	phBodyIdentity
	phBodyChunkSize
	phBodyChunkData
	phBodyChunkDataEnd
	phBodyChunkTrailer
	phMessageEnd
)

// Parser is one incremental HTTP/1.x message parser. It is reused
// across pipelined messages on the same connection via Reset.
type Parser struct {
	mode   Mode
	limits Limits
	cb     Callbacks

	phase phase

	methodRef, uriRef         ByteRef
	versionMajor, versionMinor int

	sawContentLength bool
	sawChunked       bool
	contentLength    int64
	chunkRemaining   int64

	headerCount int
}

// NewParser constructs a Parser for the given mode.
func NewParser(mode Mode, limits Limits, cb Callbacks) *Parser {
	return &Parser{mode: mode, limits: limits, cb: cb, phase: initialPhase(mode)}
}

func initialPhase(mode Mode) phase {
	if mode == ModeMessage {
		return phHeaderLine
	}
	return phRequestMethod
}

// Reset returns the parser to its initial phase so it can parse the
// next pipelined message.
func (p *Parser) Reset() {
	p.phase = initialPhase(p.mode)
	p.versionMajor, p.versionMinor = 0, 0
	p.sawContentLength, p.sawChunked = false, false
	p.contentLength, p.chunkRemaining = 0, 0
	p.headerCount = 0
}

// Feed drives the state machine over data, which must be the entire
// unconsumed tail of the input (see package doc). It returns the
// number of bytes fully consumed; data[consumed:] must be re-fed,
// unchanged, together with any newly arrived bytes, on the next call.
func (p *Parser) Feed(data []byte) (consumed int, err error) {
	for consumed < len(data) || p.phase == phHeaderEnd || p.phase == phMessageEnd {
		rest := data[consumed:]
		switch p.phase {
		case phRequestMethod:
			n, method, ok, e := scanToken(rest, ' ')
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			p.methodRef = NewByteRef(method)
			consumed += n
			p.phase = phRequestURI
		case phRequestURI:
			n, uri, ok, e := scanURI(rest)
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			p.uriRef = NewByteRef(uri)
			consumed += n
			p.phase = phRequestVersion
		case phRequestVersion:
			n, major, minor, ok, e := scanVersion(rest)
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			p.versionMajor, p.versionMinor = major, minor
			consumed += n
			p.phase = phRequestLineEnd
		case phRequestLineEnd:
			n, ok, e := scanCRLF(rest)
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			consumed += n
			if p.cb.OnMessageBegin != nil && !p.cb.OnMessageBegin(p.methodRef, p.uriRef, p.versionMajor, p.versionMinor) {
				return consumed, nil
			}
			p.phase = phHeaderLine
		case phHeaderLine:
			n, name, value, blank, ok, e := scanHeaderLine(rest, p.limits.MaxHeaderLineSize)
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			consumed += n
			if blank {
				p.phase = phHeaderEnd
				continue
			}
			p.headerCount++
			if p.limits.MaxHeaderCount > 0 && p.headerCount > p.limits.MaxHeaderCount {
				return consumed, ErrHeaderTooLarge
			}
			p.noteFramingHeader(name, value)
			if p.cb.OnMessageHeader != nil && !p.cb.OnMessageHeader(NewByteRef(name), NewByteRef(value)) {
				return consumed, nil
			}
		case phHeaderEnd:
			if p.cb.OnMessageHeaderEnd != nil && !p.cb.OnMessageHeaderEnd() {
				return consumed, nil
			}
			switch {
			case p.sawChunked:
				p.phase = phBodyChunkSize
			case p.sawContentLength && p.contentLength > 0:
				p.phase = phBodyIdentity
			default:
				if p.cb.OnMessageContent != nil && !p.cb.OnMessageContent(EmptyRef) {
					p.phase = phMessageEnd
					return consumed, nil
				}
				p.phase = phMessageEnd
			}
		case phBodyIdentity:
			avail := int64(len(rest))
			if avail > p.contentLength {
				avail = p.contentLength
			}
			if avail == 0 && p.contentLength > 0 {
				return consumed, nil
			}
			chunk := rest[:avail]
			consumed += int(avail)
			p.contentLength -= avail
			done := p.contentLength == 0
			if p.cb.OnMessageContent != nil && !p.cb.OnMessageContent(NewByteRef(chunk)) {
				return consumed, nil
			}
			if done {
				if p.cb.OnMessageContent != nil && !p.cb.OnMessageContent(EmptyRef) {
					p.phase = phMessageEnd
					return consumed, nil
				}
				p.phase = phMessageEnd
			}
		case phBodyChunkSize:
			n, size, ok, e := scanChunkSizeLine(rest)
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			consumed += n
			p.chunkRemaining = size
			if size == 0 {
				p.phase = phBodyChunkTrailer
			} else {
				p.phase = phBodyChunkData
			}
		case phBodyChunkData:
			avail := int64(len(rest))
			if avail > p.chunkRemaining {
				avail = p.chunkRemaining
			}
			if avail == 0 && p.chunkRemaining > 0 {
				return consumed, nil
			}
			chunk := rest[:avail]
			consumed += int(avail)
			p.chunkRemaining -= avail
			if len(chunk) > 0 && p.cb.OnMessageContent != nil && !p.cb.OnMessageContent(NewByteRef(chunk)) {
				return consumed, nil
			}
			if p.chunkRemaining == 0 {
				p.phase = phBodyChunkDataEnd
			}
		case phBodyChunkDataEnd:
			n, ok, e := scanCRLF(rest)
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			consumed += n
			p.phase = phBodyChunkSize
		case phBodyChunkTrailer:
			n, _, _, blank, ok, e := scanHeaderLine(rest, p.limits.MaxHeaderLineSize)
			if e != nil {
				return consumed, e
			}
			if !ok {
				return consumed, nil
			}
			consumed += n
			if blank {
				if p.cb.OnMessageContent != nil && !p.cb.OnMessageContent(EmptyRef) {
					p.phase = phMessageEnd
					return consumed, nil
				}
				p.phase = phMessageEnd
			}
			// trailers themselves are not surfaced as response headers
		// by this core.
		case phMessageEnd:
			if p.cb.OnMessageEnd != nil && !p.cb.OnMessageEnd() {
				p.Reset()
				return consumed, nil
			}
			p.Reset() // continue with any pipelined message in data
		}
	}
	return consumed, nil
}

// noteFramingHeader inspects Content-Length/Transfer-Encoding as
// headers stream past, so phHeaderEnd can pick a body mode without a
// second pass over the header list.
func (p *Parser) noteFramingHeader(name, value []byte) {
	switch {
	case equalFoldBytes(name, "content-length"):
		if n, ok := parseDecimal(value); ok {
			p.sawContentLength = true
			p.contentLength = n
		}
	case equalFoldBytes(name, "transfer-encoding"):
		if containsTokenFold(value, "chunked") {
			p.sawChunked = true
		}
	}
}
