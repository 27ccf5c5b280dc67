// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMessage struct {
	method, uri      string
	versionMajor, minor int
	headers          [][2]string
	body             []byte
	ended            bool
}

func collectingParser(mode Mode, msgs *[]*recordedMessage) *Parser {
	var cur *recordedMessage
	return NewParser(mode, DefaultLimits, Callbacks{
		OnMessageBegin: func(method, uri ByteRef, vmaj, vmin int) bool {
			cur = &recordedMessage{method: method.String(), uri: uri.String(), versionMajor: vmaj, minor: vmin}
			return true
		},
		OnMessageHeader: func(name, value ByteRef) bool {
			if cur == nil {
				cur = &recordedMessage{}
			}
			cur.headers = append(cur.headers, [2]string{name.String(), value.String()})
			return true
		},
		OnMessageHeaderEnd: func() bool { return true },
		OnMessageContent: func(chunk ByteRef) bool {
			if !chunk.IsEmpty() {
				cur.body = append(cur.body, chunk.Bytes()...)
			}
			return true
		},
		OnMessageEnd: func() bool {
			cur.ended = true
			*msgs = append(*msgs, cur)
			cur = nil
			return true
		},
	})
}

func TestParserSingleRequestWholeBuffer(t *testing.T) {
	var msgs []*recordedMessage
	p := collectingParser(ModeRequest, &msgs)

	raw := []byte("GET /foo?bar=1 HTTP/1.1\r\nHost: example.com\r\nContent-Length: 0\r\n\r\n")
	consumed, err := p.Feed(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), consumed)
	require.Len(t, msgs, 1)
	assert.Equal(t, "GET", msgs[0].method)
	assert.Equal(t, "/foo?bar=1", msgs[0].uri)
	assert.Equal(t, 1, msgs[0].versionMajor)
	assert.Equal(t, 1, msgs[0].minor)
	assert.True(t, msgs[0].ended)
}

// TestParserByteAtATime verifies the chunking-independence property: the
// same message fed one byte per Feed call yields the same parsed result
// as feeding it whole.
func TestParserByteAtATime(t *testing.T) {
	var msgs []*recordedMessage
	p := collectingParser(ModeRequest, &msgs)

	raw := []byte("POST /submit HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\n\r\nhello")
	var pending []byte
	for i := 0; i < len(raw); i++ {
		pending = append(pending, raw[i])
		consumed, err := p.Feed(pending)
		require.NoError(t, err)
		pending = pending[consumed:]
	}
	require.Len(t, msgs, 1)
	assert.Equal(t, "POST", msgs[0].method)
	assert.Equal(t, []byte("hello"), msgs[0].body)
}

// TestParserPipelining verifies two requests arriving back to back in one
// Feed call are each fully recognized, in order.
func TestParserPipelining(t *testing.T) {
	var msgs []*recordedMessage
	p := collectingParser(ModeRequest, &msgs)

	raw := []byte("GET /a HTTP/1.1\r\nHost: h\r\n\r\nGET /b HTTP/1.1\r\nHost: h\r\n\r\n")
	consumed, err := p.Feed(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), consumed)
	require.Len(t, msgs, 2)
	assert.Equal(t, "/a", msgs[0].uri)
	assert.Equal(t, "/b", msgs[1].uri)
}

func TestParserChunkedBody(t *testing.T) {
	var msgs []*recordedMessage
	p := collectingParser(ModeRequest, &msgs)

	raw := []byte("POST /up HTTP/1.1\r\nHost: h\r\nTransfer-Encoding: chunked\r\n\r\n4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n")
	consumed, err := p.Feed(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), consumed)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("Wikipedia"), msgs[0].body)
}

func TestParserMalformedRequestLine(t *testing.T) {
	var msgs []*recordedMessage
	p := collectingParser(ModeRequest, &msgs)

	_, err := p.Feed([]byte("BAD REQUEST LINE\r\n\r\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParserHeaderTooLarge(t *testing.T) {
	var msgs []*recordedMessage
	limits := Limits{MaxHeaderLineSize: 16, MaxHeaderCount: 100}
	p := NewParser(ModeRequest, limits, Callbacks{
		OnMessageBegin:     func(ByteRef, ByteRef, int, int) bool { return true },
		OnMessageHeader:    func(ByteRef, ByteRef) bool { return true },
		OnMessageHeaderEnd: func() bool { return true },
		OnMessageContent:   func(ByteRef) bool { return true },
		OnMessageEnd:       func() bool { return true },
	})
	_ = msgs
	raw := []byte("GET / HTTP/1.1\r\nX-Long-Header: this-value-is-far-too-long-for-the-limit\r\n\r\n")
	_, err := p.Feed(raw)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestParserMessageModeHasNoRequestLine(t *testing.T) {
	var headers [][2]string
	var bodyOut []byte
	p := NewParser(ModeMessage, DefaultLimits, Callbacks{
		OnMessageHeader: func(name, value ByteRef) bool {
			headers = append(headers, [2]string{name.String(), value.String()})
			return true
		},
		OnMessageHeaderEnd: func() bool { return true },
		OnMessageContent: func(chunk ByteRef) bool {
			if !chunk.IsEmpty() {
				bodyOut = append(bodyOut, chunk.Bytes()...)
			}
			return true
		},
		OnMessageEnd: func() bool { return true },
	})
	raw := []byte("Status: 404 Not Found\r\nContent-Type: text/plain\r\n\r\nnot found")
	consumed, err := p.Feed(raw)
	require.NoError(t, err)
	assert.Less(t, consumed, len(raw)) // unframed tail beyond the header block is left for the caller
	require.Len(t, headers, 2)
	assert.Equal(t, "Status", headers[0][0])
}
