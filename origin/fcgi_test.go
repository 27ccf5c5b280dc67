// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFCGIHeaderRoundTrip(t *testing.T) {
	h := fcgiHeader{version: fcgiVersion1, kind: fcgiTypeParams, requestID: fcgiRequestID, contentLength: 42, paddingLength: 3}
	enc := h.encode()
	assert.Equal(t, fcgiHeaderLen, len(enc))

	got := decodeFCGIHeader(enc[:])
	assert.Equal(t, h, got)
}

func TestFCGIBeginRequestBody(t *testing.T) {
	body := fcgiBeginRequestBody(true)
	assert.Equal(t, byte(0), body[0])
	assert.Equal(t, byte(fcgiRoleResponder), body[1])
	assert.Equal(t, byte(fcgiKeepConn), body[2])

	body = fcgiBeginRequestBody(false)
	assert.Equal(t, byte(0), body[2])
}

func TestFCGIEndRequestBody(t *testing.T) {
	raw := []byte{0, 0, 0, 7, fcgiStatusRequestComplete, 0, 0, 0}
	appStatus, protocolStatus := fcgiEndRequestBody(raw)
	assert.EqualValues(t, 7, appStatus)
	assert.Equal(t, byte(fcgiStatusRequestComplete), protocolStatus)
}

func TestAppendFCGILenShortAndLongForms(t *testing.T) {
	buf := Get4K()
	defer buf.Release()

	appendFCGILen(buf, 10)
	assert.Equal(t, []byte{10}, buf.Bytes())

	buf.Clear()
	appendFCGILen(buf, 300)
	got := buf.Bytes()
	require.Len(t, got, 4)
	assert.NotZero(t, got[0]&0x80)
}

func TestAppendFCGIRecordFramesPayload(t *testing.T) {
	buf := Get4K()
	defer buf.Release()

	appendFCGIRecord(buf, fcgiTypeStdin, []byte("hello"))
	data := buf.Bytes()
	require.Len(t, data, fcgiHeaderLen+5)

	h := decodeFCGIHeader(data[:fcgiHeaderLen])
	assert.Equal(t, byte(fcgiTypeStdin), h.kind)
	assert.EqualValues(t, 5, h.contentLength)
	assert.Equal(t, "hello", string(data[fcgiHeaderLen:]))
}

func TestBuildFCGIParamsIncludesStandardMetaVariables(t *testing.T) {
	var req HttpRequest
	req.reset(nil)
	req.Method = NewByteRef([]byte("GET"))
	req.URI = NewByteRef([]byte("/index.php?x=1"))
	req.decodeURI()
	req.Hostname = "example.com"
	req.Headers.Add(NewByteRef([]byte("User-Agent")), NewByteRef([]byte("test-agent")))
	req.Headers.Add(NewByteRef([]byte("Content-Length")), NewByteRef([]byte("0")))

	buf := Get16K()
	defer buf.Release()
	buildFCGIParams(buf, &req, "/var/www/index.php", "/var/www", "127.0.0.1:9000", "10.0.0.1:5555")

	raw := string(buf.Bytes())
	assert.Contains(t, raw, "SCRIPT_FILENAME")
	assert.Contains(t, raw, "/var/www/index.php")
	assert.Contains(t, raw, "REQUEST_METHOD")
	assert.Contains(t, raw, "QUERY_STRING")
	assert.Contains(t, raw, "HTTP_USER_AGENT")
	assert.Contains(t, raw, "test-agent")
	assert.NotContains(t, raw, "HTTP_CONTENT_LENGTH") // re-sent as the CGI meta-variable, not HTTP_*
}

func TestHTTPParamName(t *testing.T) {
	assert.Equal(t, "HTTP_USER_AGENT", httpParamName("user-agent"))
	assert.Equal(t, "HTTP_X_FORWARDED_FOR", httpParamName("x-forwarded-for"))
}

func TestParseCGIStatus(t *testing.T) {
	assert.Equal(t, 404, parseCGIStatus([]byte("404 Not Found")))
	assert.Equal(t, StatusOK, parseCGIStatus([]byte("garbage")))
}

func TestCGIStdoutParserSplitsHeadersFromBody(t *testing.T) {
	var conn HttpConnection
	var req HttpRequest
	req.reset(&conn)

	p := &cgiStdoutParser{req: &req}
	require.NoError(t, p.feed([]byte("Content-Type: text/plain\r\nStatus: 201 Created\r\n\r\nbody-")))
	require.NoError(t, p.feed([]byte("bytes")))

	assert.Equal(t, 201, req.Status())
	ct, ok := req.ResponseHeaders().Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "text/plain", ct)
}

func TestCGIStdoutParserDefaultsToOKWithoutStatus(t *testing.T) {
	var conn HttpConnection
	var req HttpRequest
	req.reset(&conn)

	p := &cgiStdoutParser{req: &req}
	require.NoError(t, p.feed([]byte("Content-Type: text/html\r\n\r\nhi")))
	assert.Equal(t, StatusOK, req.Status())
}

func TestCGIStdoutParserBareLocationDefaultsTo302(t *testing.T) {
	var conn HttpConnection
	var req HttpRequest
	req.reset(&conn)

	p := &cgiStdoutParser{req: &req}
	require.NoError(t, p.feed([]byte("Location: /elsewhere\r\n\r\n")))

	assert.Equal(t, StatusFound, req.Status())
	loc, ok := req.ResponseHeaders().Get("location")
	assert.True(t, ok)
	assert.Equal(t, "/elsewhere", loc)
}

func TestCGIStdoutParserExplicitStatusOverridesLocationDefault(t *testing.T) {
	var conn HttpConnection
	var req HttpRequest
	req.reset(&conn)

	p := &cgiStdoutParser{req: &req}
	require.NoError(t, p.feed([]byte("Status: 201 Created\r\nLocation: /elsewhere\r\n\r\n")))

	assert.Equal(t, 201, req.Status())
}
