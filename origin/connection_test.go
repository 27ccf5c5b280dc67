// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

func testTunables() Tunables {
	tn := DefaultTunables
	tn.MaxReadIdle = 2 * time.Second
	tn.MaxWriteIdle = 2 * time.Second
	tn.MaxKeepAlive = 2 * time.Second
	return tn
}

func TestConnectionServesSimpleResponse(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	handler := HandlerFunc(func(conn *HttpConnection, req *HttpRequest) {
		req.SetStatus(StatusOK)
		req.Write([]byte("hi"))
		req.Finish()
	})

	conn := newConnection(1, server, nil, nil, handler, testTunables(), discardLogger{})
	done := make(chan struct{})
	go func() { conn.serve(); close(done) }()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	raw, err := io.ReadAll(client)
	require.NoError(t, err)

	reader := bufio.NewReader(strings.NewReader(string(raw)))
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, statusLine, "200")

	var headers []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		headers = append(headers, line)
	}
	joined := strings.Join(headers, "\n")
	assert.Contains(t, joined, "Transfer-Encoding: chunked")
	assert.Contains(t, joined, "Connection: close")

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "2\r\nhi\r\n0\r\n\r\n", string(rest))

	<-done
}

func TestConnectionMissingContentLengthOnPostIsRejected(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	dispatched := false
	handler := HandlerFunc(func(conn *HttpConnection, req *HttpRequest) {
		dispatched = true
	})

	conn := newConnection(2, server, nil, nil, handler, testTunables(), discardLogger{})
	done := make(chan struct{})
	go func() { conn.serve(); close(done) }()

	_, err := client.Write([]byte("POST /submit HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	require.NoError(t, err)

	raw, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "411")

	<-done
	assert.False(t, dispatched)
}

func TestConnectionHTTP10GetsContentLengthNotChunked(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	handler := HandlerFunc(func(conn *HttpConnection, req *HttpRequest) {
		req.Write([]byte("hello\n"))
		req.Finish()
	})

	conn := newConnection(4, server, nil, nil, handler, testTunables(), discardLogger{})
	done := make(chan struct{})
	go func() { conn.serve(); close(done) }()

	_, err := client.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	raw, err := io.ReadAll(client)
	require.NoError(t, err)
	<-done

	s := string(raw)
	assert.Contains(t, s, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, s, "Content-Length: 6\r\n")
	assert.Contains(t, s, "Connection: close\r\n")
	assert.NotContains(t, s, "Transfer-Encoding")
	assert.True(t, strings.HasSuffix(s, "hello\n"))
}

func TestConnectionUnexpectedBodyOnGetIsRejected(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	dispatched := false
	handler := HandlerFunc(func(conn *HttpConnection, req *HttpRequest) {
		dispatched = true
	})

	conn := newConnection(5, server, nil, nil, handler, testTunables(), discardLogger{})
	done := make(chan struct{})
	go func() { conn.serve(); close(done) }()

	_, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: h\r\nContent-Length: 3\r\n\r\nabc"))
	require.NoError(t, err)

	raw, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "400")

	<-done
	assert.False(t, dispatched)
}

func TestConnectionPipelinedRequestsBothAnswered(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	count := 0
	handler := HandlerFunc(func(conn *HttpConnection, req *HttpRequest) {
		count++
		req.SetStatus(StatusOK)
		req.Finish()
	})

	conn := newConnection(3, server, nil, nil, handler, testTunables(), discardLogger{})
	done := make(chan struct{})
	go func() { conn.serve(); close(done) }()

	req := "GET /a HTTP/1.1\r\nHost: h\r\n\r\n" + "GET /b HTTP/1.1\r\nHost: h\r\nConnection: close\r\n\r\n"
	_, err := client.Write([]byte(req))
	require.NoError(t, err)

	raw, err := io.ReadAll(client)
	require.NoError(t, err)
	<-done

	assert.Equal(t, 2, strings.Count(string(raw), "HTTP/1.1 200"))
	assert.Equal(t, 2, count)
}

// A handler that finishes synchronously drives resume->processInput back
// into the same goroutine while the Feed call that dispatched it is still
// on the stack. With enough pipelined requests in one read, a resume that
// re-entered Feed directly instead of deferring to the enclosing
// processInput loop would recurse once per request and eventually
// overflow the goroutine stack.
func TestConnectionManyPipelinedRequestsDoNotRecurse(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	const n = 500
	count := 0
	handler := HandlerFunc(func(conn *HttpConnection, req *HttpRequest) {
		count++
		req.SetStatus(StatusOK)
		req.Finish()
	})

	conn := newConnection(6, server, nil, nil, handler, testTunables(), discardLogger{})
	done := make(chan struct{})
	go func() { conn.serve(); close(done) }()

	var buf strings.Builder
	for i := 0; i < n-1; i++ {
		buf.WriteString("GET /x HTTP/1.1\r\nHost: h\r\n\r\n")
	}
	buf.WriteString("GET /last HTTP/1.1\r\nHost: h\r\nConnection: close\r\n\r\n")

	_, err := client.Write([]byte(buf.String()))
	require.NoError(t, err)

	raw, err := io.ReadAll(client)
	require.NoError(t, err)
	<-done

	assert.Equal(t, n, strings.Count(string(raw), "HTTP/1.1 200"))
	assert.Equal(t, n, count)
}
