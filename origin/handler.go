// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Handler pipeline contract. Per-request handler plugins (directory
// listing, CGI, status pages, auth, logging, aliasing, compression)
// other than FastCGI are external collaborators, out of scope; this
// interface is the only contract this core exchanges with them.

package origin

// Handler serves one HttpRequest on conn. It must eventually call
// req.Finish; the connection's output drain does not proceed until it
// does.
type Handler interface {
	ServeHTTP(conn *HttpConnection, req *HttpRequest)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(conn *HttpConnection, req *HttpRequest)

func (f HandlerFunc) ServeHTTP(conn *HttpConnection, req *HttpRequest) { f(conn, req) }
