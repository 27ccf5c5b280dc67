// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// CGI environment params.
//
// Grounded on hemi/web_fcgi_backend.go's `_addParam`/`_addHTTPParam`:
// the standard CGI/1.1 meta-variables plus one `HTTP_<NAME>` param per
// received request header, uppercased with '-' mapped to '_'.
package origin

import "strings"

// buildFCGIParams appends every length-prefixed name/value pair FastCGI
// needs to run req as a Responder request. scriptFilename is
// the absolute path to the script on the backend's filesystem; it and
// documentRoot are supplied by the caller, since the mapping from URL
// path to filesystem path is a handler-pipeline concern out of this
// core's scope.
func buildFCGIParams(dst *Buffer, req *HttpRequest, scriptFilename, documentRoot string, serverAddr, remoteAddr string) {
	addParam := func(name, value string) {
		appendFCGILen(dst, len(name))
		appendFCGILen(dst, len(value))
		dst.Append(ConstBytes(name))
		dst.Append(ConstBytes(value))
	}

	addParam("GATEWAY_INTERFACE", "CGI/1.1")
	addParam("SERVER_SOFTWARE", "origind")
	addParam("SERVER_PROTOCOL", "HTTP/1.1")
	addParam("REQUEST_METHOD", req.Method.String())
	addParam("REQUEST_URI", req.URI.String())
	addParam("SCRIPT_NAME", req.Path.String())
	addParam("SCRIPT_FILENAME", scriptFilename)
	addParam("DOCUMENT_ROOT", documentRoot)
	if !req.Query.IsEmpty() {
		addParam("QUERY_STRING", req.Query.String())
	} else {
		addParam("QUERY_STRING", "")
	}
	if req.PathInfo != "" {
		addParam("PATH_INFO", req.PathInfo)
	}
	addParam("SERVER_NAME", req.Hostname)
	addParam("SERVER_ADDR", serverAddr)
	addParam("REMOTE_ADDR", remoteAddr)
	if req.Username != "" {
		addParam("REMOTE_USER", req.Username)
	}
	if v, ok := req.Headers.Get("content-length"); ok {
		addParam("CONTENT_LENGTH", v.String())
	}
	if v, ok := req.Headers.Get("content-type"); ok {
		addParam("CONTENT_TYPE", v.String())
	}

	req.Headers.Walk(func(name, value ByteRef) bool {
		lower := strings.ToLower(name.String())
		if lower == "content-length" || lower == "content-type" {
			return true // already sent as CGI meta-variables above, not HTTP_*
		}
		addParam(httpParamName(lower), value.String())
		return true
	})
}

// httpParamName renders "user-agent" as "HTTP_USER_AGENT", the CGI/1.1
// convention for re-encoding request headers into environment params.
func httpParamName(lowerName string) string {
	var b strings.Builder
	b.Grow(len(lowerName) + 5)
	b.WriteString("HTTP_")
	for i := 0; i < len(lowerName); i++ {
		c := lowerName[i]
		switch {
		case c == '-':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z':
			b.WriteByte(c - 'a' + 'A')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
