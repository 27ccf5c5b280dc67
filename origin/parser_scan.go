// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import "bytes"

// scanToken reads a run of tchar bytes terminated by sep. It reports
// ok=false if sep has not yet appeared in data (need more input), or an
// error if a non-tchar, non-sep byte is found, per the RFC 7230
// token/ctl/tspecial character classes.
func scanToken(data []byte, sep byte) (n int, tok []byte, ok bool, err error) {
	for i, c := range data {
		if c == sep {
			if i == 0 {
				return 0, nil, false, ErrMalformed
			}
			return i + 1, data[:i], true, nil
		}
		if !isTchar(c) {
			return 0, nil, false, ErrMalformed
		}
	}
	return 0, nil, false, nil
}

// scanURI reads the request-target up to the next space. The URI is
// treated as an opaque byte run here; decoding into path/query happens
// later, in-place, using the ByteRef write-cursor. Only ctl bytes and
// the separating space are special.
func scanURI(data []byte) (n int, uri []byte, ok bool, err error) {
	for i, c := range data {
		if c == ' ' {
			if i == 0 {
				return 0, nil, false, ErrMalformed
			}
			return i + 1, data[:i], true, nil
		}
		if isCtl(c) {
			return 0, nil, false, ErrMalformed
		}
	}
	return 0, nil, false, nil
}

// scanVersion reads "HTTP/major.minor" followed by CRLF-terminating
// whitespace is not consumed here; scanCRLF handles that separately.
func scanVersion(data []byte) (n, major, minor int, ok bool, err error) {
	const prefix = "HTTP/"
	if len(data) < len(prefix) {
		if !bytes.HasPrefix([]byte(prefix), data) {
			return 0, 0, 0, false, ErrMalformed
		}
		return 0, 0, 0, false, nil
	}
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return 0, 0, 0, false, ErrMalformed
	}
	i := len(prefix)
	if i >= len(data) || data[i] < '0' || data[i] > '9' {
		if i >= len(data) {
			return 0, 0, 0, false, nil
		}
		return 0, 0, 0, false, ErrMalformed
	}
	major = int(data[i] - '0')
	i++
	if i >= len(data) {
		return 0, 0, 0, false, nil
	}
	if data[i] != '.' {
		return 0, 0, 0, false, ErrMalformed
	}
	i++
	if i >= len(data) {
		return 0, 0, 0, false, nil
	}
	if data[i] < '0' || data[i] > '9' {
		return 0, 0, 0, false, ErrMalformed
	}
	minor = int(data[i] - '0')
	i++
	return i, major, minor, true, nil
}

// scanCRLF consumes exactly "\r\n". A bare "\n" is tolerated as a
// lenient line ending, matching common origin-server practice.
func scanCRLF(data []byte) (n int, ok bool, err error) {
	if len(data) == 0 {
		return 0, false, nil
	}
	if data[0] == '\n' {
		return 1, true, nil
	}
	if data[0] != '\r' {
		return 0, false, ErrMalformed
	}
	if len(data) < 2 {
		return 0, false, nil
	}
	if data[1] != '\n' {
		return 0, false, ErrMalformed
	}
	return 2, true, nil
}

// scanHeaderLine reads one header field line: "Name:  value  \r\n", or
// reports blank=true for the empty line terminating the header block.
// name and value are trimmed of leading/trailing OWS per RFC 7230
// §3.2. maxSize bounds the combined name+value length.
func scanHeaderLine(data []byte, maxSize int) (n int, name, value []byte, blank bool, ok bool, err error) {
	idx := indexCRLF(data)
	if idx < 0 {
		if maxSize > 0 && len(data) > maxSize {
			return 0, nil, nil, false, false, ErrHeaderTooLarge
		}
		return 0, nil, nil, false, false, nil
	}
	line := data[:idx]
	total := idx + crlfLen(data, idx)
	if len(line) == 0 {
		return total, nil, nil, true, true, nil
	}
	colon := bytes.IndexByte(line, ':')
	if colon <= 0 {
		return 0, nil, nil, false, false, ErrMalformed
	}
	rawName := line[:colon]
	for _, c := range rawName {
		if !isTchar(c) {
			return 0, nil, nil, false, false, ErrMalformed
		}
	}
	rawValue := trimOWS(line[colon+1:])
	if maxSize > 0 && len(rawName)+len(rawValue) > maxSize {
		return 0, nil, nil, false, false, ErrHeaderTooLarge
	}
	return total, rawName, rawValue, false, true, nil
}

// scanChunkSizeLine reads "<hex-size>[;ext...]\r\n" (RFC 7230 §4.1).
func scanChunkSizeLine(data []byte) (n int, size int64, ok bool, err error) {
	idx := indexCRLF(data)
	if idx < 0 {
		return 0, 0, false, nil
	}
	line := data[:idx]
	total := idx + crlfLen(data, idx)
	hexPart := line
	if semi := bytes.IndexByte(line, ';'); semi >= 0 {
		hexPart = line[:semi]
	}
	if len(hexPart) == 0 {
		return 0, 0, false, ErrMalformed
	}
	n64, ok2 := NewByteRef(hexPart).ParseHex()
	if !ok2 || n64 < 0 {
		return 0, 0, false, ErrMalformed
	}
	return total, n64, true, nil
}

func indexCRLF(data []byte) int {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		if i > 0 && data[i-1] == '\r' {
			return i - 1
		}
		return i
	}
	return -1
}

func crlfLen(data []byte, idx int) int {
	if idx < len(data) && data[idx] == '\r' {
		return 2
	}
	return 1
}

func trimOWS(p []byte) []byte {
	for len(p) > 0 && isSP(p[0]) {
		p = p[1:]
	}
	for len(p) > 0 && isSP(p[len(p)-1]) {
		p = p[:len(p)-1]
	}
	return p
}

func equalFoldBytes(p []byte, s string) bool { return bytes.EqualFold(p, ConstBytes(s)) }

func parseDecimal(p []byte) (int64, bool) { return NewByteRef(p).ParseInt() }

// containsTokenFold reports whether value contains name as a
// comma-separated, case-insensitive token (used for Transfer-Encoding).
func containsTokenFold(value []byte, name string) bool {
	for _, part := range bytes.Split(value, []byte(",")) {
		if equalFoldBytes(trimOWS(part), name) {
			return true
		}
	}
	return false
}
