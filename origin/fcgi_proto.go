// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// FastCGI wire protocol.
//
// Grounded on hemi/web_fcgi_proto.go's record layout constants
// (fcgiHeaderSize, the request-id-always-1 simplification for a
// non-multiplexing client, and the discrete-vs-streamed record
// convention) and hemi/web_fcgi_backend.go's `_addParam`/`_growParams`
// length-prefix encoding.
package origin

import "encoding/binary"

const (
	fcgiVersion1 = 1

	fcgiHeaderLen = 8

	fcgiTypeBeginRequest    = 1
	fcgiTypeAbortRequest    = 2
	fcgiTypeEndRequest      = 3
	fcgiTypeParams          = 4
	fcgiTypeStdin           = 5
	fcgiTypeStdout          = 6
	fcgiTypeStderr          = 7
	fcgiTypeGetValues       = 9
	fcgiTypeGetValuesResult = 10
	fcgiTypeUnknownType     = 11

	fcgiRoleResponder = 1

	fcgiKeepConn = 1

	fcgiStatusRequestComplete = 0
	fcgiStatusCantMultiplex   = 1
	fcgiStatusOverloaded      = 2
	fcgiStatusUnknownRole     = 3

	// This transport does not multiplex; every record uses request id
	// 1, matching the teacher's own simplifying assumption.
	fcgiRequestID = 1
)

// fcgiHeader is the 8-byte record header preceding every record's
// payload and padding.
type fcgiHeader struct {
	version       byte
	kind          byte
	requestID     uint16
	contentLength uint16
	paddingLength byte
	reserved      byte
}

func (h fcgiHeader) encode() [fcgiHeaderLen]byte {
	var b [fcgiHeaderLen]byte
	b[0] = h.version
	b[1] = h.kind
	binary.BigEndian.PutUint16(b[2:4], h.requestID)
	binary.BigEndian.PutUint16(b[4:6], h.contentLength)
	b[6] = h.paddingLength
	b[7] = h.reserved
	return b
}

func decodeFCGIHeader(b []byte) fcgiHeader {
	return fcgiHeader{
		version:       b[0],
		kind:          b[1],
		requestID:     binary.BigEndian.Uint16(b[2:4]),
		contentLength: binary.BigEndian.Uint16(b[4:6]),
		paddingLength: b[6],
		reserved:      b[7],
	}
}

// fcgiBeginRequestBody is the 8-byte BeginRequest payload.
func fcgiBeginRequestBody(keepConn bool) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint16(b[0:2], fcgiRoleResponder)
	if keepConn {
		b[2] = fcgiKeepConn
	}
	return b
}

// fcgiEndRequestBody decodes the 8-byte EndRequest payload.
func fcgiEndRequestBody(b []byte) (appStatus uint32, protocolStatus byte) {
	return binary.BigEndian.Uint32(b[0:4]), b[4]
}

// appendFCGIRecord appends one full record (header + payload, no
// padding) for kind to dst.
func appendFCGIRecord(dst *Buffer, kind byte, payload []byte) {
	if len(payload) > 0xffff {
		payload = payload[:0xffff] // callers chunk larger payloads themselves
	}
	h := fcgiHeader{version: fcgiVersion1, kind: kind, requestID: fcgiRequestID, contentLength: uint16(len(payload))}
	head := h.encode()
	dst.Append(head[:])
	dst.Append(payload)
}

// appendFCGILen encodes one FastCGI name/value length field: one byte
// if n < 128, else four bytes with the high bit of the first byte set.
func appendFCGILen(dst *Buffer, n int) {
	if n < 128 {
		dst.Append([]byte{byte(n)})
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n)|0x80000000)
	dst.Append(b[:])
}
