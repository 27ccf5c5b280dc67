// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestHeadersCaseInsensitiveGet(t *testing.T) {
	var h RequestHeaders
	h.Add(NewByteRef([]byte("Content-Type")), NewByteRef([]byte("text/plain")))

	v, ok := h.Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "text/plain", v.String())
	assert.True(t, h.Has("CONTENT-TYPE"))
}

func TestRequestHeadersPreservesDuplicates(t *testing.T) {
	var h RequestHeaders
	h.Add(NewByteRef([]byte("Cookie")), NewByteRef([]byte("a=1")))
	h.Add(NewByteRef([]byte("Cookie")), NewByteRef([]byte("b=2")))

	all := h.GetAll("cookie")
	assert.Len(t, all, 2)
	assert.Equal(t, "a=1", all[0].String())
	assert.Equal(t, "b=2", all[1].String())
	assert.Equal(t, 2, h.Len())
}

func TestRequestHeadersReset(t *testing.T) {
	var h RequestHeaders
	h.Add(NewByteRef([]byte("X")), NewByteRef([]byte("y")))
	h.reset()
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Has("x"))
}

func TestResponseHeadersSetOverwritesSingle(t *testing.T) {
	var h ResponseHeaders
	h.Set("Content-Type", "text/html")
	h.Set("Content-Type", "application/json")

	v, ok := h.Get("content-type")
	assert.True(t, ok)
	assert.Equal(t, "application/json", v)
	assert.Equal(t, 1, h.Len())
}

func TestResponseHeadersAppendKeepsMultiple(t *testing.T) {
	var h ResponseHeaders
	h.Append("Set-Cookie", "a=1")
	h.Append("Set-Cookie", "b=2")

	assert.Equal(t, 2, h.Len())
	var values []string
	h.Walk(func(name, value string) {
		if name == "Set-Cookie" {
			values = append(values, value)
		}
	})
	assert.Equal(t, []string{"a=1", "b=2"}, values)
}

func TestResponseHeadersRemove(t *testing.T) {
	var h ResponseHeaders
	h.Append("X-A", "1")
	h.Append("X-B", "2")
	h.Remove("x-a")

	assert.False(t, h.Has("X-A"))
	assert.True(t, h.Has("X-B"))
	assert.Equal(t, 1, h.Len())
}

func TestResponseHeadersSetAfterMultipleAppendsCollapses(t *testing.T) {
	var h ResponseHeaders
	h.Append("Set-Cookie", "a=1")
	h.Append("Set-Cookie", "b=2")
	h.Set("Set-Cookie", "c=3")

	assert.Equal(t, 1, h.Len())
	v, ok := h.Get("set-cookie")
	assert.True(t, ok)
	assert.Equal(t, "c=3", v)
}
