// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Header containers: an ordered vector of pairs plus a secondary
// lowercase-name index, both kept in sync, with a public API that
// preserves insertion order and supports append/overwrite/remove.

package origin

import "strings"

// RequestHeaderField is one (name, value) pair as received, before any
// copying: both name and value are ByteRefs into the connection's read
// buffer. Duplicate names are preserved in received order.
type RequestHeaderField struct {
	Name  ByteRef
	Value ByteRef
}

// RequestHeaders is the ordered, duplicate-preserving sequence of
// header fields on an incoming request.
type RequestHeaders struct {
	fields []RequestHeaderField
	index  map[string][]int // lowercase name -> indices into fields, insertion order
}

func (h *RequestHeaders) reset() {
	h.fields = h.fields[:0]
	for k := range h.index {
		delete(h.index, k)
	}
}

// Add appends a received header field, enforcing no ordering beyond
// arrival order.
func (h *RequestHeaders) Add(name, value ByteRef) {
	if h.index == nil {
		h.index = make(map[string][]int, 8)
	}
	key := strings.ToLower(name.String())
	h.index[key] = append(h.index[key], len(h.fields))
	h.fields = append(h.fields, RequestHeaderField{Name: name, Value: value})
}

// Len returns the number of received header fields.
func (h *RequestHeaders) Len() int { return len(h.fields) }

// At returns the i'th received header field in arrival order.
func (h *RequestHeaders) At(i int) RequestHeaderField { return h.fields[i] }

// Get returns the first value for name (case-insensitive), or a zero
// ByteRef and false if absent.
func (h *RequestHeaders) Get(name string) (ByteRef, bool) {
	idxs := h.index[strings.ToLower(name)]
	if len(idxs) == 0 {
		return EmptyRef, false
	}
	return h.fields[idxs[0]].Value, true
}

// GetAll returns every value for name (case-insensitive), in arrival
// order — used for headers like Cookie that may repeat.
func (h *RequestHeaders) GetAll(name string) []ByteRef {
	idxs := h.index[strings.ToLower(name)]
	if len(idxs) == 0 {
		return nil
	}
	out := make([]ByteRef, len(idxs))
	for i, idx := range idxs {
		out[i] = h.fields[idx].Value
	}
	return out
}

// Has reports whether name was received at least once.
func (h *RequestHeaders) Has(name string) bool { return len(h.index[strings.ToLower(name)]) > 0 }

// Walk visits every field in arrival order; stopping early if fn
// returns false.
func (h *RequestHeaders) Walk(fn func(name, value ByteRef) bool) {
	for _, f := range h.fields {
		if !fn(f.Name, f.Value) {
			return
		}
	}
}

// ResponseHeaderField is one owned (name, value) pair queued for the
// outgoing response.
type ResponseHeaderField struct {
	Name  string
	Value string
}

// ResponseHeaders is the ordered, case-insensitive-lookup header list
// for an outgoing response. Represented as an ordered slice plus a
// lowercase-name index kept in sync on every mutation.
type ResponseHeaders struct {
	fields []ResponseHeaderField
	index  map[string][]int
}

func (h *ResponseHeaders) ensure() {
	if h.index == nil {
		h.index = make(map[string][]int, 8)
	}
}

func (h *ResponseHeaders) reset() {
	h.fields = h.fields[:0]
	for k := range h.index {
		delete(h.index, k)
	}
}

// Append adds a new header entry unconditionally, even if name is
// already present. This is how multi-valued headers such as Set-Cookie
// are represented: one entry per value, one line per entry on the wire.
func (h *ResponseHeaders) Append(name, value string) {
	h.ensure()
	key := strings.ToLower(name)
	h.index[key] = append(h.index[key], len(h.fields))
	h.fields = append(h.fields, ResponseHeaderField{Name: name, Value: value})
}

// Set overwrites every existing entry for name with a single new
// entry. If name already had exactly one entry its position is kept;
// otherwise (zero or multiple prior entries) the single surviving
// entry is appended at the end.
func (h *ResponseHeaders) Set(name, value string) {
	h.ensure()
	key := strings.ToLower(name)
	if idxs := h.index[key]; len(idxs) == 1 {
		h.fields[idxs[0]].Value = value
		return
	} else if len(idxs) > 1 {
		h.removeIndices(idxs)
	}
	h.Append(name, value)
}

// Remove deletes every entry for name.
func (h *ResponseHeaders) Remove(name string) {
	key := strings.ToLower(name)
	idxs := h.index[key]
	if len(idxs) == 0 {
		return
	}
	h.removeIndices(idxs)
	delete(h.index, key)
}

func (h *ResponseHeaders) removeIndices(idxs []int) {
	drop := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		drop[i] = true
	}
	kept := h.fields[:0]
	for i, f := range h.fields {
		if !drop[i] {
			kept = append(kept, f)
		}
	}
	h.fields = kept
	h.rebuildIndex()
}

func (h *ResponseHeaders) rebuildIndex() {
	for k := range h.index {
		delete(h.index, k)
	}
	for i, f := range h.fields {
		key := strings.ToLower(f.Name)
		h.index[key] = append(h.index[key], i)
	}
}

// Get returns the first value for name (case-insensitive).
func (h *ResponseHeaders) Get(name string) (string, bool) {
	idxs := h.index[strings.ToLower(name)]
	if len(idxs) == 0 {
		return "", false
	}
	return h.fields[idxs[0]].Value, true
}

// Has reports whether name has at least one entry.
func (h *ResponseHeaders) Has(name string) bool { return len(h.index[strings.ToLower(name)]) > 0 }

// Len returns the number of header entries (counting repeats).
func (h *ResponseHeaders) Len() int { return len(h.fields) }

// Walk visits every entry in insertion order.
func (h *ResponseHeaders) Walk(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.Name, f.Value)
	}
}
