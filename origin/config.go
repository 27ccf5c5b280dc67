// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Configuration contract. The core consumes a pre-parsed Config object;
// the loader (and any embedded scripting language) that produces one is
// an external collaborator, out of scope here.

package origin

import "time"

// Tunables holds the per-server timeouts, limits, and socket options.
type Tunables struct {
	MaxReadIdle  time.Duration // idle timeout while reading a request
	MaxWriteIdle time.Duration // idle timeout while writing a response
	MaxKeepAlive time.Duration // idle timeout waiting for the next pipelined request
	Limits       Limits        // header size and count caps
	TCPNoDelay   bool
	TCPCork      bool
	WorkerCount  int // number of worker goroutine groups accepting connections
	MaxConnsPerWorker int64
}

// DefaultTunables mirrors conservative production defaults.
var DefaultTunables = Tunables{
	MaxReadIdle:       60 * time.Second,
	MaxWriteIdle:      60 * time.Second,
	MaxKeepAlive:      120 * time.Second,
	Limits:            DefaultLimits,
	TCPNoDelay:        true,
	WorkerCount:       4,
	MaxConnsPerWorker: 10000,
}

// ListenSpec names one bound endpoint.
type ListenSpec struct {
	Network string // "tcp", "unix"
	Address string
}

// Config is the pre-parsed configuration object the core consumes. An
// external loader (out of scope here) is responsible for producing one,
// typically from a config file plus its own scripting language.
type Config struct {
	Listen   []ListenSpec
	Tunables Tunables
	Handler  Handler // compiled handler pipeline
	Logger   Logger
}
