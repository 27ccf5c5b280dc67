// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Worker pool: a fixed set of workers, each holding a bounded set of
// connections.
//
// Grounded on hemi/web_http1_server.go's goroutine-per-connection
// serve() dispatch: each accepted connection gets its own goroutine,
// bounded per worker by a semaphore rather than a manual single
// event-loop thread, which is the idiomatic-Go rendering of an
// N-worker multi-reactor model.
package origin

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Worker owns a bounded set of connections. Every HttpConnection
// handed to a Worker is pinned to it for its whole lifetime; there is
// no cross-worker mutable state.
type Worker struct {
	index    int
	sem      *semaphore.Weighted
	wg       sync.WaitGroup
	handler  Handler
	tunables Tunables
	logger   Logger

	connCount int64
}

func newWorker(index int, handler Handler, tunables Tunables, logger Logger) *Worker {
	return &Worker{
		index:    index,
		sem:      semaphore.NewWeighted(tunables.MaxConnsPerWorker),
		handler:  handler,
		tunables: tunables,
		logger:   logger,
	}
}

// serve blocks accepting netConn onto this worker: it acquires a slot
// (blocking if the worker is at MaxConnsPerWorker), then runs the
// connection's lifecycle on the calling goroutine until it closes.
func (w *Worker) serve(id int64, netConn net.Conn, l *Listener) {
	if err := w.sem.Acquire(context.Background(), 1); err != nil {
		netConn.Close()
		return
	}
	atomic.AddInt64(&w.connCount, 1)
	w.wg.Add(1)
	defer w.wg.Done()
	defer w.sem.Release(1)

	if tc, ok := netConn.(*net.TCPConn); ok && w.tunables.TCPNoDelay {
		tc.SetNoDelay(true)
	}
	conn := newConnection(id, netConn, w, l, w.handler, w.tunables, w.logger)
	conn.serve()
}

// onConnClosed is invoked by HttpConnection.release once a connection
// has fully shut down.
func (w *Worker) onConnClosed(c *HttpConnection) {
	atomic.AddInt64(&w.connCount, -1)
}

// ConnCount reports how many connections this worker currently owns.
func (w *Worker) ConnCount() int64 { return atomic.LoadInt64(&w.connCount) }

// shutdown waits for every connection this worker owns to finish.
func (w *Worker) shutdown() { w.wg.Wait() }
