// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Listener and Server: the accept loop and the round-robin handoff of
// accepted sockets to a fixed pool of workers.
package origin

import (
	"context"
	"net"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Listener accepts sockets on one bound endpoint and hands each,
// round-robin, to one of a Server's workers.
type Listener struct {
	spec      ListenSpec
	netListen net.Listener
	server    *Server
}

func (l *Listener) acceptLoop(ctx context.Context) error {
	defer l.netListen.Close()
	go func() {
		<-ctx.Done()
		l.netListen.Close()
	}()
	for {
		netConn, err := l.netListen.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		id := atomic.AddInt64(&l.server.nextConnID, 1)
		w := l.server.nextWorker()
		go w.serve(id, netConn, l)
	}
}

// Server owns the full set of listeners and workers described by a
// Config.
type Server struct {
	workers  []*Worker
	listens  []*Listener
	rrCursor int64

	nextConnID int64
}

// NewServer builds workers and binds every listen endpoint in cfg. It
// does not start accepting connections until Serve is called.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = stdLogger
	}
	workerCount := cfg.Tunables.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	s := &Server{}
	for i := 0; i < workerCount; i++ {
		s.workers = append(s.workers, newWorker(i, cfg.Handler, cfg.Tunables, logger))
	}
	for _, spec := range cfg.Listen {
		netListen, err := net.Listen(spec.Network, spec.Address)
		if err != nil {
			s.closeListeners()
			return nil, err
		}
		s.listens = append(s.listens, &Listener{spec: spec, netListen: netListen, server: s})
	}
	return s, nil
}

func (s *Server) nextWorker() *Worker {
	i := atomic.AddInt64(&s.rrCursor, 1)
	return s.workers[int(i)%len(s.workers)]
}

func (s *Server) closeListeners() {
	for _, l := range s.listens {
		l.netListen.Close()
	}
}

// Serve runs every listener's accept loop until ctx is cancelled or
// one of them fails, then waits for in-flight connections to drain.
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range s.listens {
		l := l
		g.Go(func() error { return l.acceptLoop(gctx) })
	}
	err := g.Wait()
	for _, w := range s.workers {
		w.shutdown()
	}
	return err
}

// ConnCount sums the connections currently owned across all workers.
func (s *Server) ConnCount() int64 {
	var total int64
	for _, w := range s.workers {
		total += w.ConnCount()
	}
	return total
}
