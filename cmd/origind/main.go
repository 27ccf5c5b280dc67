// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// origind is a minimal example process wiring the origin package's
// core into a runnable HTTP/1.1 + FastCGI origin server. Everything
// past flag parsing — a config file format, an embedded scripting
// language, process daemonization — is left to the caller; this binary
// exists to exercise the core end to end.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/originhttp/origind/origin"
)

func main() {
	var (
		listenAddr   = flag.String("listen", ":8080", "comma-separated list of tcp addresses to listen on")
		fcgiNetwork  = flag.String("fcgi-network", "", "if set, proxy every request to a FastCGI backend over this network (tcp or unix)")
		fcgiAddress  = flag.String("fcgi-address", "", "FastCGI backend address")
		documentRoot = flag.String("document-root", ".", "document root passed to the FastCGI backend")
		workers      = flag.Int("workers", 4, "number of worker goroutine groups")
		maxReadIdle  = flag.Duration("max-read-idle", 60*time.Second, "idle read timeout while reading a request")
		maxWriteIdle = flag.Duration("max-write-idle", 60*time.Second, "idle write timeout while a response is pending")
		maxKeepAlive = flag.Duration("max-keep-alive", 120*time.Second, "idle timeout between pipelined requests")
	)
	flag.Parse()

	logger := origin.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	origin.SetDefaultLogger(logger)

	var handler origin.Handler
	if *fcgiNetwork != "" {
		handler = origin.NewFCGIHandler(origin.FCGIConfig{
			Network:      *fcgiNetwork,
			Address:      *fcgiAddress,
			KeepConn:     false,
			DocumentRoot: *documentRoot,
		})
	} else {
		handler = origin.HandlerFunc(func(conn *origin.HttpConnection, req *origin.HttpRequest) {
			req.SetStatus(origin.StatusNotFound)
			req.Finish()
		})
	}

	tunables := origin.DefaultTunables
	tunables.WorkerCount = *workers
	tunables.MaxReadIdle = *maxReadIdle
	tunables.MaxWriteIdle = *maxWriteIdle
	tunables.MaxKeepAlive = *maxKeepAlive

	cfg := origin.Config{
		Listen:   parseListenSpecs(*listenAddr),
		Tunables: tunables,
		Handler:  handler,
		Logger:   logger,
	}

	server, err := origin.NewServer(cfg)
	if err != nil {
		logger.Error("failed to start listeners", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("origind starting", "listen", *listenAddr, "workers", *workers)
	if err := server.Serve(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func parseListenSpecs(addrs string) []origin.ListenSpec {
	var specs []origin.ListenSpec
	for _, a := range strings.Split(addrs, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		specs = append(specs, origin.ListenSpec{Network: "tcp", Address: a})
	}
	return specs
}
