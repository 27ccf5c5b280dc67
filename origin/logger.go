// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Ambient logging. Grounded on hemi/mix_logger.go's Logger interface
// (Log/Logln/Logf/Close) and named-backend registration, backed by
// log/slog rather than a hand-rolled sink since it's the structured
// logging option already in reach without adding a new dependency.

package origin

import (
	"log/slog"
	"os"
)

// Logger is the logging surface every origin component writes
// through. The default implementation wraps log/slog; a caller may
// substitute any Logger (e.g. to fan out to a file, per the teacher's
// LogConfig.target).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

// stdLogger is the process-wide default, used wherever a component is
// not given an explicit Logger (e.g. BugExitln, which fires before any
// per-connection context exists).
var stdLogger Logger = slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, nil))}

// NewSlogLogger adapts an existing *slog.Logger.
func NewSlogLogger(l *slog.Logger) Logger { return slogLogger{l: l} }

// SetDefaultLogger replaces the process-wide default logger.
func SetDefaultLogger(l Logger) { stdLogger = l }
