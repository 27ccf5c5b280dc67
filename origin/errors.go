// Copyright (c) 2020-2026 The origind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Fatal-invariant handling, grounded on the teacher's BugExitln
// convention (used throughout hemi, e.g. hemi/web_fcgi_backend.go's
// `BugExitln("fcgi: from != edge")`).

package origin

import (
	"fmt"
	"os"
	"runtime/debug"
)

// BugExitln reports a broken invariant and terminates the process. This
// core runs one connection per goroutine with no per-worker OS process
// to isolate a failure to, so a broken invariant takes the whole
// process down rather than risk corrupting shared state silently.
func BugExitln(v ...any) {
	msg := fmt.Sprintln(v...)
	stdLogger.Error("bug", "msg", msg, "stack", string(debug.Stack()))
	os.Exit(2)
}

// BugExitf is BugExitln with printf-style formatting.
func BugExitf(format string, v ...any) {
	BugExitln(fmt.Sprintf(format, v...))
}
