// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors where the structured logger may not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// ExitCode maps err to a process exit status, writing the error to w
// unless it carries its own exit code. Errors implementing
// ExitCode() int exit silently with that code: the command has already
// reported the failure (or is propagating a sandboxed child's status).
func ExitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}

// Exit terminates the process with ExitCode(err, os.Stderr).
func Exit(err error) {
	os.Exit(ExitCode(err, os.Stderr))
}
