// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"strings"
)

// Result is the outcome of a command that was started. A non-zero
// ExitCode is not an error from Run; callers classify it, usually with
// Check.
type Result struct {
	// Command is the command as requested, without launcher prefixes.
	Command []string

	// ExitCode is the child's exit status, or -1 when it was killed by
	// a signal.
	ExitCode int

	// Stdout and Stderr hold captured output when the invocation asked
	// for it.
	Stdout []byte
	Stderr []byte
}

// Success reports a zero exit status.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Check returns a *CommandError for a non-zero exit status.
func (r *Result) Check() error {
	if r.Success() {
		return nil
	}
	return &CommandError{
		Command:  r.Command,
		ExitCode: r.ExitCode,
		Stderr:   strings.TrimSpace(string(r.Stderr)),
	}
}

// CommandError reports an external command that exited non-zero,
// carrying the tool's own diagnostic output.
type CommandError struct {
	Command  []string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	name := "command"
	if len(e.Command) > 0 {
		name = strings.Join(e.Command, " ")
	}
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", name, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", name, e.ExitCode, e.Stderr)
}
