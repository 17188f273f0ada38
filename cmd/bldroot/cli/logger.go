// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// DebugEnvironmentVariable enables debug logging when set to any
// non-empty value.
const DebugEnvironmentVariable = "BLDROOT_DEBUG"

// NewCommandLogger creates a structured logger for CLI command
// operations. When stderr is a terminal it writes slog text; when
// stderr is piped or redirected it writes JSON lines. verbose (or
// BLDROOT_DEBUG) lowers the level to debug, which includes every
// command line run in the build root.
func NewCommandLogger(verbose bool) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), verbose)
}

func newLogger(w io.Writer, terminal, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || os.Getenv(DebugEnvironmentVariable) != "" {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}
