// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"io"
)

// ErrInvalidInvocation wraps every Invocation validation failure.
var ErrInvalidInvocation = errors.New("invalid invocation")

// ErrBootstrapNotInstalled is returned when a sandboxed command is
// requested against a root that has no shell yet.
var ErrBootstrapNotInstalled = errors.New("bootstrap not installed, can't continue")

// Invocation is a one-shot request to run a command. The zero value of
// every flag selects the restrictive or common default: the root and
// build trees writable, the destination tree read-only, the network
// shared, a new session with die-with-parent, and no repositories,
// cache, privilege emulation or secrets.
type Invocation struct {
	// Command is the program and its arguments. Inside the sandbox it
	// is resolved against the composed PATH.
	Command []string

	// Env overlays the base environment.
	Env map[string]string

	// WorkDir is the working directory: a sandbox path in sandboxed
	// mode, a host path in bootstrap mode.
	WorkDir string

	// Bootstrap runs the command directly on the host.
	Bootstrap bool

	// ReadOnlyRoot and ReadOnlyBuild bind the root and the build-work
	// tree read-only. WritableDest binds the destination tree
	// read-write.
	ReadOnlyRoot  bool
	ReadOnlyBuild bool
	WritableDest  bool

	// UnshareAll keeps the network namespace unshared and suppresses
	// proxy variable forwarding.
	UnshareAll bool

	// NoNewSession omits --new-session and --die-with-parent. Use it
	// for interactive shells that need the controlling terminal.
	NoNewSession bool

	// MountPackages binds the local, alternate and stage repositories.
	// WritablePackages makes the local and stage repositories writable.
	// NoStage leaves the stage repository unmounted.
	MountPackages    bool
	WritablePackages bool
	NoStage          bool

	// MountCache binds the shared cache directory read-write.
	MountCache bool

	// Fakeroot interposes the privilege-emulation helper.
	Fakeroot bool

	// SigningKey is a host path to a private key exposed read-only at
	// /tmp/<name>. A ".age" key is decrypted first and exposed without
	// the suffix.
	SigningKey string

	// Wrapper is a shell script body exposed at
	// /tmp/cbuild-chroot-wrapper.sh and run as "sh <path> command...".
	Wrapper string

	// Capture collects stdout and stderr into the Result instead of
	// writing them to Stdout and Stderr.
	Capture bool

	// Stdin, Stdout and Stderr connect the child. Nil Stdout and Stderr
	// default to the process's own streams; nil Stdin reads nothing.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Validate rejects contradictory or incomplete invocations.
func (inv *Invocation) Validate() error {
	var problem string
	switch {
	case len(inv.Command) == 0 || inv.Command[0] == "":
		problem = "command is required"
	case inv.WritablePackages && !inv.MountPackages:
		problem = "writable packages requires mounted packages"
	case inv.Bootstrap && inv.SigningKey != "":
		problem = "signing keys are only delivered inside the sandbox"
	case inv.Bootstrap && inv.Wrapper != "":
		problem = "wrapper scripts are only delivered inside the sandbox"
	case inv.Bootstrap && (inv.MountPackages || inv.MountCache):
		problem = "mounts are not available in bootstrap mode"
	}
	if problem != "" {
		return fmt.Errorf("%w: %s", ErrInvalidInvocation, problem)
	}
	return nil
}
