// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox runs commands against a build root, either directly
// on the host (bootstrap mode) or inside a bubblewrap namespace sandbox.
//
// The central type is [Runner]. Callers describe each command as an
// [Invocation]: an immutable request naming the command, environment
// overrides, working directory, and mount policy (which of the root,
// build-work and destination trees are writable, whether package
// repositories and the shared cache are mounted, whether namespaces are
// fully unshared). An Invocation is validated once and rendered
// deterministically into bwrap arguments by [BwrapBuilder].
//
// Environment variables reach the sandboxed process only through
// --clearenv and sorted --setenv pairs. The bwrap process itself runs
// with a minimal environment so host secrets are not readable from
// /proc/<pid>/environ inside the sandbox.
//
// Secret material (a package signing key, an inline wrapper script) is
// never written into the build root. Each item is exposed through an
// anonymous descriptor passed to bwrap with --ro-bind-data: plain keys
// are reopened read-only, while age-sealed keys and wrapper bodies are
// streamed from locked memory into a pipe. The descriptors are owned by
// one Run call and are released on every exit path after the child is
// waited for.
//
// Privilege emulation prefixes the command with the fakeroot helper
// script. Inside the sandbox the helper is a copy kept at
// /.cbuild_fakeroot.sh and refreshed when its BLAKE3 digest differs from
// the host copy.
//
// Resource limits wrap the launcher in a transient systemd scope
// ([SystemdScope]). [Validator] and [DetectCapabilities] report whether
// the host can run sandboxes at all.
package sandbox
