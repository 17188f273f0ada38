// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pkgmgr provides typed access to the apk package manager as it
// is used against a build root.
//
// apk is invoked two ways:
//   - Host calls run the host's apk in bootstrap mode with --root
//     pointing at the build root and an explicit repository list. They
//     populate a root that has no usable userland yet and query the
//     package database from outside.
//   - Sandboxed calls run the root's own apk inside the sandbox, where
//     /etc/apk/repositories names the mounted package directories.
//
// Both return the [sandbox.Result] of the call. A non-zero exit status
// is left to the caller; [Result.Check] turns it into a
// [sandbox.CommandError] carrying apk's own diagnostic output.
//
// [Result.Check]: sandbox.Result.Check
package pkgmgr
