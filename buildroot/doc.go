// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildroot manages the lifecycle of a build root: an isolated
// filesystem tree holding a minimal OS in which packages are built.
//
// A [Session] is the context object for one build session. It owns the
// architecture identity, the sandbox runner and the package manager
// client for a single root, and threads them through every operation
// instead of relying on process-wide state.
//
// A root moves through two states. It starts [Uninitialized]: the
// package database skeleton may exist and base packages may be
// partially installed, but nothing may be built in it. First boot ends
// by writing the readiness marker (.cbuild_chroot_init, holding the
// architecture and a newline), which moves it to [Initialized]. The
// transition is one-way; an initialized root keeps its architecture for
// its lifetime and is never migrated in place. The marker is the only
// serialized form of the state, so other tools reading the root see the
// same answer.
//
// The lifecycle operations:
//
//   - [Session.Install] bootstraps a fresh root: skeleton, signing keys,
//     base packages installed from the host under privilege emulation,
//     first boot, and host identity files.
//   - [Session.ComposeRepositoryFile] rewrites /etc/apk/repositories with
//     local build output ahead of alternate, stage and remote
//     repositories, then refreshes the index.
//   - [Session.Update] refreshes and upgrades an initialized root.
//   - [Session.RemoveAutodeps] removes the transient dependency sets a
//     build installed, attempting both before reporting failures.
//
// The package performs no locking on its own operations. Callers that
// may run concurrently against one root take [Session.Lock] first; the
// bldroot CLI does so for every command that mutates the root.
package buildroot
