// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rootfs writes and restores build-root snapshots: tar streams
// of a root directory wrapped in a [Codec] chosen from the file name.
//
// Snapshots carry directories, regular files, symbolic links and hard
// links with their modes and modification times. Device nodes, sockets
// and FIFOs are skipped; the sandbox recreates /dev on every run.
//
// Extraction goes through an [os.Root], so no entry, link target or
// path through an earlier symlink can write outside the destination.
// Entries whose names are not local paths are rejected outright with
// [ErrUnsafePath].
package rootfs
