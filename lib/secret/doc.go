// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds material that must not outlive a single sandbox
// invocation: decrypted package signing keys and inline wrapper-script
// bodies.
//
// [Buffer] allocates memory outside the Go heap via mmap(MAP_ANONYMOUS),
// locks it into RAM with mlock, and excludes it from core dumps with
// MADV_DONTDUMP. Close zeroes, unlocks and unmaps the region. The
// sandbox package copies a Buffer into an anonymous pipe with
// [Buffer.WriteTo] and closes it as soon as the invocation returns, so
// secret bytes are never written into a build root.
//
// Depends on golang.org/x/sys/unix only.
package secret
