// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 digests of helper files that are
// copied into build roots, so a stale copy can be detected and
// replaced without comparing file contents byte by byte.
package binhash
