// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed decrypts package signing keys stored as age files.
//
// Signing keys may sit on disk either as plain PEM files or encrypted
// with filippo.io/age (file name ending in ".age"). Plain keys are
// reopened by the sandbox as read-only descriptors; sealed keys are
// decrypted here into a [secret.Buffer] and handed to the sandbox
// through an anonymous pipe. Decrypted key material never touches the
// filesystem.
package sealed
