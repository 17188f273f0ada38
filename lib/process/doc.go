// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers: reporting an
// error before the structured logger exists, and turning the error
// returned by a command tree into a process exit code.
package process
