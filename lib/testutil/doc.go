// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for bldroot packages.
//
// [FakeExecutable] writes a /bin/sh script that stands in for an
// external tool (bwrap, apk, update-ca-certificates). Scripts usually
// append their argv to a log file the test reads back with [ReadLines],
// so subprocess contracts are asserted without the real tools
// installed.
//
// [OpenDescriptors] lists the calling process's open file descriptors
// from /proc/self/fd. Tests compare the list before and after an
// operation to prove no descriptor leaked.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
