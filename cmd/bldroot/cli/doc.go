// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the bldroot binary: a tree
// of [Command] values with pflag-based flag parsing, generated help,
// typo suggestions for unknown commands and flags, and [ExitError] for
// commands that report their own failures.
package cli
