// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/bldroot/sandbox"
)

// ErrBootstrapNotInstalled is returned when first boot or a sandboxed
// command needs the root's shell and it is missing.
var ErrBootstrapNotInstalled = sandbox.ErrBootstrapNotInstalled

// AutodepsFailure records one dependency set that could not be removed.
type AutodepsFailure struct {
	// Package is the synthetic dependency-set package name.
	Package string

	// Err is the launch error or the *sandbox.CommandError of the
	// removal.
	Err error
}

// AutodepsError aggregates the failures of one RemoveAutodeps call.
// It is returned only after every set has been attempted.
type AutodepsError struct {
	Failures []AutodepsFailure
}

func (e *AutodepsError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, failure := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %v", failure.Package, failure.Err)
	}
	return "failed to remove autodeps: " + strings.Join(parts, "; ")
}

// Unwrap exposes each failure to errors.Is and errors.As.
func (e *AutodepsError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, failure := range e.Failures {
		errs[i] = failure.Err
	}
	return errs
}
