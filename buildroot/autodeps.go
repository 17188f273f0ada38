// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/bldroot/lib/pkgmgr"
	"github.com/bureau-foundation/bldroot/sandbox"
)

// AutodepsMode selects how dependency sets are removed.
type AutodepsMode int

const (
	// AutodepsAuto removes from the host while the root is not yet
	// initialized and inside the sandbox afterwards.
	AutodepsAuto AutodepsMode = iota

	// AutodepsBootstrap removes with the host package manager under
	// privilege emulation.
	AutodepsBootstrap

	// AutodepsSandbox removes with the root's own package manager.
	AutodepsSandbox
)

// autodepsSets are the synthetic packages a build installs to pull in
// its dependencies.
var autodepsSets = []struct {
	name  string
	label string
}{
	{"autodeps-host", "host"},
	{"autodeps-target", "target"},
}

// RemoveAutodeps removes each installed dependency set. Every set is
// attempted; failures are logged with the package manager's stderr and
// returned together as one *AutodepsError.
func (s *Session) RemoveAutodeps(ctx context.Context, mode AutodepsMode) error {
	bootstrapping := mode == AutodepsBootstrap
	if mode == AutodepsAuto {
		present, err := s.markerPresent()
		if err != nil {
			return err
		}
		bootstrapping = !present
	}

	s.logger.Info("removing autodeps", "bootstrapping", bootstrapping)

	if err := s.layout.Prepare(); err != nil {
		return err
	}

	var failures []AutodepsFailure
	for _, set := range autodepsSets {
		if err := s.removeSet(ctx, set.name, bootstrapping); err != nil {
			s.logger.Error("autodeps removal failed", "set", set.label, "error", err)
			failures = append(failures, AutodepsFailure{Package: set.name, Err: err})
		}
	}
	if len(failures) > 0 {
		return &AutodepsError{Failures: failures}
	}
	return nil
}

func (s *Session) removeSet(ctx context.Context, name string, bootstrapping bool) error {
	installed, err := s.packages.Installed(ctx, name)
	if err != nil {
		return err
	}
	if !installed {
		return nil
	}

	var result *sandbox.Result
	if bootstrapping {
		result, err = s.packages.Host(ctx, "del", []string{"--no-scripts", name}, pkgmgr.HostOptions{
			Fakeroot: true,
			Capture:  true,
		})
	} else {
		result, err = s.packages.Sandboxed(ctx, "del", []string{name}, pkgmgr.SandboxOptions{
			Capture: true,
		})
	}
	if err != nil {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	return result.Check()
}
