// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package arch tracks the host and target CPU identities of a build
// session.
//
// A [State] is an explicit value owned by one session rather than
// process-wide mutable state. Reading an identity that has not been set
// returns [ErrUnset]: callers must set identities before any path or
// repository operation that depends on them, and there is no silent
// fallback to the running machine's architecture.
package arch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/host"
)

// ErrUnset is returned when an identity is read before it was set.
var ErrUnset = errors.New("architecture not set")

// State holds the (host, target) identity pair. The zero value has
// neither identity set. State is safe for concurrent use.
type State struct {
	mu     sync.RWMutex
	host   string
	target string
}

// SetHost records the architecture the build root runs natively.
func (s *State) SetHost(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = id
}

// SetTarget records the architecture packages are built for.
func (s *State) SetTarget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = id
}

// Set assigns the same identity to host and target.
func (s *State) Set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = id
	s.target = id
}

// Host returns the host identity or ErrUnset.
func (s *State) Host() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.host == "" {
		return "", fmt.Errorf("host: %w", ErrUnset)
	}
	return s.host, nil
}

// Target returns the target identity or ErrUnset.
func (s *State) Target() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.target == "" {
		return "", fmt.Errorf("target: %w", ErrUnset)
	}
	return s.target, nil
}

// Reporter reports the architecture the package manager considers
// native. The package manager client implements it.
type Reporter interface {
	PrintArch(ctx context.Context) (string, error)
}

// kernelArch is replaced in tests.
var kernelArch = host.KernelArch

// Detect asks reporter for the native architecture and falls back to
// the kernel's machine name when the query fails or reporter is nil.
func Detect(ctx context.Context, reporter Reporter) (string, error) {
	if reporter != nil {
		id, err := reporter.PrintArch(ctx)
		if err == nil && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id), nil
		}
	}

	machine, err := kernelArch()
	if err != nil {
		return "", fmt.Errorf("detecting kernel architecture: %w", err)
	}
	machine = strings.TrimSpace(machine)
	if machine == "" {
		return "", fmt.Errorf("kernel reported an empty architecture")
	}
	return Normalize(machine), nil
}

// Normalize maps kernel machine names to the package manager's
// architecture identifiers.
func Normalize(machine string) string {
	switch machine {
	case "arm64":
		return "aarch64"
	case "amd64":
		return "x86_64"
	case "ppc64le":
		return "ppc64le"
	case "armv7l":
		return "armv7"
	case "armv6l":
		return "armhf"
	case "i686", "i586", "i486":
		return "x86"
	}
	return machine
}
