// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bureau-foundation/bldroot/lib/arch"
)

// State is the readiness of a build root.
type State int

const (
	// Uninitialized roots have no marker and must not be built in.
	Uninitialized State = iota

	// Initialized roots completed first boot.
	Initialized
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ResolveState reports whether the root is ready and sets the session's
// host and target identity to match. An initialized root supplies the
// architecture recorded in its marker; an uninitialized one uses the
// package manager's native architecture, falling back to the kernel's.
//
// The result is cached after the first call. Pass force after mutating
// the root to re-read the marker.
func (s *Session) ResolveState(ctx context.Context, force bool) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checked && !force {
		return s.state, nil
	}

	recorded, err := readMarker(s.layout.Marker())
	if err != nil {
		return Uninitialized, err
	}

	state := Uninitialized
	identity := recorded
	if recorded != "" {
		state = Initialized
	} else {
		identity, err = arch.Detect(ctx, s.packages)
		if err != nil {
			return Uninitialized, fmt.Errorf("detecting host architecture: %w", err)
		}
	}

	s.arch.Set(identity)
	s.state = state
	s.checked = true
	s.logger.Debug("resolved build root state", "state", state, "arch", identity)
	return state, nil
}

// Ready is ResolveState(ctx, false) == Initialized.
func (s *Session) Ready(ctx context.Context) (bool, error) {
	state, err := s.ResolveState(ctx, false)
	return state == Initialized, err
}

// markerPresent checks the marker without touching the cached state.
func (s *Session) markerPresent() (bool, error) {
	info, err := os.Stat(s.layout.Marker())
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking readiness marker: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// readMarker returns the architecture recorded in the marker, or "" if
// there is no marker.
func readMarker(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading readiness marker: %w", err)
	}
	identity := strings.TrimSpace(string(data))
	if identity == "" {
		return "", fmt.Errorf("readiness marker %s records no architecture", path)
	}
	return identity, nil
}
