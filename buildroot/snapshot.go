// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"fmt"

	"github.com/bureau-foundation/bldroot/lib/rootfs"
)

// Snapshot archives the root into target. The codec follows the file
// name (.tar.zst, .tar.lz4, .tar.gz, .tar.xz or .tar). The caller
// should hold Lock.
func (s *Session) Snapshot(target string) error {
	present, err := s.markerPresent()
	if err != nil {
		return err
	}
	if !present {
		return fmt.Errorf("refusing to snapshot uninitialized root %s", s.layout.Root)
	}
	if err := rootfs.PackFile(s.layout.Root, target); err != nil {
		return fmt.Errorf("snapshotting build root: %w", err)
	}
	s.logger.Info("wrote snapshot", "snapshot", target)
	return nil
}

// Restore extracts a snapshot into the root. An initialized root is
// never overwritten; zap it first. The cached state is dropped so the
// next ResolveState reads the restored marker.
func (s *Session) Restore(source string) error {
	present, err := s.markerPresent()
	if err != nil {
		return err
	}
	if present {
		return fmt.Errorf("refusing to restore over initialized root %s", s.layout.Root)
	}
	if err := rootfs.UnpackFile(source, s.layout.Root); err != nil {
		return fmt.Errorf("restoring build root: %w", err)
	}

	s.mu.Lock()
	s.checked = false
	s.mu.Unlock()
	s.logger.Info("restored snapshot", "snapshot", source)
	return nil
}
