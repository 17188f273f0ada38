// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"fmt"
	"os"
	"path/filepath"
)

// Zap removes the whole root. Files the sandbox left read-only are made
// writable first. The caller should hold Lock.
func (s *Session) Zap() error {
	root := s.layout.Root
	if root == "" || filepath.Clean(root) == "/" {
		return fmt.Errorf("refusing to remove %q", root)
	}
	if _, err := os.Lstat(root); os.IsNotExist(err) {
		return nil
	}

	// Directories without owner write permission block RemoveAll.
	err := filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil || !entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		if info.Mode().Perm()&0o700 != 0o700 {
			return os.Chmod(path, info.Mode().Perm()|0o700)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("making %s writable: %w", root, err)
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("removing %s: %w", root, err)
	}

	s.mu.Lock()
	s.checked = false
	s.state = Uninitialized
	s.mu.Unlock()
	s.logger.Info("removed build root")
	return nil
}
