// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// skeletonDirectories exist in every root before the first install.
var skeletonDirectories = []string{
	"tmp",
	"dev",
	"etc/apk",
	"usr/lib/apk/db",
	"var/cache/apk",
	"var/cache/misc",
	"var/log",
}

// skeletonFiles are the installed-package database and the world file.
var skeletonFiles = []string{
	"usr/lib/apk/db/installed",
	"etc/apk/world",
}

// InitializeSkeleton creates the directory and package-database
// skeleton of the root. It is idempotent: an existing lib entry of any
// type is left alone and existing database files keep their content.
func (s *Session) InitializeSkeleton() error {
	return initializeSkeleton(s.layout.Root)
}

func initializeSkeleton(root string) error {
	for _, directory := range skeletonDirectories {
		if err := os.MkdirAll(filepath.Join(root, directory), 0o755); err != nil {
			return fmt.Errorf("creating skeleton directory %s: %w", directory, err)
		}
	}

	// /lib is merged into /usr/lib.
	lib := filepath.Join(root, "lib")
	if _, err := os.Lstat(lib); errors.Is(err, fs.ErrNotExist) {
		if err := os.Symlink("usr/lib", lib); err != nil {
			return fmt.Errorf("linking lib: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("checking lib: %w", err)
	}

	for _, file := range skeletonFiles {
		if err := touch(filepath.Join(root, file)); err != nil {
			return err
		}
	}
	return nil
}

func touch(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return file.Close()
}
