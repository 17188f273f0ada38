// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package paths resolves the canonical filesystem locations of a build
// session: the build root and the subtrees derived from it, the host
// directories bind-mounted into the sandbox, and the fixed mount points
// those directories appear at inside it.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// Mount points inside the sandbox.
const (
	MountBuildDir     = "/builddir"
	MountDestDir      = "/destdir"
	MountSources      = "/sources"
	MountRepository   = "/binpkgs"
	MountAltRepo      = "/altbinpkgs"
	MountStageRepo    = "/stagepkgs"
	MountCache        = "/cbuild_cache"
	MountFakeroot     = "/.cbuild_fakeroot.sh"
	MountWrapper      = "/tmp/cbuild-chroot-wrapper.sh"
	MountSecretPrefix = "/tmp"
)

// Files inside a build root, relative to the root.
const (
	markerName         = ".cbuild_chroot_init"
	repositoryFileName = "etc/apk/repositories"
	keysDirName        = "etc/apk/keys"
	shellName          = "usr/bin/sh"
	fakerootName       = ".cbuild_fakeroot.sh"
)

// Layout is the set of host paths one build session operates on.
// Root, Sources, Repository and DistDir are required; the remaining
// directories are optional and skipped when empty.
type Layout struct {
	// Root is the build root directory.
	Root string

	// BuildDir and DestDir override the default <Root>/builddir and
	// <Root>/destdir work trees.
	BuildDir string
	DestDir  string

	// Sources holds fetched source archives, mounted read-only.
	Sources string

	// Repository is the local build-output repository.
	Repository string

	// AltRepository is an optional second local repository.
	AltRepository string

	// StageRepository holds packages promoted during a staged bootstrap.
	StageRepository string

	// DistDir is the distribution checkout: base files, signing keys
	// and repository configuration.
	DistDir string

	// Cache is an optional shared cache mounted read-write.
	Cache string

	// Helpers holds host-side helper scripts (fakeroot.sh).
	Helpers string
}

// BuildWorkDir returns the host path of the build-work subtree.
func (l Layout) BuildWorkDir() string {
	if l.BuildDir != "" {
		return l.BuildDir
	}
	return filepath.Join(l.Root, "builddir")
}

// DestinationDir returns the host path of the install-destination subtree.
func (l Layout) DestinationDir() string {
	if l.DestDir != "" {
		return l.DestDir
	}
	return filepath.Join(l.Root, "destdir")
}

// Marker returns the host path of the readiness marker.
func (l Layout) Marker() string { return filepath.Join(l.Root, markerName) }

// RepositoryFile returns the host path of the package manager's
// repository list inside the root.
func (l Layout) RepositoryFile() string { return filepath.Join(l.Root, repositoryFileName) }

// KeysDir returns the host path of the root's trusted key directory.
func (l Layout) KeysDir() string { return filepath.Join(l.Root, keysDirName) }

// Shell returns the host path of the root's minimal shell.
func (l Layout) Shell() string { return filepath.Join(l.Root, shellName) }

// InRoot joins a root-relative path onto Root.
func (l Layout) InRoot(relative string) string { return filepath.Join(l.Root, relative) }

// FakerootHelper returns the host copy of the privilege-emulation script.
func (l Layout) FakerootHelper() string { return filepath.Join(l.Helpers, "fakeroot.sh") }

// RootFakerootHelper returns where the helper is copied inside the root.
func (l Layout) RootFakerootHelper() string { return filepath.Join(l.Root, fakerootName) }

// LockFile returns the advisory lock path, a sibling of the root.
func (l Layout) LockFile() string { return filepath.Clean(l.Root) + ".lock" }

// Prepare creates the build-work, destination and cache directories.
func (l Layout) Prepare() error {
	directories := []string{l.BuildWorkDir(), l.DestinationDir()}
	if l.Cache != "" {
		directories = append(directories, l.Cache)
	}
	for _, directory := range directories {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", directory, err)
		}
	}
	return nil
}

// Validate reports missing required paths.
func (l Layout) Validate() error {
	switch {
	case l.Root == "":
		return fmt.Errorf("build root path is required")
	case l.Sources == "":
		return fmt.Errorf("sources path is required")
	case l.Repository == "":
		return fmt.Errorf("repository path is required")
	case l.DistDir == "":
		return fmt.Errorf("distribution directory is required")
	}
	if filepath.Clean(l.Root) == "/" {
		return fmt.Errorf("build root cannot be /")
	}
	return nil
}
