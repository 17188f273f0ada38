// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/bldroot/lib/paths"
	"github.com/bureau-foundation/bldroot/lib/pkgmgr"
)

const (
	indexFile          = "APKINDEX.tar.gz"
	sectionPlaceholder = "@section@"
)

// repository is one line of the composed list: where apk sees it from
// inside the sandbox and from the host.
type repository struct {
	Mount string
	Host  string
}

// ComposeRepositoryFile re-syncs the root's trusted keys and rewrites
// /etc/apk/repositories. Any existing file is removed first. On an
// uninitialized root nothing is written and the index is not
// refreshed.
//
// With includeLocal the file lists, in order, local build output,
// alternate and stage repositories that have an index for the host
// architecture, then the remote repositories when allowNetwork is set.
// Without includeLocal the file is left absent and only a quiet index
// refresh runs. Composition is deterministic: the same inputs produce
// byte-identical files.
func (s *Session) ComposeRepositoryFile(ctx context.Context, includeLocal, allowNetwork bool) error {
	if err := s.syncKeys(); err != nil {
		return err
	}

	file := s.layout.RepositoryFile()
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing repository list: %w", err)
	}

	present, err := s.markerPresent()
	if err != nil {
		return err
	}
	if !present {
		s.logger.Debug("root not initialized, skipping repository list")
		return nil
	}

	if includeLocal {
		repositories, err := s.repositories(allowNetwork)
		if err != nil {
			return err
		}
		lines := make([]string, len(repositories))
		for i, repository := range repositories {
			lines[i] = repository.Mount
		}
		if err := writeLines(file, lines); err != nil {
			return fmt.Errorf("writing repository list: %w", err)
		}
	}

	return s.RefreshIndex(ctx, RefreshOptions{
		Quiet:        !includeLocal,
		AllowNetwork: allowNetwork,
	})
}

// RefreshOptions control RefreshIndex.
type RefreshOptions struct {
	Quiet        bool
	AllowNetwork bool

	// NoStage refreshes without the stage repository mounted.
	NoStage bool
}

// RefreshIndex runs "apk update" inside the sandbox. A non-zero exit is
// returned as a *sandbox.CommandError carrying apk's output.
func (s *Session) RefreshIndex(ctx context.Context, options RefreshOptions) error {
	var args []string
	if options.Quiet {
		args = append(args, "-q")
	}
	result, err := s.packages.Sandboxed(ctx, "update", args, pkgmgr.SandboxOptions{
		Isolated: !options.AllowNetwork,
		NoStage:  options.NoStage,
		Capture:  true,
	})
	if err != nil {
		return fmt.Errorf("updating package database: %w", err)
	}
	if err := result.Check(); err != nil {
		return fmt.Errorf("failed to update package database: %w", err)
	}
	return nil
}

// repositories lists every repository in precedence order. Local
// categories only include section subpaths whose index exists for the
// host architecture.
func (s *Session) repositories(allowNetwork bool) ([]repository, error) {
	hostArch, err := s.arch.Host()
	if err != nil {
		return nil, err
	}
	configured, err := s.configuredRepositories()
	if err != nil {
		return nil, err
	}

	var local, remote []string
	for _, entry := range configured {
		if strings.HasPrefix(entry, "/") {
			local = append(local, strings.TrimLeft(entry, "/"))
		} else {
			remote = append(remote, entry)
		}
	}

	var result []repository
	categories := []struct {
		host  string
		mount string
	}{
		{s.layout.Repository, paths.MountRepository},
		{s.layout.AltRepository, paths.MountAltRepo},
		{s.layout.StageRepository, paths.MountStageRepo},
	}
	for _, category := range categories {
		if category.host == "" {
			continue
		}
		sections, err := listSections(category.host)
		if err != nil {
			return nil, err
		}
		for _, section := range sections {
			for _, subpath := range local {
				hostPath := filepath.Join(category.host, section, subpath)
				if !isRegular(filepath.Join(hostPath, hostArch, indexFile)) {
					continue
				}
				result = append(result, repository{
					Mount: path.Join(category.mount, section, subpath),
					Host:  hostPath,
				})
			}
		}
	}

	if allowNetwork && len(remote) > 0 {
		sections, err := listSections(s.layout.Repository)
		if err != nil {
			return nil, err
		}
		for _, section := range sections {
			for _, template := range remote {
				url := strings.ReplaceAll(template, sectionPlaceholder, section)
				result = append(result, repository{Mount: url, Host: url})
			}
		}
	}
	return result, nil
}

// hostRepositories returns the repository list as host paths, for host
// package manager calls made before the root can run its own.
func (s *Session) hostRepositories(allowNetwork bool) ([]string, error) {
	repositories, err := s.repositories(allowNetwork)
	if err != nil {
		return nil, err
	}
	hosts := make([]string, len(repositories))
	for i, repository := range repositories {
		hosts[i] = repository.Host
	}
	return hosts, nil
}

// configuredRepositories reads etc/apk/repositories.d/*.conf from the
// distribution tree in file-name order. Blank and comment lines are
// skipped.
func (s *Session) configuredRepositories() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(s.layout.DistDir, "etc/apk/repositories.d/*.conf"))
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, name := range files {
		file, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("reading repository config: %w", err)
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			entries = append(entries, line)
		}
		err = scanner.Err()
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}
	return entries, nil
}

// syncKeys recreates the root's trusted key directory from the
// distribution's public keys.
func (s *Session) syncKeys() error {
	keys := s.layout.KeysDir()
	if err := os.RemoveAll(keys); err != nil {
		return fmt.Errorf("clearing trusted keys: %w", err)
	}
	if err := os.MkdirAll(keys, 0o755); err != nil {
		return fmt.Errorf("creating trusted keys directory: %w", err)
	}

	for _, pattern := range []string{"etc/apk/keys/*.pub", "etc/keys/*.pub"} {
		sources, err := filepath.Glob(filepath.Join(s.layout.DistDir, pattern))
		if err != nil {
			return err
		}
		for _, source := range sources {
			if err := copyFile(source, filepath.Join(keys, filepath.Base(source))); err != nil {
				return fmt.Errorf("installing trusted key: %w", err)
			}
		}
	}
	return nil
}

// listSections returns the subdirectory names of directory in sorted
// order. A missing directory has no sections.
func listSections(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing repository sections: %w", err)
	}
	var sections []string
	for _, entry := range entries {
		if entry.IsDir() {
			sections = append(sections, entry.Name())
		}
	}
	return sections, nil
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// writeLines writes one line per entry through a temporary file renamed
// over path.
func writeLines(path string, lines []string) error {
	var builder strings.Builder
	for _, line := range lines {
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	return writeFileAtomic(path, []byte(builder.String()), 0o644)
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	temporary := file.Name()
	defer os.Remove(temporary)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	if err := file.Chmod(mode); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(temporary, path)
}

// copyFile copies source to target keeping the mode and modification
// time.
func copyFile(source, target string) error {
	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()

	info, err := input.Stat()
	if err != nil {
		return err
	}
	output, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		return err
	}
	if err := output.Close(); err != nil {
		return err
	}
	return os.Chtimes(target, info.ModTime(), info.ModTime())
}
