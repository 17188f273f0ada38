// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/bldroot/sandbox"
)

const (
	localtimeTarget = "../usr/share/zoneinfo/UTC"
	caRefreshTool   = "usr/bin/update-ca-certificates"
	baseFilesEtc    = "main/base-files/files/etc"
)

// PrepareFirstBoot finishes a root whose base packages are installed:
// UTC localtime, a CA bundle refresh when the tool is present, the
// user and group databases, and finally the readiness marker holding
// arch. It does nothing on an initialized root.
//
// A root without a shell fails with ErrBootstrapNotInstalled and no
// marker is written.
func (s *Session) PrepareFirstBoot(ctx context.Context, arch string, stage int) error {
	present, err := s.markerPresent()
	if err != nil {
		return err
	}
	if present {
		return nil
	}
	if arch == "" {
		return fmt.Errorf("first boot requires an architecture")
	}
	if _, err := os.Stat(s.layout.Shell()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrBootstrapNotInstalled
		}
		return fmt.Errorf("checking build root shell: %w", err)
	}

	s.logger.Info("preparing first boot", "arch", arch, "stage", stage)

	localtime := s.layout.InRoot("etc/localtime")
	if err := os.MkdirAll(filepath.Dir(localtime), 0o755); err != nil {
		return fmt.Errorf("creating etc: %w", err)
	}
	if err := os.Remove(localtime); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("replacing localtime: %w", err)
	}
	if err := os.Symlink(localtimeTarget, localtime); err != nil {
		return fmt.Errorf("linking localtime: %w", err)
	}

	if info, err := os.Stat(s.layout.InRoot(caRefreshTool)); err == nil && info.Mode().IsRegular() {
		result, err := s.runner.Run(ctx, sandbox.Invocation{
			Command: []string{"update-ca-certificates", "--fresh"},
			Capture: true,
		})
		if err != nil {
			return fmt.Errorf("refreshing CA certificates: %w", err)
		}
		// A failed refresh leaves the packaged bundle in place.
		if err := result.Check(); err != nil {
			s.logger.Warn("CA certificate refresh failed", "error", err)
		}
	}

	if err := s.preparePasswd(); err != nil {
		return err
	}

	if err := os.WriteFile(s.layout.Marker(), []byte(arch+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing readiness marker: %w", err)
	}
	return nil
}

// preparePasswd replaces the root's passwd and group with the
// distribution's base set plus the unprivileged build user.
func (s *Session) preparePasswd() error {
	source := filepath.Join(s.layout.DistDir, baseFilesEtc)
	etc := s.layout.InRoot("etc")
	if err := os.MkdirAll(etc, 0o755); err != nil {
		return fmt.Errorf("creating etc: %w", err)
	}

	entries := map[string]string{
		"passwd": fmt.Sprintf("%s:x:%d:%d:%s user:/tmp:/bin/nologin\n",
			sandbox.BuildUser, sandbox.BuildUID, sandbox.BuildGID, sandbox.BuildUser),
		"group": fmt.Sprintf("%s:x:%d:\n", sandbox.BuildUser, sandbox.BuildGID),
	}
	for _, name := range []string{"passwd", "group"} {
		base, err := os.ReadFile(filepath.Join(source, name))
		if err != nil {
			return fmt.Errorf("reading base %s: %w", name, err)
		}
		if len(base) > 0 && base[len(base)-1] != '\n' {
			base = append(base, '\n')
		}
		content := append(base, entries[name]...)
		if err := os.WriteFile(filepath.Join(etc, name), content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
