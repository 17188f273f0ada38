// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/bureau-foundation/bldroot/lib/pkgmgr"
)

// FinalStage is the bootstrap stage at which an explicit architecture
// is honored. Earlier stages always build for the host.
const FinalStage = 2

// Install bootstraps the root. It does nothing when the root is already
// initialized.
//
// The skeleton is created, the trusted keys synced, and the base
// package installed by the host package manager under privilege
// emulation with scripts disabled. arch is used only at FinalStage or
// later; otherwise the root is built for the host. First boot then
// writes the marker, the state is re-read, and the host resolver
// configuration and a fresh machine identity are seeded.
func (s *Session) Install(ctx context.Context, arch string, stage int) error {
	state, err := s.ResolveState(ctx, false)
	if err != nil {
		return err
	}
	if state == Initialized {
		s.logger.Debug("build root already initialized")
		return nil
	}

	s.logger.Info("installing base package", "package", s.basePackage)

	if err := s.InitializeSkeleton(); err != nil {
		return err
	}

	if arch == "" || stage < FinalStage {
		arch, err = s.arch.Host()
		if err != nil {
			return err
		}
	}
	s.arch.Set(arch)

	if err := s.ComposeRepositoryFile(ctx, false, true); err != nil {
		return err
	}
	repositories, err := s.hostRepositories(true)
	if err != nil {
		return err
	}

	result, err := s.packages.Host(ctx, "add", []string{"--no-scripts", s.basePackage}, pkgmgr.HostOptions{
		Arch:         arch,
		Fakeroot:     true,
		Repositories: repositories,
		Capture:      true,
	})
	if err != nil {
		return fmt.Errorf("installing %s: %w", s.basePackage, err)
	}
	if err := result.Check(); err != nil {
		return fmt.Errorf("failed to install %s: %w", s.basePackage, err)
	}
	s.logger.Info("installed base package", "package", s.basePackage, "arch", arch)

	if err := s.layout.Prepare(); err != nil {
		return err
	}
	if err := s.PrepareFirstBoot(ctx, arch, stage); err != nil {
		return err
	}
	if _, err := s.ResolveState(ctx, true); err != nil {
		return err
	}
	return s.seedHostFiles()
}

// seedHostFiles copies the resolver configuration and writes a new
// machine identity: 16 random bytes as lowercase hex and a newline.
func (s *Session) seedHostFiles() error {
	if err := os.MkdirAll(s.layout.InRoot("etc/apk"), 0o755); err != nil {
		return fmt.Errorf("creating etc/apk: %w", err)
	}
	if err := copyFile(s.resolvConf, s.layout.InRoot("etc/resolv.conf")); err != nil {
		return fmt.Errorf("copying resolver configuration: %w", err)
	}

	identity := make([]byte, 16)
	if _, err := rand.Read(identity); err != nil {
		return fmt.Errorf("generating machine identity: %w", err)
	}
	machineID := hex.EncodeToString(identity) + "\n"
	if err := os.WriteFile(s.layout.InRoot("etc/machine-id"), []byte(machineID), 0o644); err != nil {
		return fmt.Errorf("writing machine identity: %w", err)
	}
	return nil
}

// Update refreshes the user databases, the package index and every
// installed package of an initialized root, without the stage
// repository mounted. It does nothing on an uninitialized root.
func (s *Session) Update(ctx context.Context) error {
	ready, err := s.Ready(ctx)
	if err != nil {
		return err
	}
	if !ready {
		s.logger.Debug("build root not initialized, nothing to update")
		return nil
	}

	s.logger.Info("updating build root")

	if err := s.layout.Prepare(); err != nil {
		return err
	}
	// Synthetic entries must survive base-files upgrades.
	if err := s.preparePasswd(); err != nil {
		return err
	}

	if err := s.RefreshIndex(ctx, RefreshOptions{Quiet: true, AllowNetwork: true, NoStage: true}); err != nil {
		return err
	}
	result, err := s.packages.Sandboxed(ctx, "upgrade", []string{"--available", "--no-scripts"}, pkgmgr.SandboxOptions{
		NoStage: true,
		Capture: true,
	})
	if err != nil {
		return fmt.Errorf("upgrading packages: %w", err)
	}
	if err := result.Check(); err != nil {
		return fmt.Errorf("failed to upgrade packages: %w", err)
	}
	return nil
}
