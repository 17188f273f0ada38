// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/bldroot/lib/arch"
	"github.com/bureau-foundation/bldroot/lib/paths"
	"github.com/bureau-foundation/bldroot/lib/pkgmgr"
	"github.com/bureau-foundation/bldroot/sandbox"
)

// DefaultBasePackage is the meta-package that makes a root buildable.
const DefaultBasePackage = "base-cbuild"

// DefaultResolvConf is the host resolver configuration copied into a
// freshly bootstrapped root.
const DefaultResolvConf = "/etc/resolv.conf"

// Config holds configuration for creating a Session.
type Config struct {
	// Layout locates the root and its host directories.
	Layout paths.Layout

	// Launcher is the bwrap binary; empty searches the standard
	// locations.
	Launcher string

	// Hostname inside the sandbox.
	Hostname string

	// Resources are optional systemd scope limits for sandboxed
	// commands.
	Resources sandbox.ResourceConfig

	// AgeIdentity decrypts sealed signing keys.
	AgeIdentity string

	// PackageManager is the host apk binary; empty resolves "apk".
	PackageManager string

	// BasePackage is installed by Install. Defaults to
	// DefaultBasePackage.
	BasePackage string

	// ResolvConf is copied into the root by Install. Defaults to
	// DefaultResolvConf.
	ResolvConf string

	// Logger for lifecycle operations.
	Logger *slog.Logger
}

// Session is the per-build-session context for one build root.
type Session struct {
	layout      paths.Layout
	arch        *arch.State
	runner      *sandbox.Runner
	packages    *pkgmgr.Client
	basePackage string
	resolvConf  string
	logger      *slog.Logger

	mu      sync.Mutex
	checked bool
	state   State
}

// New creates a Session. No filesystem state is read until the first
// operation.
func New(config Config) (*Session, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := &arch.State{}
	runner, err := sandbox.NewRunner(sandbox.Config{
		Layout:      config.Layout,
		Arch:        state,
		Launcher:    config.Launcher,
		Hostname:    config.Hostname,
		Resources:   config.Resources,
		AgeIdentity: config.AgeIdentity,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating sandbox runner: %w", err)
	}

	// The runner resolved the root to an absolute path.
	layout := runner.Layout()
	packages, err := pkgmgr.New(pkgmgr.Config{
		Root:     layout.Root,
		Binary:   config.PackageManager,
		Executor: runner,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating package manager client: %w", err)
	}

	basePackage := config.BasePackage
	if basePackage == "" {
		basePackage = DefaultBasePackage
	}
	resolvConf := config.ResolvConf
	if resolvConf == "" {
		resolvConf = DefaultResolvConf
	}

	return &Session{
		layout:      layout,
		arch:        state,
		runner:      runner,
		packages:    packages,
		basePackage: basePackage,
		resolvConf:  resolvConf,
		logger:      logger.With("root", layout.Root),
	}, nil
}

// Layout returns the session's resolved layout.
func (s *Session) Layout() paths.Layout { return s.layout }

// Arch returns the session's architecture identity.
func (s *Session) Arch() *arch.State { return s.arch }

// Runner returns the sandbox runner bound to the root.
func (s *Session) Runner() *sandbox.Runner { return s.runner }

// Packages returns the package manager client bound to the root.
func (s *Session) Packages() *pkgmgr.Client { return s.packages }
