// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/bureau-foundation/bldroot/lib/paths"
)

// Identity of the unprivileged user every sandboxed command runs as.
const (
	BuildUser = "cbuild"
	BuildUID  = 1337
	BuildGID  = 1337
)

// DefaultHostname is the hostname inside the sandbox.
const DefaultHostname = "cbuild"

// DataFile is a descriptor exposed as a read-only file inside the
// sandbox. Descriptor is the number in the child, not the parent.
type DataFile struct {
	Descriptor int
	Dest       string
}

// BwrapOptions holds everything needed to render one bwrap command line.
type BwrapOptions struct {
	// Layout supplies the host paths to bind.
	Layout paths.Layout

	// Hostname is set with --hostname.
	Hostname string

	// Invocation selects the mount policy and the command.
	Invocation *Invocation

	// Environment is delivered with --clearenv and --setenv.
	Environment map[string]string

	// DataFiles are bound with --ro-bind-data in order.
	DataFiles []DataFile
}

// BwrapBuilder builds bubblewrap command-line arguments.
type BwrapBuilder struct {
	args []string
}

// NewBwrapBuilder creates a new builder.
func NewBwrapBuilder() *BwrapBuilder {
	return &BwrapBuilder{}
}

// Build renders opts into bwrap arguments, ending with "--" and the
// command. The same options always produce the same arguments.
func (b *BwrapBuilder) Build(opts *BwrapOptions) ([]string, error) {
	inv := opts.Invocation
	if inv == nil {
		return nil, fmt.Errorf("invocation is required")
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if inv.Bootstrap {
		return nil, fmt.Errorf("%w: bootstrap invocations do not use the sandbox", ErrInvalidInvocation)
	}
	if opts.Layout.Root == "" {
		return nil, fmt.Errorf("build root is required")
	}
	if inv.MountCache && opts.Layout.Cache == "" {
		return nil, fmt.Errorf("cache mount requested but no cache directory is configured")
	}

	hostname := opts.Hostname
	if hostname == "" {
		hostname = DefaultHostname
	}

	b.args = []string{"--unshare-all", "--hostname", hostname}

	b.addTreeMounts(opts.Layout, inv)
	b.addBaseMounts()

	if !inv.NoNewSession {
		b.args = append(b.args, "--new-session", "--die-with-parent")
	}

	if inv.MountPackages {
		b.addPackageMounts(opts.Layout, inv.WritablePackages, !inv.NoStage)
	}
	if inv.MountCache {
		b.args = append(b.args, "--bind", opts.Layout.Cache, paths.MountCache)
	}

	b.args = append(b.args,
		"--uid", strconv.Itoa(BuildUID),
		"--gid", strconv.Itoa(BuildGID),
	)
	if !inv.UnshareAll {
		b.args = append(b.args, "--share-net")
	}
	if inv.WorkDir != "" {
		b.args = append(b.args, "--chdir", inv.WorkDir)
	}

	for _, data := range opts.DataFiles {
		b.args = append(b.args, "--ro-bind-data", strconv.Itoa(data.Descriptor), data.Dest)
	}

	b.args = append(b.args, "--clearenv")
	for _, key := range sortedKeys(opts.Environment) {
		b.args = append(b.args, "--setenv", key, opts.Environment[key])
	}

	b.args = append(b.args, "--")
	b.args = append(b.args, commandLine(inv, paths.MountFakeroot)...)
	return b.args, nil
}

func (b *BwrapBuilder) addTreeMounts(layout paths.Layout, inv *Invocation) {
	b.args = append(b.args,
		bindFlag(!inv.ReadOnlyRoot), layout.Root, "/",
		bindFlag(!inv.ReadOnlyBuild), layout.BuildWorkDir(), paths.MountBuildDir,
		bindFlag(inv.WritableDest), layout.DestinationDir(), paths.MountDestDir,
		"--ro-bind", layout.Sources, paths.MountSources,
	)
}

func (b *BwrapBuilder) addBaseMounts() {
	b.args = append(b.args,
		"--dev", "/dev",
		"--proc", "/proc",
		"--tmpfs", "/tmp",
		"--tmpfs", "/var/tmp",
	)
}

// addPackageMounts binds the local repository, then the alternate
// repository (always read-only), then the stage repository when
// withStage is set.
func (b *BwrapBuilder) addPackageMounts(layout paths.Layout, writable, withStage bool) {
	b.args = append(b.args, bindFlag(writable), layout.Repository, paths.MountRepository)
	if layout.AltRepository != "" {
		b.args = append(b.args, "--ro-bind", layout.AltRepository, paths.MountAltRepo)
	}
	if withStage && layout.StageRepository != "" {
		b.args = append(b.args, bindFlag(writable), layout.StageRepository, paths.MountStageRepo)
	}
}

func bindFlag(writable bool) string {
	if writable {
		return "--bind"
	}
	return "--ro-bind"
}

// commandLine assembles the command with its optional prefixes: the
// wrapper script is applied first and privilege emulation wraps the
// result.
func commandLine(inv *Invocation, fakerootHelper string) []string {
	var command []string
	if inv.Fakeroot {
		command = append(command, "sh", fakerootHelper)
	}
	if inv.Wrapper != "" {
		command = append(command, "sh", paths.MountWrapper)
	}
	return append(command, inv.Command...)
}

// BwrapPath returns the path to the bwrap executable, checking the
// standard locations before PATH.
func BwrapPath() (string, error) {
	for _, path := range []string{
		"/usr/bin/bwrap",
		"/usr/local/bin/bwrap",
		"/bin/bwrap",
	} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	if path, err := exec.LookPath("bwrap"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("bwrap not found in standard locations or PATH")
}
