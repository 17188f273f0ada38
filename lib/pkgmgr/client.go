// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgmgr

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/bureau-foundation/bldroot/sandbox"
)

// DefaultBinary is the package manager resolved on the host and inside
// the root.
const DefaultBinary = "apk"

// Executor runs one invocation. *sandbox.Runner implements it.
type Executor interface {
	Run(ctx context.Context, inv sandbox.Invocation) (*sandbox.Result, error)
}

// Config holds configuration for creating a Client.
type Config struct {
	// Root is the build root passed to host calls with --root.
	Root string

	// Binary is the host package manager. Empty resolves "apk" on
	// PATH at call time.
	Binary string

	// Executor runs the calls.
	Executor Executor

	// Logger for package manager calls.
	Logger *slog.Logger
}

// Client issues package manager calls against one build root.
type Client struct {
	root     string
	binary   string
	executor Executor
	logger   *slog.Logger
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("build root is required")
	}
	if config.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	binary := config.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		root:     config.Root,
		binary:   binary,
		executor: config.Executor,
		logger:   logger,
	}, nil
}

// HostOptions control a host call.
type HostOptions struct {
	// Arch overrides the architecture apk installs for.
	Arch string

	// AllowUntrusted accepts packages and indexes without a trusted
	// signature.
	AllowUntrusted bool

	// Fakeroot runs apk under privilege emulation.
	Fakeroot bool

	// Repositories are host paths or URLs passed with --repository.
	// The root's own repository file is ignored.
	Repositories []string

	// Capture collects stdout and stderr in the result.
	Capture bool
}

// Host runs "apk <global flags> subcommand args..." on the host against
// the build root.
func (c *Client) Host(ctx context.Context, subcommand string, args []string, options HostOptions) (*sandbox.Result, error) {
	binary, err := c.hostBinary()
	if err != nil {
		return nil, err
	}

	command := []string{binary, "--root", c.root, "--no-interactive"}
	if options.Arch != "" {
		command = append(command, "--arch", options.Arch)
	}
	if options.AllowUntrusted {
		command = append(command, "--allow-untrusted")
	}
	command = append(command, "--repositories-file", "/dev/null")
	for _, repository := range options.Repositories {
		command = append(command, "--repository", repository)
	}
	command = append(command, subcommand)
	command = append(command, args...)

	c.logger.Debug("host package manager call",
		"subcommand", subcommand,
		"args", args,
		"arch", options.Arch,
		"repositories", len(options.Repositories),
	)
	return c.executor.Run(ctx, sandbox.Invocation{
		Command:   command,
		Bootstrap: true,
		Fakeroot:  options.Fakeroot,
		Capture:   options.Capture,
	})
}

// SandboxOptions control a sandboxed call.
type SandboxOptions struct {
	// Isolated unshares the network namespace and passes --no-network.
	Isolated bool

	// NoStage leaves the stage repository unmounted.
	NoStage bool

	// Capture collects stdout and stderr in the result.
	Capture bool
}

// Sandboxed runs "apk --no-interactive subcommand args..." inside the
// build root with the package directories mounted and privilege
// emulation on.
func (c *Client) Sandboxed(ctx context.Context, subcommand string, args []string, options SandboxOptions) (*sandbox.Result, error) {
	command := []string{DefaultBinary, "--no-interactive"}
	if options.Isolated {
		command = append(command, "--no-network")
	}
	command = append(command, subcommand)
	command = append(command, args...)

	c.logger.Debug("sandboxed package manager call",
		"subcommand", subcommand,
		"args", args,
		"isolated", options.Isolated,
		"stage", !options.NoStage,
	)
	return c.executor.Run(ctx, sandbox.Invocation{
		Command:       command,
		MountPackages: true,
		NoStage:       options.NoStage,
		Fakeroot:      true,
		UnshareAll:    options.Isolated,
		Capture:       options.Capture,
	})
}

// Installed reports whether pkg is in the root's installed database.
// Any non-zero exit of the query means not installed.
func (c *Client) Installed(ctx context.Context, pkg string) (bool, error) {
	result, err := c.Host(ctx, "info", []string{"--installed", pkg}, HostOptions{
		AllowUntrusted: true,
		Capture:        true,
	})
	if err != nil {
		return false, fmt.Errorf("querying %s: %w", pkg, err)
	}
	return result.Success(), nil
}

// PrintArch returns the architecture the host apk considers native.
func (c *Client) PrintArch(ctx context.Context) (string, error) {
	binary, err := c.hostBinary()
	if err != nil {
		return "", err
	}
	result, err := c.executor.Run(ctx, sandbox.Invocation{
		Command:   []string{binary, "--print-arch"},
		Bootstrap: true,
		Capture:   true,
	})
	if err != nil {
		return "", err
	}
	if err := result.Check(); err != nil {
		return "", err
	}
	architecture := strings.TrimSpace(string(result.Stdout))
	if architecture == "" {
		return "", fmt.Errorf("%s --print-arch printed nothing", binary)
	}
	return architecture, nil
}

// hostBinary resolves the configured binary on PATH. Absolute paths are
// used as given.
func (c *Client) hostBinary() (string, error) {
	if strings.ContainsRune(c.binary, '/') {
		return c.binary, nil
	}
	path, err := exec.LookPath(c.binary)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: install apk-tools on the host", c.binary)
	}
	return path, nil
}
