// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/bldroot/lib/arch"
	"github.com/bureau-foundation/bldroot/lib/paths"
	"github.com/bureau-foundation/bldroot/lib/sealed"
)

// waitDelay bounds how long Run waits for output copying after the
// child exits or is killed.
const waitDelay = 10 * time.Second

// Config holds configuration for creating a Runner.
type Config struct {
	// Layout is the build root and its host directories.
	Layout paths.Layout

	// Arch supplies the host identity exported as UNAME_m.
	Arch *arch.State

	// Launcher is the bwrap binary. Empty searches the standard
	// locations.
	Launcher string

	// Hostname is the hostname inside the sandbox.
	Hostname string

	// Resources wraps the launcher in a systemd scope when set.
	Resources ResourceConfig

	// ScopeName is the systemd unit name; empty lets systemd choose.
	ScopeName string

	// AgeIdentity decrypts sealed signing keys.
	AgeIdentity string

	// Logger for sandbox operations.
	Logger *slog.Logger
}

// Runner executes invocations against one build root.
type Runner struct {
	layout      paths.Layout
	arch        *arch.State
	launcher    string
	hostname    string
	resources   ResourceConfig
	scopeName   string
	ageIdentity string
	logger      *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(config Config) (*Runner, error) {
	if config.Layout.Root == "" {
		return nil, fmt.Errorf("build root is required")
	}
	if config.Arch == nil {
		return nil, fmt.Errorf("architecture state is required")
	}
	if err := config.Resources.Validate(); err != nil {
		return nil, fmt.Errorf("resource limits: %w", err)
	}

	root, err := filepath.Abs(config.Layout.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving build root: %w", err)
	}
	layout := config.Layout
	layout.Root = root

	hostname := config.Hostname
	if hostname == "" {
		hostname = DefaultHostname
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		layout:      layout,
		arch:        config.Arch,
		launcher:    config.Launcher,
		hostname:    hostname,
		resources:   config.Resources,
		scopeName:   config.ScopeName,
		ageIdentity: config.AgeIdentity,
		logger:      logger,
	}, nil
}

// Layout returns the runner's path layout.
func (r *Runner) Layout() paths.Layout {
	return r.layout
}

// Arch returns the architecture state the runner reads.
func (r *Runner) Arch() *arch.State {
	return r.arch
}

// Run executes inv and waits for it. The returned error covers only
// failures to validate, prepare or start the command; a command that
// ran and exited non-zero yields a Result whose Check reports it.
// Descriptors opened for inv are closed before Run returns.
func (r *Runner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	hostArch, err := r.arch.Host()
	if err != nil {
		r.logger.Debug("host architecture not set, omitting UNAME_m")
		hostArch = ""
	}
	env := composeEnvironment(&inv, hostArch)

	if inv.Bootstrap {
		return r.runHost(ctx, &inv, env)
	}
	return r.runSandboxed(ctx, &inv, env)
}

func (r *Runner) runHost(ctx context.Context, inv *Invocation, env map[string]string) (*Result, error) {
	argv := commandLine(inv, r.layout.FakerootHelper())
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = environList(env)
	if inv.WorkDir != "" {
		directory, err := filepath.Abs(inv.WorkDir)
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		cmd.Dir = directory
	}

	r.logger.Debug("running host command",
		"command", inv.Command,
		"fakeroot", inv.Fakeroot,
	)
	return r.execute(ctx, cmd, inv)
}

func (r *Runner) runSandboxed(ctx context.Context, inv *Invocation, env map[string]string) (*Result, error) {
	if _, err := os.Stat(r.layout.Shell()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBootstrapNotInstalled
		}
		return nil, fmt.Errorf("checking build root shell: %w", err)
	}
	if inv.Fakeroot {
		if err := refreshFakeroot(r.layout); err != nil {
			return nil, err
		}
	}

	launcher, err := r.launcherPath()
	if err != nil {
		return nil, err
	}

	descriptors := &descriptorSet{}
	defer func() {
		if err := descriptors.Close(); err != nil {
			r.logger.Warn("closing sandbox descriptors", "error", err)
		}
		for _, writeErr := range descriptors.writeErrors() {
			r.logger.Debug("secret pipe not fully read", "error", writeErr)
		}
	}()

	if inv.SigningKey != "" {
		if err := descriptors.addSigningKey(inv.SigningKey, r.ageIdentity); err != nil {
			return nil, err
		}
	}
	if inv.Wrapper != "" {
		if err := descriptors.addWrapper(inv.Wrapper); err != nil {
			return nil, err
		}
	}

	args, err := NewBwrapBuilder().Build(&BwrapOptions{
		Layout:      r.layout,
		Hostname:    r.hostname,
		Invocation:  inv,
		Environment: env,
		DataFiles:   descriptors.dataFiles(),
	})
	if err != nil {
		return nil, fmt.Errorf("building bwrap command: %w", err)
	}

	fullCmd := r.wrapScope(append([]string{launcher}, args...))
	cmd := exec.CommandContext(ctx, fullCmd[0], fullCmd[1:]...)
	cmd.Env = launcherEnvironment()
	cmd.ExtraFiles = descriptors.extraFiles()

	r.logger.Debug("running sandboxed command",
		"command", inv.Command,
		"workdir", inv.WorkDir,
		"fakeroot", inv.Fakeroot,
		"descriptors", len(cmd.ExtraFiles),
	)
	return r.execute(ctx, cmd, inv)
}

// launcherEnvironment is the environment of the bwrap process itself.
// The sandboxed command gets its own through --setenv; the launcher
// only needs PATH, TERM, and the variables systemd-run uses to reach
// the user manager.
func launcherEnvironment() []string {
	env := []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"TERM=" + os.Getenv("TERM"),
	}
	for _, name := range []string{"XDG_RUNTIME_DIR", "DBUS_SESSION_BUS_ADDRESS"} {
		if value, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+value)
		}
	}
	return env
}

func (r *Runner) execute(ctx context.Context, cmd *exec.Cmd, inv *Invocation) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdin = inv.Stdin
	if inv.Capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = writerOr(inv.Stdout, os.Stdout)
		cmd.Stderr = writerOr(inv.Stderr, os.Stderr)
	}
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("running %s: %w", inv.Command[0], ctxErr)
	}

	result := &Result{
		Command: inv.Command,
		Stdout:  stdout.Bytes(),
		Stderr:  stderr.Bytes(),
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return nil, fmt.Errorf("starting %s: %w", inv.Command[0], err)
	}
	return result, nil
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}

func (r *Runner) launcherPath() (string, error) {
	if r.launcher == "" {
		return BwrapPath()
	}
	if _, err := os.Stat(r.launcher); err != nil {
		return "", fmt.Errorf("sandbox launcher: %w", err)
	}
	return r.launcher, nil
}

func (r *Runner) wrapScope(cmd []string) []string {
	if !r.resources.HasLimits() {
		return cmd
	}
	scope := NewSystemdScope(r.scopeName, r.resources)
	if !scope.Available() {
		r.logger.Warn("systemd-run not available, resource limits will not be enforced")
		return cmd
	}
	return scope.WrapCommand(cmd)
}

// DryRun returns the command line Run would execute for inv without
// opening any descriptor or running anything. Descriptor numbers match
// what Run assigns.
func (r *Runner) DryRun(inv Invocation) ([]string, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	hostArch, _ := r.arch.Host()
	env := composeEnvironment(&inv, hostArch)

	if inv.Bootstrap {
		return commandLine(&inv, r.layout.FakerootHelper()), nil
	}

	args, err := NewBwrapBuilder().Build(&BwrapOptions{
		Layout:      r.layout,
		Hostname:    r.hostname,
		Invocation:  &inv,
		Environment: env,
		DataFiles:   plannedDataFiles(&inv),
	})
	if err != nil {
		return nil, fmt.Errorf("building bwrap command: %w", err)
	}

	launcher, err := r.launcherPath()
	if err != nil {
		launcher = "bwrap"
	}
	return r.wrapScope(append([]string{launcher}, args...)), nil
}

// plannedDataFiles mirrors the order in which runSandboxed registers
// descriptors.
func plannedDataFiles(inv *Invocation) []DataFile {
	var data []DataFile
	if inv.SigningKey != "" {
		data = append(data, DataFile{
			Descriptor: firstExtraDescriptor + len(data),
			Dest:       path.Join(paths.MountSecretPrefix, sealed.KeyName(inv.SigningKey)),
		})
	}
	if inv.Wrapper != "" {
		data = append(data, DataFile{
			Descriptor: firstExtraDescriptor + len(data),
			Dest:       paths.MountWrapper,
		})
	}
	return data
}
