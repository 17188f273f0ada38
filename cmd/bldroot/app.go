// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bldroot/buildroot"
	"github.com/bureau-foundation/bldroot/cmd/bldroot/cli"
	"github.com/bureau-foundation/bldroot/lib/config"
	"github.com/bureau-foundation/bldroot/sandbox"
)

// app carries the process streams every command writes to.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

func (a *app) root() *cli.Command {
	return &cli.Command{
		Name:   "bldroot",
		Output: a.stderr,
		Description: `Manage the sandboxed build root used to compile distribution packages.

Configuration is read from --config, then from the file named by
BLDROOT_CONFIG, and otherwise from built-in defaults under
~/.cache/bldroot.`,
		Subcommands: []*cli.Command{
			a.bootstrapCommand(),
			a.updateCommand(),
			a.enterCommand(),
			a.reposCommand(),
			a.removeAutodepsCommand(),
			a.statusCommand(),
			a.doctorCommand(),
			a.snapshotCommand(),
			a.restoreCommand(),
			a.zapCommand(),
			a.versionCommand(),
		},
	}
}

// globalOptions are accepted by every command.
type globalOptions struct {
	configPath string
	verbose    bool
}

func (g *globalOptions) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&g.configPath, "config", "", "configuration file (YAML or JSONC); overrides "+config.EnvironmentVariable)
	flagSet.BoolVarP(&g.verbose, "verbose", "v", false, "log every command run in the build root")
}

// flags returns a Flags constructor registering the global options
// followed by whatever extra adds.
func (g *globalOptions) flags(name string, extra func(*pflag.FlagSet)) func() *pflag.FlagSet {
	return func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
		g.register(flagSet)
		if extra != nil {
			extra(flagSet)
		}
		return flagSet
	}
}

func (g *globalOptions) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case g.configPath != "":
		cfg, err = config.LoadFile(g.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// workspace is an opened configuration and session for one command.
type workspace struct {
	config  *config.Config
	session *buildroot.Session
	logger  *slog.Logger
}

func (g *globalOptions) open(command string) (*workspace, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.NewCommandLogger(g.verbose).With("command", command)

	session, err := buildroot.New(buildroot.Config{
		Layout:         cfg.Layout(),
		Launcher:       cfg.Sandbox.Launcher,
		Hostname:       cfg.Sandbox.Hostname,
		Resources:      sandboxResources(cfg.Sandbox.Resources),
		AgeIdentity:    cfg.Signing.AgeIdentity,
		PackageManager: cfg.PackageManager.Binary,
		BasePackage:    cfg.PackageManager.BasePackage,
		ResolvConf:     cfg.Host.ResolvConf,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	return &workspace{config: cfg, session: session, logger: logger}, nil
}

// locked runs fn while holding the build root lock.
func (w *workspace) locked(ctx context.Context, fn func() error) error {
	unlock, err := w.session.Lock(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(); err != nil {
			w.logger.Warn("releasing build root lock", "error", err)
		}
	}()
	return fn()
}

func sandboxResources(resources config.ResourceConfig) sandbox.ResourceConfig {
	return sandbox.ResourceConfig{
		TasksMax:  resources.TasksMax,
		MemoryMax: resources.MemoryMax,
		CPUQuota:  resources.CPUQuota,
	}
}

// signalContext is cancelled on SIGINT or SIGTERM, which kills any
// command running in the build root.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// noArguments rejects stray positional arguments.
func noArguments(command string, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%s takes no arguments (got %q)", command, args[0])
	}
	return nil
}
