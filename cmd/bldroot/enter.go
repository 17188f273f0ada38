// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bldroot/cmd/bldroot/cli"
	"github.com/bureau-foundation/bldroot/sandbox"
)

// enterFlags maps the enter command's flags onto an Invocation.
type enterFlags struct {
	workDir       string
	readOnlyRoot  bool
	readOnlyBuild bool
	writableDest  bool
	unshareAll    bool
	packages      bool
	rwPackages    bool
	cache         bool
	fakeroot      bool
	sign          bool
	wrapper       string
	env           []string
	bootstrap     bool
	interactive   bool
	dryRun        bool
}

func (f *enterFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.workDir, "workdir", "C", "", "working directory inside the build root")
	flagSet.BoolVar(&f.readOnlyRoot, "ro-root", false, "bind the root read-only")
	flagSet.BoolVar(&f.readOnlyBuild, "ro-build", false, "bind the build tree read-only")
	flagSet.BoolVar(&f.writableDest, "rw-dest", false, "bind the destination tree read-write")
	flagSet.BoolVar(&f.unshareAll, "unshare-all", false, "isolate the network")
	flagSet.BoolVar(&f.packages, "packages", false, "mount the local package repositories")
	flagSet.BoolVar(&f.rwPackages, "rw-packages", false, "mount the local package repositories read-write")
	flagSet.BoolVar(&f.cache, "cache", false, "mount the shared cache")
	flagSet.BoolVar(&f.fakeroot, "fakeroot", false, "run under privilege emulation")
	flagSet.BoolVar(&f.sign, "sign", false, "expose the configured signing key under /tmp")
	flagSet.StringVar(&f.wrapper, "wrapper", "", "shell script run as the command's wrapper")
	flagSet.StringArrayVarP(&f.env, "env", "e", nil, "set KEY=VALUE in the command environment (repeatable)")
	flagSet.BoolVar(&f.bootstrap, "bootstrap", false, "run on the host against the root instead of in the sandbox")
	flagSet.BoolVarP(&f.interactive, "interactive", "i", false, "keep the terminal session and forward stdin")
	flagSet.BoolVar(&f.dryRun, "dry-run", false, "print the command line instead of running it")

	// Everything after the command name belongs to the command.
	flagSet.SetInterspersed(false)
}

func (f *enterFlags) invocation(command []string, signingKey string) (sandbox.Invocation, error) {
	inv := sandbox.Invocation{
		Command:          command,
		WorkDir:          f.workDir,
		Bootstrap:        f.bootstrap,
		ReadOnlyRoot:     f.readOnlyRoot,
		ReadOnlyBuild:    f.readOnlyBuild,
		WritableDest:     f.writableDest,
		UnshareAll:       f.unshareAll,
		NoNewSession:     f.interactive,
		MountPackages:    f.packages || f.rwPackages,
		WritablePackages: f.rwPackages,
		MountCache:       f.cache,
		Fakeroot:         f.fakeroot,
	}

	if len(f.env) > 0 {
		inv.Env = make(map[string]string, len(f.env))
		for _, pair := range f.env {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return inv, fmt.Errorf("--env %q: expected KEY=VALUE", pair)
			}
			inv.Env[key] = value
		}
	}

	if f.sign {
		if signingKey == "" {
			return inv, fmt.Errorf("--sign: no signing key configured (signing.key)")
		}
		inv.SigningKey = signingKey
	}

	if f.wrapper != "" {
		body, err := os.ReadFile(f.wrapper)
		if err != nil {
			return inv, fmt.Errorf("reading wrapper: %w", err)
		}
		inv.Wrapper = string(body)
	}

	return inv, inv.Validate()
}

func (a *app) enterCommand() *cli.Command {
	var options globalOptions
	var flags enterFlags

	return &cli.Command{
		Name:    "enter",
		Summary: "Run a command inside the build root",
		Description: `Run a command inside the build root under bubblewrap, or an interactive
shell when no command is given. The command's exit status becomes
bldroot's exit status.`,
		Usage: "bldroot enter [flags] [--] [command [args...]]",
		Examples: []cli.Example{
			{Description: "Open a shell", Command: "bldroot enter"},
			{Description: "List installed packages without network access", Command: "bldroot enter --unshare-all -- apk info"},
			{Description: "Show the bwrap command line", Command: "bldroot enter --dry-run --fakeroot -- make install"},
		},
		Flags: options.flags("enter", flags.register),
		Run: func(args []string) error {
			command := args
			if len(command) == 0 {
				command = []string{"/bin/sh", "-l"}
				flags.interactive = true
			}

			ws, err := options.open("enter")
			if err != nil {
				return err
			}
			inv, err := flags.invocation(command, ws.config.Signing.Key)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			// Sets the architecture exported to the command.
			if _, err := ws.session.ResolveState(ctx, false); err != nil {
				return err
			}

			if flags.dryRun {
				line, err := ws.session.Runner().DryRun(inv)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, strings.Join(line, " \\\n  "))
				return nil
			}

			if flags.interactive {
				inv.Stdin = a.stdin
			}
			inv.Stdout = a.stdout
			inv.Stderr = a.stderr

			result, err := ws.session.Runner().Run(ctx, inv)
			if errors.Is(err, sandbox.ErrBootstrapNotInstalled) {
				return fmt.Errorf("%w (run 'bldroot bootstrap' first)", err)
			}
			if err != nil {
				return err
			}
			if !result.Success() {
				code := result.ExitCode
				if code < 0 {
					code = 1
				}
				return &cli.ExitError{Code: code}
			}
			return nil
		},
	}
}
