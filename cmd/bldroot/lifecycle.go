// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/bldroot/buildroot"
	"github.com/bureau-foundation/bldroot/cmd/bldroot/cli"
)

func (a *app) bootstrapCommand() *cli.Command {
	var options globalOptions
	var arch string
	var stage int

	return &cli.Command{
		Name:    "bootstrap",
		Summary: "Create the build root and install the base packages",
		Description: `Create the build root skeleton and install the base package set into it
with the host package manager, then run first-boot preparation.

An initialized root is left untouched. Stages before the final one
always install for the host architecture; --arch applies only to the
final stage.`,
		Usage: "bldroot bootstrap [flags]",
		Examples: []cli.Example{
			{Description: "Bootstrap for the host architecture", Command: "bldroot bootstrap"},
			{Description: "Bootstrap an aarch64 root", Command: "bldroot bootstrap --arch aarch64"},
		},
		Flags: options.flags("bootstrap", func(flagSet *pflag.FlagSet) {
			flagSet.StringVar(&arch, "arch", "", "architecture to install (default: host)")
			flagSet.IntVar(&stage, "stage", buildroot.FinalStage, "bootstrap stage")
		}),
		Run: func(args []string) error {
			if err := noArguments("bootstrap", args); err != nil {
				return err
			}
			if stage < 0 {
				return fmt.Errorf("--stage must not be negative")
			}
			ws, err := options.open("bootstrap")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return ws.locked(ctx, func() error {
				if err := ws.session.Install(ctx, arch, stage); err != nil {
					return err
				}
				identity, _ := ws.session.Arch().Host()
				ws.logger.Info("build root ready", "arch", identity)
				return nil
			})
		},
	}
}

func (a *app) updateCommand() *cli.Command {
	var options globalOptions

	return &cli.Command{
		Name:    "update",
		Summary: "Refresh the package index and upgrade the build root",
		Description: `Refresh the build root's package index and upgrade every installed
package. Does nothing when the root is not initialized.`,
		Usage: "bldroot update [flags]",
		Flags: options.flags("update", nil),
		Run: func(args []string) error {
			if err := noArguments("update", args); err != nil {
				return err
			}
			ws, err := options.open("update")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return ws.locked(ctx, func() error {
				return ws.session.Update(ctx)
			})
		},
	}
}

func (a *app) reposCommand() *cli.Command {
	var options globalOptions
	var noLocal, offline bool

	return &cli.Command{
		Name:    "repos",
		Summary: "Recompose the repository list and refresh the index",
		Description: `Rewrite the build root's repository list from the local, alternate,
stage and remote repositories, then refresh the package index.

Signing keys from the distribution checkout are synchronized even when
the root is not yet initialized.`,
		Usage: "bldroot repos [flags]",
		Examples: []cli.Example{
			{Description: "Index only the remote repositories, without network isolation", Command: "bldroot repos --no-local"},
			{Description: "Refresh from local repositories only", Command: "bldroot repos --offline"},
		},
		Flags: options.flags("repos", func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&noLocal, "no-local", false, "omit local repositories and keep output quiet")
			flagSet.BoolVar(&offline, "offline", false, "omit remote repositories and isolate the index refresh from the network")
		}),
		Run: func(args []string) error {
			if err := noArguments("repos", args); err != nil {
				return err
			}
			ws, err := options.open("repos")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return ws.locked(ctx, func() error {
				if _, err := ws.session.ResolveState(ctx, false); err != nil {
					return err
				}
				return ws.session.ComposeRepositoryFile(ctx, !noLocal, !offline)
			})
		},
	}
}

func (a *app) removeAutodepsCommand() *cli.Command {
	var options globalOptions
	var bootstrapping, sandboxed bool

	return &cli.Command{
		Name:    "remove-autodeps",
		Summary: "Remove the per-build dependency sets",
		Description: `Remove the virtual packages that hold a build's automatically installed
host and target dependencies. By default the host package manager is
used when the root has not completed first boot, and the sandboxed one
otherwise.`,
		Usage: "bldroot remove-autodeps [flags]",
		Flags: options.flags("remove-autodeps", func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&bootstrapping, "bootstrap", false, "remove with the host package manager")
			flagSet.BoolVar(&sandboxed, "sandbox", false, "remove with the package manager inside the root")
		}),
		Run: func(args []string) error {
			if err := noArguments("remove-autodeps", args); err != nil {
				return err
			}
			mode, err := autodepsMode(bootstrapping, sandboxed)
			if err != nil {
				return err
			}
			ws, err := options.open("remove-autodeps")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return ws.locked(ctx, func() error {
				if _, err := ws.session.ResolveState(ctx, false); err != nil {
					return err
				}
				return ws.session.RemoveAutodeps(ctx, mode)
			})
		},
	}
}

func autodepsMode(bootstrapping, sandboxed bool) (buildroot.AutodepsMode, error) {
	switch {
	case bootstrapping && sandboxed:
		return 0, fmt.Errorf("--bootstrap and --sandbox are mutually exclusive")
	case bootstrapping:
		return buildroot.AutodepsBootstrap, nil
	case sandboxed:
		return buildroot.AutodepsSandbox, nil
	default:
		return buildroot.AutodepsAuto, nil
	}
}

func (a *app) snapshotCommand() *cli.Command {
	var options globalOptions

	return &cli.Command{
		Name:    "snapshot",
		Summary: "Archive an initialized build root",
		Description: `Write the build root to a tar archive. The compression is chosen from
the file name: .tar.zst, .tar.lz4, .tar.gz, .tar.xz or plain .tar.`,
		Usage: "bldroot snapshot [flags] <file>",
		Examples: []cli.Example{
			{Description: "Snapshot with zstd compression", Command: "bldroot snapshot bldroot-x86_64.tar.zst"},
		},
		Flags: options.flags("snapshot", nil),
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("snapshot requires exactly one archive path")
			}
			ws, err := options.open("snapshot")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return ws.locked(ctx, func() error {
				return ws.session.Snapshot(args[0])
			})
		},
	}
}

func (a *app) restoreCommand() *cli.Command {
	var options globalOptions

	return &cli.Command{
		Name:    "restore",
		Summary: "Recreate the build root from a snapshot",
		Description: `Unpack a snapshot written by "bldroot snapshot" into the build root.
Refuses to restore over an initialized root; run "bldroot zap" first.`,
		Usage: "bldroot restore [flags] <file>",
		Flags: options.flags("restore", nil),
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("restore requires exactly one archive path")
			}
			ws, err := options.open("restore")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return ws.locked(ctx, func() error {
				if err := ws.session.Restore(args[0]); err != nil {
					return err
				}
				return reportState(ctx, ws)
			})
		},
	}
}

func (a *app) zapCommand() *cli.Command {
	var options globalOptions

	return &cli.Command{
		Name:    "zap",
		Summary: "Remove the build root",
		Description: `Delete the build root directory and everything in it, including
read-only directories left by package installs.`,
		Usage: "bldroot zap [flags]",
		Flags: options.flags("zap", nil),
		Run: func(args []string) error {
			if err := noArguments("zap", args); err != nil {
				return err
			}
			ws, err := options.open("zap")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			return ws.locked(ctx, func() error {
				if err := ws.session.Zap(); err != nil {
					return err
				}
				ws.logger.Info("build root removed")
				return nil
			})
		},
	}
}

func reportState(ctx context.Context, ws *workspace) error {
	state, err := ws.session.ResolveState(ctx, true)
	if err != nil {
		return err
	}
	identity, _ := ws.session.Arch().Host()
	ws.logger.Info("build root restored", "state", state.String(), "arch", identity)
	return nil
}
