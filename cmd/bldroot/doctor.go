// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/bureau-foundation/bldroot/cmd/bldroot/cli"
	"github.com/bureau-foundation/bldroot/sandbox"
)

func (a *app) doctorCommand() *cli.Command {
	var options globalOptions

	return &cli.Command{
		Name:    "doctor",
		Summary: "Check that this host can build",
		Description: `Check the sandbox launcher, user namespaces, systemd scopes, the
configured directories, the host package manager and the build root, then summarize which
operations this host supports. Exits 1 when any check fails.`,
		Usage: "bldroot doctor [flags]",
		Flags: options.flags("doctor", nil),
		Run: func(args []string) error {
			if err := noArguments("doctor", args); err != nil {
				return err
			}
			cfg, err := options.loadConfig()
			if err != nil {
				return err
			}

			validator := sandbox.NewValidator()
			validator.ValidateAll(cfg.Layout(), cfg.Sandbox.Launcher, sandboxResources(cfg.Sandbox.Resources))
			validator.ValidatePackageManager(cfg.PackageManager.Binary)
			validator.PrintResults(a.stdout)

			caps := sandbox.DetectCapabilities(cfg.Sandbox.Launcher)
			fmt.Fprintln(a.stdout)
			fmt.Fprintf(a.stdout, "Sandboxed commands: %s\n", supported(caps.CanRunSandbox()))
			fmt.Fprintf(a.stdout, "Bootstrap installs: %s\n", supported(caps.CanBootstrap()))
			fmt.Fprintf(a.stdout, "Resource limits:    %s\n", supported(caps.SystemdRunAvailable))

			if validator.HasErrors() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func supported(ok bool) string {
	if ok {
		return "supported"
	}
	return "unavailable"
}
