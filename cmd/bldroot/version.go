// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/bureau-foundation/bldroot/cmd/bldroot/cli"
	"github.com/bureau-foundation/bldroot/lib/version"
)

func (a *app) versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Show version information",
		Usage:   "bldroot version",
		Run: func(args []string) error {
			fmt.Fprintf(a.stdout, "bldroot %s\n", version.Full())
			return nil
		},
	}
}
