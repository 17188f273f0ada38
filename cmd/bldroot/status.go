// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/bldroot/buildroot"
	"github.com/bureau-foundation/bldroot/cmd/bldroot/cli"
)

// rootStatus is what the status command reports.
type rootStatus struct {
	Root         string
	State        buildroot.State
	Arch         string
	Repositories []string
	BuildDir     string
	DestDir      string
}

func (a *app) statusCommand() *cli.Command {
	var options globalOptions

	return &cli.Command{
		Name:    "status",
		Summary: "Show the build root's state and repositories",
		Usage:   "bldroot status [flags]",
		Flags:   options.flags("status", nil),
		Run: func(args []string) error {
			if err := noArguments("status", args); err != nil {
				return err
			}
			ws, err := options.open("status")
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			state, err := ws.session.ResolveState(ctx, false)
			if err != nil {
				return err
			}
			layout := ws.session.Layout()
			identity, _ := ws.session.Arch().Host()
			repositories, err := readRepositoryFile(layout.RepositoryFile())
			if err != nil {
				return err
			}

			renderStatus(a.stdout, rootStatus{
				Root:         layout.Root,
				State:        state,
				Arch:         identity,
				Repositories: repositories,
				BuildDir:     layout.BuildWorkDir(),
				DestDir:      layout.DestinationDir(),
			})
			return nil
		},
	}
}

func readRepositoryFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func renderStatus(w io.Writer, status rootStatus) {
	renderer := lipgloss.NewRenderer(w)
	label := renderer.NewStyle().Bold(true).Width(14)
	good := renderer.NewStyle().Foreground(lipgloss.Color("2"))
	bad := renderer.NewStyle().Foreground(lipgloss.Color("3"))
	faint := renderer.NewStyle().Faint(true)

	stateStyle := bad
	if status.State == buildroot.Initialized {
		stateStyle = good
	}
	identity := status.Arch
	if identity == "" {
		identity = "unknown"
	}

	fmt.Fprintln(w, label.Render("Build root")+status.Root)
	fmt.Fprintln(w, label.Render("State")+stateStyle.Render(status.State.String()))
	fmt.Fprintln(w, label.Render("Arch")+identity)
	fmt.Fprintln(w, label.Render("Build dir")+status.BuildDir)
	fmt.Fprintln(w, label.Render("Dest dir")+status.DestDir)

	if len(status.Repositories) == 0 {
		fmt.Fprintln(w, label.Render("Repositories")+faint.Render("none"))
		return
	}
	fmt.Fprintln(w, label.Render("Repositories")+fmt.Sprintf("%d", len(status.Repositories)))
	for _, repository := range status.Repositories {
		fmt.Fprintln(w, "  "+faint.Render(repository))
	}
}
