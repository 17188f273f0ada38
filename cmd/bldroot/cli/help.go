// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// PrintHelp writes the command's description, usage line, subcommand
// table, flags and examples to w.
func (c *Command) PrintHelp(w io.Writer) {
	var sections []string

	if text := c.Description; text != "" {
		sections = append(sections, text)
	} else if c.Summary != "" {
		sections = append(sections, c.Summary)
	}

	sections = append(sections, "Usage:\n  "+c.usageLine())

	if len(c.Subcommands) > 0 {
		var table strings.Builder
		tw := tabwriter.NewWriter(&table, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
		sections = append(sections, "Commands:\n"+strings.TrimRight(table.String(), "\n"))
	}

	if c.Flags != nil {
		if usage := strings.TrimRight(c.Flags().FlagUsages(), "\n"); usage != "" {
			sections = append(sections, "Flags:\n"+usage)
		}
	}

	if len(c.Examples) > 0 {
		var examples strings.Builder
		examples.WriteString("Examples:")
		for _, example := range c.Examples {
			if example.Description != "" {
				examples.WriteString("\n  # " + example.Description)
			}
			examples.WriteString("\n  " + example.Command)
		}
		sections = append(sections, examples.String())
	}

	if len(c.Subcommands) > 0 {
		sections = append(sections, fmt.Sprintf("Run '%s <command> --help' for more information on a command.", c.fullName()))
	}

	fmt.Fprintln(w, strings.Join(sections, "\n\n"))
}

func (c *Command) usageLine() string {
	switch {
	case c.Usage != "":
		return c.Usage
	case len(c.Subcommands) > 0:
		return c.fullName() + " <command> [flags]"
	default:
		return c.fullName() + " [flags]"
	}
}
