// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bldroot manages the sandboxed build root used to compile
// distribution packages: it bootstraps the root from a package
// repository, keeps its repository list and package index current,
// runs commands inside it under bubblewrap, and removes per-build
// dependency sets.
package main

import (
	"os"

	"github.com/bureau-foundation/bldroot/lib/process"
)

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	process.Exit(app.root().Execute(os.Args[1:]))
}
