// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/bldroot/lib/binhash"
	"github.com/bureau-foundation/bldroot/lib/paths"
)

// refreshFakeroot copies the host privilege-emulation helper into the
// root when the root copy is missing or its digest differs. The copy is
// written to a temporary file and renamed into place.
func refreshFakeroot(layout paths.Layout) error {
	source := layout.FakerootHelper()
	target := layout.RootFakerootHelper()

	same, err := binhash.SameContent(source, target)
	if err != nil {
		return fmt.Errorf("checking fakeroot helper: %w", err)
	}
	if same {
		return nil
	}

	input, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening fakeroot helper: %w", err)
	}
	defer input.Close()

	output, err := os.CreateTemp(filepath.Dir(target), ".cbuild_fakeroot-*")
	if err != nil {
		return fmt.Errorf("creating fakeroot helper copy: %w", err)
	}
	temporary := output.Name()
	defer os.Remove(temporary)

	if _, err := io.Copy(output, input); err != nil {
		output.Close()
		return fmt.Errorf("copying fakeroot helper: %w", err)
	}
	if err := output.Chmod(0o644); err != nil {
		output.Close()
		return fmt.Errorf("setting fakeroot helper mode: %w", err)
	}
	if err := output.Close(); err != nil {
		return fmt.Errorf("writing fakeroot helper: %w", err)
	}
	if err := os.Rename(temporary, target); err != nil {
		return fmt.Errorf("installing fakeroot helper: %w", err)
	}
	return nil
}
