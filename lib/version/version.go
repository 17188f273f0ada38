// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"os"
	"runtime"

	"github.com/bureau-foundation/bldroot/lib/binhash"
)

// These variables are set via -ldflags at build time.
var (
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// Info returns "version (commit[-dirty], buildtime)".
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full returns Info plus toolchain, platform and binary digest lines.
func Full() string {
	digest, err := SelfDigest()
	if err != nil {
		digest = "unavailable"
	}
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s\n  BLAKE3: %s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH, digest)
}

// SelfDigest returns the hex BLAKE3 digest of the running binary.
func SelfDigest() (string, error) {
	executable, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolving own executable path: %w", err)
	}
	digest, err := binhash.HashFile(executable)
	if err != nil {
		return "", err
	}
	return digest.String(), nil
}
