// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"os/exec"
	"strings"
)

// Capabilities describes what sandbox features are available on this
// system.
type Capabilities struct {
	BwrapAvailable bool
	BwrapPath      string
	BwrapVersion   string

	// UserNamespacesEnabled is true if bwrap could create a user
	// namespace.
	UserNamespacesEnabled bool

	SystemdRunAvailable bool

	FakerootAvailable bool
}

// DetectCapabilities inspects the host. launcher may be empty to search
// the standard locations.
func DetectCapabilities(launcher string) *Capabilities {
	caps := &Capabilities{}

	path := launcher
	if path == "" {
		path, _ = BwrapPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			caps.BwrapAvailable = true
			caps.BwrapPath = path
			if out, err := exec.Command(path, "--version").Output(); err == nil {
				caps.BwrapVersion = strings.TrimSpace(string(out))
			}
			caps.UserNamespacesEnabled = checkUserNamespaces(path)
		}
	}

	if _, err := exec.LookPath("systemd-run"); err == nil {
		caps.SystemdRunAvailable = true
	}
	if _, err := exec.LookPath("fakeroot"); err == nil {
		caps.FakerootAvailable = true
	}
	return caps
}

// CanRunSandbox returns true if sandboxed commands can run.
func (c *Capabilities) CanRunSandbox() bool {
	return c.BwrapAvailable && c.UserNamespacesEnabled
}

// CanBootstrap returns true if bootstrap installs can run.
func (c *Capabilities) CanBootstrap() bool {
	return c.FakerootAvailable
}

func checkUserNamespaces(bwrapPath string) bool {
	data, err := os.ReadFile("/proc/sys/kernel/unprivileged_userns_clone")
	if err == nil && strings.TrimSpace(string(data)) == "0" {
		return false
	}
	cmd := exec.Command(bwrapPath,
		"--unshare-user",
		"--ro-bind", "/", "/",
		"--",
		"true",
	)
	return cmd.Run() == nil
}

// SkipReason returns why sandboxing is unavailable, or "" if it is
// available.
func (c *Capabilities) SkipReason() string {
	if !c.BwrapAvailable {
		return "bubblewrap not installed"
	}
	if !c.UserNamespacesEnabled {
		return "unprivileged user namespaces not enabled (set kernel.unprivileged_userns_clone=1)"
	}
	return ""
}
