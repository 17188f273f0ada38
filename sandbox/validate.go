// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/bureau-foundation/bldroot/lib/paths"
)

// ValidationResult holds the result of a validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator performs pre-flight checks for a build root.
type Validator struct {
	results []ValidationResult
	errors  int

	// userNamespaceSysctl is replaced in tests.
	userNamespaceSysctl string
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		userNamespaceSysctl: "/proc/sys/kernel/unprivileged_userns_clone",
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message, Warning: true})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: false, Message: message})
	v.errors++
}

// ValidateAll runs every host and layout check. launcher may be empty
// to search the standard locations.
func (v *Validator) ValidateAll(layout paths.Layout, launcher string, resources ResourceConfig) {
	v.ValidateLauncher(launcher)
	if resources.HasLimits() {
		v.ValidateSystemd()
	}
	v.ValidateUserNamespaces()
	v.ValidateDirectory("sources", layout.Sources, false)
	v.ValidateDirectory("repository", layout.Repository, false)
	v.ValidateDirectory("alt_repository", layout.AltRepository, true)
	v.ValidateDirectory("stage_repository", layout.StageRepository, true)
	v.ValidateDirectory("dist_dir", layout.DistDir, false)
	v.ValidateFakerootHelper(layout)
	v.ValidateBuildRoot(layout)
}

// ValidateLauncher checks that bubblewrap is available and runs.
func (v *Validator) ValidateLauncher(launcher string) {
	path := launcher
	if path == "" {
		found, err := BwrapPath()
		if err != nil {
			v.fail("bwrap", "bubblewrap not found in standard locations or PATH")
			return
		}
		path = found
	}

	info, err := os.Stat(path)
	if err != nil {
		v.fail("bwrap", fmt.Sprintf("cannot stat %s: %v", path, err))
		return
	}
	if info.Mode()&0o111 == 0 {
		v.fail("bwrap", fmt.Sprintf("%s is not executable", path))
		return
	}

	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		v.warn("bwrap", fmt.Sprintf("found at %s but --version failed", path))
		return
	}
	v.pass("bwrap", fmt.Sprintf("available: %s (%s)", path, strings.TrimSpace(string(output))))
}

// ValidateSystemd checks that systemd-run can enforce resource limits.
func (v *Validator) ValidateSystemd() {
	path, err := exec.LookPath("systemd-run")
	if err != nil {
		v.warn("systemd", "systemd-run not found (resource limits will not be enforced)")
		return
	}
	if err := exec.Command(path, "--user", "--scope", "--quiet", "--", "true").Run(); err != nil {
		v.warn("systemd", "systemd-run available but cannot create user scopes")
		return
	}
	v.pass("systemd", fmt.Sprintf("available: %s (user scopes supported)", path))
}

// ValidateUserNamespaces checks that unprivileged user namespaces are
// enabled.
func (v *Validator) ValidateUserNamespaces() {
	data, err := os.ReadFile(v.userNamespaceSysctl)
	if err != nil {
		if os.IsNotExist(err) {
			v.pass("userns", "user namespaces supported (no clone restriction)")
			return
		}
		v.warn("userns", fmt.Sprintf("cannot check user namespace support: %v", err))
		return
	}
	if strings.TrimSpace(string(data)) == "0" {
		v.fail("userns", "unprivileged user namespaces are disabled (set kernel.unprivileged_userns_clone=1)")
		return
	}
	v.pass("userns", "user namespaces enabled")
}

// ValidateDirectory checks that path is an existing directory. An empty
// optional path is skipped.
func (v *Validator) ValidateDirectory(name, path string, optional bool) {
	if path == "" {
		if !optional {
			v.fail(name, "path is not configured")
		}
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			v.fail(name, fmt.Sprintf("does not exist: %s", path))
		} else {
			v.fail(name, fmt.Sprintf("cannot access: %v", err))
		}
		return
	}
	if !info.IsDir() {
		v.fail(name, fmt.Sprintf("not a directory: %s", path))
		return
	}
	v.pass(name, fmt.Sprintf("exists: %s", path))
}

// ValidateFakerootHelper checks the host privilege-emulation script.
func (v *Validator) ValidateFakerootHelper(layout paths.Layout) {
	helper := layout.FakerootHelper()
	if _, err := os.Stat(helper); err != nil {
		v.fail("fakeroot", fmt.Sprintf("helper script missing: %s", helper))
		return
	}
	if _, err := exec.LookPath("fakeroot"); err != nil {
		v.warn("fakeroot", "fakeroot not found in PATH (bootstrap installs will fail)")
		return
	}
	v.pass("fakeroot", fmt.Sprintf("helper: %s", helper))
}

// ValidatePackageManager checks that the host package manager used for
// bootstrap installs can be found. A binary without a slash is
// searched on PATH.
func (v *Validator) ValidatePackageManager(binary string) {
	if binary == "" {
		v.fail("package_manager", "binary is not configured")
		return
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		v.fail("package_manager", fmt.Sprintf("%s not found (install apk-tools on the host)", binary))
		return
	}
	v.pass("package_manager", fmt.Sprintf("available: %s", path))
}

// ValidateBuildRoot reports whether the root has been bootstrapped.
// A missing shell is a warning: bootstrap creates it.
func (v *Validator) ValidateBuildRoot(layout paths.Layout) {
	if _, err := os.Stat(layout.Shell()); err != nil {
		v.warn("build_root", fmt.Sprintf("no shell in %s (run bootstrap)", layout.Root))
		return
	}
	if _, err := os.Stat(layout.Marker()); err != nil {
		v.warn("build_root", fmt.Sprintf("shell present but %s is not initialized", layout.Root))
		return
	}
	v.pass("build_root", fmt.Sprintf("initialized: %s", layout.Root))
}

// PrintResults writes validation results to a writer.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		prefix := "✓"
		switch {
		case !r.Passed:
			prefix = "✗"
		case r.Warning:
			prefix = "⚠"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Ready to build")
	}
}
