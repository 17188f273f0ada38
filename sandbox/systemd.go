// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ResourceConfig holds limits applied through a systemd scope. Zero or
// empty values leave a limit unset.
type ResourceConfig struct {
	// TasksMax limits processes and threads.
	TasksMax int

	// MemoryMax is a systemd size such as "8G".
	MemoryMax string

	// CPUQuota is a systemd percentage such as "400%".
	CPUQuota string
}

// HasLimits reports whether any limit is set.
func (r ResourceConfig) HasLimits() bool {
	return r.TasksMax > 0 || r.MemoryMax != "" || r.CPUQuota != ""
}

// Validate checks that the limits parse.
func (r ResourceConfig) Validate() error {
	var errs []error
	if r.TasksMax < 0 {
		errs = append(errs, fmt.Errorf("tasks limit %d is negative", r.TasksMax))
	}
	if _, err := ParseMemoryLimit(r.MemoryMax); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseCPUQuota(r.CPUQuota); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SystemdScope wraps command execution in a transient systemd scope.
type SystemdScope struct {
	// Name is the unit name. Empty lets systemd generate one, which
	// keeps concurrent builds from colliding.
	Name string

	// Resources defines the limits.
	Resources ResourceConfig

	// User runs the scope in the user's service manager.
	User bool
}

// NewSystemdScope creates a user scope wrapper.
func NewSystemdScope(name string, resources ResourceConfig) *SystemdScope {
	return &SystemdScope{
		Name:      name,
		Resources: resources,
		User:      true,
	}
}

// Available checks if systemd-run is available.
func (s *SystemdScope) Available() bool {
	_, err := exec.LookPath("systemd-run")
	return err == nil
}

// WrapCommand prefixes cmd with systemd-run. The command is returned
// unchanged when systemd-run is missing or no limit is set.
func (s *SystemdScope) WrapCommand(cmd []string) []string {
	if !s.Resources.HasLimits() || !s.Available() {
		return cmd
	}

	args := []string{"systemd-run"}
	if s.User {
		args = append(args, "--user")
	}
	args = append(args, "--scope", "--quiet")
	if s.Name != "" {
		args = append(args, "--unit="+s.Name)
	}

	if s.Resources.TasksMax > 0 {
		args = append(args, fmt.Sprintf("--property=TasksMax=%d", s.Resources.TasksMax))
	}
	if s.Resources.MemoryMax != "" {
		args = append(args, "--property=MemoryMax="+s.Resources.MemoryMax)
	}
	if s.Resources.CPUQuota != "" {
		args = append(args, "--property=CPUQuota="+s.Resources.CPUQuota)
	}

	args = append(args, "--")
	return append(args, cmd...)
}

// ParseMemoryLimit parses a memory limit such as "2G" or "512M" into
// bytes. Empty and "infinity" return 0.
func ParseMemoryLimit(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "infinity" {
		return 0, nil
	}

	var multiplier uint64 = 1
	numStr := s
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1 << 10
	case 'M':
		multiplier = 1 << 20
	case 'G':
		multiplier = 1 << 30
	case 'T':
		multiplier = 1 << 40
	}
	if multiplier != 1 {
		numStr = s[:len(s)-1]
	}

	var value uint64
	if _, err := fmt.Sscanf(numStr, "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", s, err)
	}
	return value * multiplier, nil
}

// ParseCPUQuota parses a CPU quota such as "200%" into a percentage.
// Empty and "infinity" return 0.
func ParseCPUQuota(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "infinity" {
		return 0, nil
	}

	var value int
	if _, err := fmt.Sscanf(strings.TrimSuffix(s, "%"), "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid CPU quota %q: %w", s, err)
	}
	return value, nil
}
