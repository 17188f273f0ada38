// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/bldroot/lib/paths"
)

// EnvironmentVariable names the configuration file for [Load].
const EnvironmentVariable = "BLDROOT_CONFIG"

// Config is the complete bldroot configuration.
type Config struct {
	// Paths configures the build root and the host directories mounted
	// into it.
	Paths PathsConfig `yaml:"paths" json:"paths"`

	// Sandbox configures the namespace launcher.
	Sandbox SandboxConfig `yaml:"sandbox" json:"sandbox"`

	// PackageManager configures the package manager CLI.
	PackageManager PackageManagerConfig `yaml:"package_manager" json:"package_manager"`

	// Signing configures the package signing key exposed to builds.
	Signing SigningConfig `yaml:"signing" json:"signing"`

	// Host configures host files seeded into new roots.
	Host HostConfig `yaml:"host" json:"host"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// BuildRoot is the build root directory.
	BuildRoot string `yaml:"build_root" json:"build_root"`

	// BuildDir and DestDir override <build_root>/builddir and
	// <build_root>/destdir.
	BuildDir string `yaml:"builddir" json:"builddir"`
	DestDir  string `yaml:"destdir" json:"destdir"`

	// Sources holds fetched source archives.
	Sources string `yaml:"sources" json:"sources"`

	// Repository is the local build-output repository.
	Repository string `yaml:"repository" json:"repository"`

	// AltRepository is an optional second local repository.
	AltRepository string `yaml:"alt_repository" json:"alt_repository"`

	// StageRepository is an optional staged-bootstrap repository.
	StageRepository string `yaml:"stage_repository" json:"stage_repository"`

	// DistDir is the distribution checkout.
	DistDir string `yaml:"dist_dir" json:"dist_dir"`

	// Cache is an optional shared cache directory.
	Cache string `yaml:"cache" json:"cache"`

	// Helpers holds fakeroot.sh.
	Helpers string `yaml:"helpers" json:"helpers"`
}

// SandboxConfig configures the namespace launcher.
type SandboxConfig struct {
	// Launcher is the bwrap binary. Empty searches the standard
	// locations.
	Launcher string `yaml:"launcher" json:"launcher"`

	// Hostname is the hostname set inside the sandbox.
	// Default: cbuild
	Hostname string `yaml:"hostname" json:"hostname"`

	// Resources wraps sandboxed commands in a systemd scope when any
	// limit is set.
	Resources ResourceConfig `yaml:"resources" json:"resources"`
}

// ResourceConfig holds systemd scope limits. Zero or empty values
// leave the limit unset.
type ResourceConfig struct {
	// TasksMax limits the number of processes and threads.
	TasksMax int `yaml:"tasks_max" json:"tasks_max"`

	// MemoryMax is a systemd memory size such as "8G".
	MemoryMax string `yaml:"memory_max" json:"memory_max"`

	// CPUQuota is a systemd CPU quota such as "400%".
	CPUQuota string `yaml:"cpu_quota" json:"cpu_quota"`
}

// HasLimits reports whether any limit is set.
func (r ResourceConfig) HasLimits() bool {
	return r.TasksMax > 0 || r.MemoryMax != "" || r.CPUQuota != ""
}

// PackageManagerConfig configures the package manager.
type PackageManagerConfig struct {
	// Binary is the host package manager used in bootstrap mode.
	// Default: apk
	Binary string `yaml:"binary" json:"binary"`

	// BasePackage is the minimal package set installed into new roots.
	// Default: base-cbuild
	BasePackage string `yaml:"base_package" json:"base_package"`
}

// SigningConfig configures the signing key.
type SigningConfig struct {
	// Key is the private signing key. Keys ending in .age are
	// decrypted with AgeIdentity before delivery.
	Key string `yaml:"key" json:"key"`

	// AgeIdentity is the age identity file for sealed keys.
	AgeIdentity string `yaml:"age_identity" json:"age_identity"`
}

// HostConfig configures host files copied into new roots.
type HostConfig struct {
	// ResolvConf is copied to etc/resolv.conf on bootstrap.
	// Default: /etc/resolv.conf
	ResolvConf string `yaml:"resolv_conf" json:"resolv_conf"`
}

// Default returns a complete development configuration rooted under
// the user's cache directory.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".cache", "bldroot")

	return &Config{
		Paths: PathsConfig{
			BuildRoot:  filepath.Join(base, "bldroot"),
			Sources:    filepath.Join(base, "sources"),
			Repository: filepath.Join(base, "packages"),
			DistDir:    filepath.Join(homeDir, "src", "distribution"),
			Cache:      filepath.Join(base, "cache"),
			Helpers:    "/usr/libexec/bldroot",
		},
		Sandbox: SandboxConfig{
			Hostname: "cbuild",
		},
		PackageManager: PackageManagerConfig{
			Binary:      "apk",
			BasePackage: "base-cbuild",
		},
		Host: HostConfig{
			ResolvConf: "/etc/resolv.conf",
		},
	}
}

// Load loads configuration from the file named by BLDROOT_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your bldroot config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over [Default] values and
// expands variables in path fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Paths.BuildRoot = expandVars(c.Paths.BuildRoot, vars)
	c.Paths.DistDir = expandVars(c.Paths.DistDir, vars)
	vars["BUILD_ROOT"] = c.Paths.BuildRoot
	vars["DIST_DIR"] = c.Paths.DistDir

	for _, field := range []*string{
		&c.Paths.BuildDir,
		&c.Paths.DestDir,
		&c.Paths.Sources,
		&c.Paths.Repository,
		&c.Paths.AltRepository,
		&c.Paths.StageRepository,
		&c.Paths.Cache,
		&c.Paths.Helpers,
		&c.Sandbox.Launcher,
		&c.Signing.Key,
		&c.Signing.AgeIdentity,
		&c.Host.ResolvConf,
	} {
		*field = expandVars(*field, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Layout().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("paths: %w", err))
	}
	if c.Paths.Helpers == "" {
		errs = append(errs, fmt.Errorf("paths.helpers is required"))
	}
	if c.Sandbox.Hostname == "" {
		errs = append(errs, fmt.Errorf("sandbox.hostname is required"))
	}
	if c.Sandbox.Resources.TasksMax < 0 {
		errs = append(errs, fmt.Errorf("sandbox.resources.tasks_max must not be negative"))
	}
	if c.PackageManager.Binary == "" {
		errs = append(errs, fmt.Errorf("package_manager.binary is required"))
	}
	if c.PackageManager.BasePackage == "" {
		errs = append(errs, fmt.Errorf("package_manager.base_package is required"))
	}
	if strings.HasSuffix(c.Signing.Key, ".age") && c.Signing.AgeIdentity == "" {
		errs = append(errs, fmt.Errorf("signing.age_identity is required for a sealed key"))
	}

	return errors.Join(errs...)
}

// Layout returns the path layout the configuration describes.
func (c *Config) Layout() paths.Layout {
	return paths.Layout{
		Root:            c.Paths.BuildRoot,
		BuildDir:        c.Paths.BuildDir,
		DestDir:         c.Paths.DestDir,
		Sources:         c.Paths.Sources,
		Repository:      c.Paths.Repository,
		AltRepository:   c.Paths.AltRepository,
		StageRepository: c.Paths.StageRepository,
		DistDir:         c.Paths.DistDir,
		Cache:           c.Paths.Cache,
		Helpers:         c.Paths.Helpers,
	}
}
