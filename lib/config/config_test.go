// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Sandbox.Hostname != "cbuild" {
		t.Errorf("expected hostname=cbuild, got %s", cfg.Sandbox.Hostname)
	}
	if cfg.PackageManager.BasePackage != "base-cbuild" {
		t.Errorf("expected base_package=base-cbuild, got %s", cfg.PackageManager.BasePackage)
	}
	if cfg.Host.ResolvConf != "/etc/resolv.conf" {
		t.Errorf("expected resolv_conf=/etc/resolv.conf, got %s", cfg.Host.ResolvConf)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when BLDROOT_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "BLDROOT_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bldroot.yaml")
	configContent := `
paths:
  build_root: /srv/roots/x86_64
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(EnvironmentVariable, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Paths.BuildRoot != "/srv/roots/x86_64" {
		t.Errorf("expected build_root=/srv/roots/x86_64, got %s", cfg.Paths.BuildRoot)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bldroot.yaml")
	configContent := `
paths:
  build_root: /srv/root
  dist_dir: /src/dist
  sources: ${BUILD_ROOT}/../sources
  repository: ${DIST_DIR}/packages
  cache: ${BLDROOT_TEST_CACHE:-/var/cache/bldroot}
sandbox:
  hostname: builder
  resources:
    tasks_max: 512
    memory_max: 8G
package_manager:
  base_package: base-minimal
signing:
  key: /keys/builder.rsa.age
  age_identity: /keys/identity.txt
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Paths.Sources != "/srv/root/../sources" {
		t.Errorf("sources = %q", cfg.Paths.Sources)
	}
	if cfg.Paths.Repository != "/src/dist/packages" {
		t.Errorf("repository = %q", cfg.Paths.Repository)
	}
	if cfg.Paths.Cache != "/var/cache/bldroot" {
		t.Errorf("cache = %q", cfg.Paths.Cache)
	}
	if cfg.Sandbox.Hostname != "builder" {
		t.Errorf("hostname = %q", cfg.Sandbox.Hostname)
	}
	if !cfg.Sandbox.Resources.HasLimits() || cfg.Sandbox.Resources.TasksMax != 512 {
		t.Errorf("resources = %+v", cfg.Sandbox.Resources)
	}
	if cfg.PackageManager.BasePackage != "base-minimal" {
		t.Errorf("base_package = %q", cfg.PackageManager.BasePackage)
	}
	// Unset fields keep defaults.
	if cfg.PackageManager.Binary != "apk" {
		t.Errorf("binary = %q, want default apk", cfg.PackageManager.Binary)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bldroot.jsonc")
	configContent := `{
  // Build root for the riscv64 builder.
  "paths": {
    "build_root": "/srv/riscv64",
    "alt_repository": "/srv/alt", /* optional */
  },
  "sandbox": {"launcher": "/opt/bwrap/bin/bwrap"},
}`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Paths.BuildRoot != "/srv/riscv64" {
		t.Errorf("build_root = %q", cfg.Paths.BuildRoot)
	}
	if cfg.Paths.AltRepository != "/srv/alt" {
		t.Errorf("alt_repository = %q", cfg.Paths.AltRepository)
	}
	if cfg.Sandbox.Launcher != "/opt/bwrap/bin/bwrap" {
		t.Errorf("launcher = %q", cfg.Sandbox.Launcher)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(configPath, []byte(`{"paths": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(configPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.Paths.BuildRoot = ""
	cfg.Sandbox.Hostname = ""
	cfg.PackageManager.Binary = ""
	cfg.Signing.Key = "/keys/sealed.rsa.age"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, fragment := range []string{"build root", "hostname", "binary", "age_identity"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q missing %q", err, fragment)
		}
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("BLDROOT_TEST_VAR", "from-env")
	vars := map[string]string{"BUILD_ROOT": "/root"}

	tests := []struct {
		input string
		want  string
	}{
		{"${BUILD_ROOT}/builddir", "/root/builddir"},
		{"${BLDROOT_TEST_VAR}", "from-env"},
		{"${BLDROOT_TEST_UNSET:-fallback}", "fallback"},
		{"${BLDROOT_TEST_UNSET}", ""},
		{"/plain/path", "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestLayout(t *testing.T) {
	cfg := Default()
	cfg.Paths.StageRepository = "/stage"
	layout := cfg.Layout()
	if layout.Root != cfg.Paths.BuildRoot || layout.StageRepository != "/stage" {
		t.Errorf("Layout = %+v", layout)
	}
}
