// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"testing"
)

func TestComposeEnvironment_Base(t *testing.T) {
	env := composeEnvironment(&Invocation{Command: []string{"true"}}, "x86_64")

	want := map[string]string{
		"PATH":             "/usr/bin",
		"SHELL":            "/bin/sh",
		"HOME":             "/tmp",
		"LC_COLLATE":       "C",
		"LANG":             "C.UTF-8",
		"UNAME_m":          "x86_64",
		"PYTHONUNBUFFERED": "1",
	}
	for key, value := range want {
		if env[key] != value {
			t.Errorf("%s = %q, want %q", key, env[key], value)
		}
	}
	if _, ok := env[fakerootNoChownVariable]; ok {
		t.Error("FAKEROOTDONTTRYCHOWN set without fakeroot")
	}
}

func TestComposeEnvironment_UnsetArch(t *testing.T) {
	env := composeEnvironment(&Invocation{Command: []string{"true"}}, "")
	if _, ok := env["UNAME_m"]; ok {
		t.Error("UNAME_m set although the host architecture is unknown")
	}
}

func TestComposeEnvironment_Overrides(t *testing.T) {
	env := composeEnvironment(&Invocation{
		Command: []string{"true"},
		Env:     map[string]string{"HOME": "/builddir", "CFLAGS": "-O2"},
	}, "aarch64")
	if env["HOME"] != "/builddir" || env["CFLAGS"] != "-O2" {
		t.Errorf("overrides not applied: %v", env)
	}
}

func TestComposeEnvironment_ProxyForwarding(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://proxy:3128")
	t.Setenv("NO_PROXY", "localhost")
	t.Setenv("BLDROOT_UNRELATED", "secret")

	shared := composeEnvironment(&Invocation{Command: []string{"true"}}, "x86_64")
	if shared["HTTP_PROXY"] != "http://proxy:3128" || shared["NO_PROXY"] != "localhost" {
		t.Errorf("proxy variables not forwarded: %v", shared)
	}
	if _, ok := shared["BLDROOT_UNRELATED"]; ok {
		t.Error("variable outside the allow-list forwarded")
	}

	isolated := composeEnvironment(&Invocation{Command: []string{"true"}, UnshareAll: true}, "x86_64")
	if _, ok := isolated["HTTP_PROXY"]; ok {
		t.Error("proxy variable forwarded under full isolation")
	}
}

func TestComposeEnvironment_SearchPathOrder(t *testing.T) {
	env := composeEnvironment(&Invocation{
		Command: []string{"cc"},
		Env: map[string]string{
			StateDirVariable:      "/builddir/.cbuild",
			CompilerCacheVariable: "/usr/lib/ccache/bin",
		},
	}, "x86_64")

	want := "/usr/lib/ccache/bin:/builddir/.cbuild/wrappers:/usr/bin"
	if env["PATH"] != want {
		t.Errorf("PATH = %q, want %q", env["PATH"], want)
	}
}

func TestComposeEnvironment_Bootstrap(t *testing.T) {
	t.Setenv("PATH", "/opt/host/bin:/usr/bin")
	env := composeEnvironment(&Invocation{Command: []string{"apk"}, Bootstrap: true, Fakeroot: true}, "x86_64")
	if env["PATH"] != "/opt/host/bin:/usr/bin" {
		t.Errorf("PATH = %q, want host PATH", env["PATH"])
	}
	if env[fakerootNoChownVariable] != "1" {
		t.Error("FAKEROOTDONTTRYCHOWN not set for fakeroot")
	}
}

func TestComposeEnvironment_NoNewSession(t *testing.T) {
	env := composeEnvironment(&Invocation{Command: []string{"sh"}, NoNewSession: true}, "x86_64")
	if _, ok := env["PYTHONUNBUFFERED"]; ok {
		t.Error("PYTHONUNBUFFERED set without a new session")
	}
}

func TestEnvironList_Sorted(t *testing.T) {
	list := environList(map[string]string{"b": "2", "a": "1", "c": "3"})
	want := []string{"a=1", "b=2", "c=3"}
	for index := range want {
		if list[index] != want[index] {
			t.Fatalf("environList = %v, want %v", list, want)
		}
	}
}
