// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"sort"
)

// forwardedVariables pass from the host unless namespaces are fully
// unshared.
var forwardedVariables = []string{
	"NO_PROXY",
	"FTP_PROXY",
	"HTTP_PROXY",
	"HTTPS_PROXY",
	"SOCKS_PROXY",
	"FTP_RETRIES",
	"HTTP_PROXY_AUTH",
}

const (
	// StateDirVariable names the build-tool state directory; its
	// wrappers subdirectory is searched before the system PATH.
	StateDirVariable = "CBUILD_STATEDIR"

	// CompilerCacheVariable names a compiler-cache directory searched
	// before the wrappers.
	CompilerCacheVariable = "CCACHEPATH"

	fakerootNoChownVariable = "FAKEROOTDONTTRYCHOWN"
)

// composeEnvironment builds the child environment for inv. hostArch is
// omitted from the result when empty.
func composeEnvironment(inv *Invocation, hostArch string) map[string]string {
	defaultPath := "/usr/bin"
	if inv.Bootstrap {
		defaultPath = os.Getenv("PATH")
	}

	env := map[string]string{
		"PATH":       defaultPath,
		"SHELL":      "/bin/sh",
		"HOME":       "/tmp",
		"LC_COLLATE": "C",
		"LANG":       "C.UTF-8",
	}
	if hostArch != "" {
		env["UNAME_m"] = hostArch
	}
	for key, value := range inv.Env {
		env[key] = value
	}

	if !inv.UnshareAll {
		for _, name := range forwardedVariables {
			if value, ok := os.LookupEnv(name); ok {
				env[name] = value
			}
		}
	}

	if stateDir, ok := env[StateDirVariable]; ok {
		env["PATH"] = stateDir + "/wrappers:" + env["PATH"]
	}
	if !inv.NoNewSession {
		env["PYTHONUNBUFFERED"] = "1"
	}
	// The compiler cache must intercept the wrappers, not the reverse.
	if cachePath, ok := env[CompilerCacheVariable]; ok {
		env["PATH"] = cachePath + ":" + env["PATH"]
	}
	if inv.Fakeroot {
		env[fakerootNoChownVariable] = "1"
	}
	return env
}

// environList renders env as sorted KEY=VALUE pairs for exec.Cmd.
func environList(env map[string]string) []string {
	keys := sortedKeys(env)
	list := make([]string, 0, len(keys))
	for _, key := range keys {
		list = append(list, key+"="+env[key])
	}
	return list
}

func sortedKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
