// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pkgmgr

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/bldroot/lib/arch"
	"github.com/bureau-foundation/bldroot/lib/paths"
	"github.com/bureau-foundation/bldroot/lib/testutil"
	"github.com/bureau-foundation/bldroot/sandbox"
)

// recordingExecutor records invocations and answers from a queue of
// exit codes.
type recordingExecutor struct {
	invocations []sandbox.Invocation
	exitCodes   []int
	stdout      string
	err         error
}

func (e *recordingExecutor) Run(_ context.Context, inv sandbox.Invocation) (*sandbox.Result, error) {
	e.invocations = append(e.invocations, inv)
	if e.err != nil {
		return nil, e.err
	}
	code := 0
	if len(e.exitCodes) > 0 {
		code, e.exitCodes = e.exitCodes[0], e.exitCodes[1:]
	}
	return &sandbox.Result{Command: inv.Command, ExitCode: code, Stdout: []byte(e.stdout)}, nil
}

func newTestClient(t *testing.T, executor Executor) *Client {
	t.Helper()
	client, err := New(Config{Root: "/srv/root", Binary: "/usr/sbin/apk", Executor: executor})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestHost_CommandLine(t *testing.T) {
	executor := &recordingExecutor{}
	client := newTestClient(t, executor)

	_, err := client.Host(context.Background(), "add", []string{"--no-scripts", "base-cbuild"}, HostOptions{
		Arch:         "aarch64",
		Fakeroot:     true,
		Repositories: []string{"/srv/packages/main", "https://repo.example.org/main"},
	})
	if err != nil {
		t.Fatalf("Host: %v", err)
	}

	inv := executor.invocations[0]
	want := []string{
		"/usr/sbin/apk", "--root", "/srv/root", "--no-interactive",
		"--arch", "aarch64",
		"--repositories-file", "/dev/null",
		"--repository", "/srv/packages/main",
		"--repository", "https://repo.example.org/main",
		"add", "--no-scripts", "base-cbuild",
	}
	if !slices.Equal(inv.Command, want) {
		t.Errorf("command =\n%v\nwant\n%v", inv.Command, want)
	}
	if !inv.Bootstrap || !inv.Fakeroot {
		t.Errorf("host call must be bootstrap with fakeroot: %+v", inv)
	}
	if inv.MountPackages {
		t.Error("host call requested sandbox mounts")
	}
}

func TestSandboxed_CommandLine(t *testing.T) {
	tests := []struct {
		name     string
		options  SandboxOptions
		want     []string
		unshared bool
	}{
		{
			name: "networked",
			want: []string{"apk", "--no-interactive", "update", "-q"},
		},
		{
			name:     "isolated",
			options:  SandboxOptions{Isolated: true},
			want:     []string{"apk", "--no-interactive", "--no-network", "update", "-q"},
			unshared: true,
		},
		{
			name:    "without stage",
			options: SandboxOptions{NoStage: true},
			want:    []string{"apk", "--no-interactive", "update", "-q"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			executor := &recordingExecutor{}
			client := newTestClient(t, executor)
			if _, err := client.Sandboxed(context.Background(), "update", []string{"-q"}, test.options); err != nil {
				t.Fatal(err)
			}
			inv := executor.invocations[0]
			if !slices.Equal(inv.Command, test.want) {
				t.Errorf("command = %v, want %v", inv.Command, test.want)
			}
			if inv.Bootstrap || !inv.MountPackages || !inv.Fakeroot {
				t.Errorf("sandboxed call flags: %+v", inv)
			}
			if inv.UnshareAll != test.unshared {
				t.Errorf("UnshareAll = %v, want %v", inv.UnshareAll, test.unshared)
			}
			if inv.NoStage != test.options.NoStage {
				t.Errorf("NoStage = %v, want %v", inv.NoStage, test.options.NoStage)
			}
		})
	}
}

func TestInstalled(t *testing.T) {
	executor := &recordingExecutor{exitCodes: []int{0, 1}}
	client := newTestClient(t, executor)

	for _, want := range []bool{true, false} {
		installed, err := client.Installed(context.Background(), "autodeps-host")
		if err != nil {
			t.Fatal(err)
		}
		if installed != want {
			t.Errorf("Installed = %v, want %v", installed, want)
		}
	}

	command := strings.Join(executor.invocations[0].Command, " ")
	if !strings.Contains(command, "--allow-untrusted") || !strings.HasSuffix(command, "info --installed autodeps-host") {
		t.Errorf("query command = %s", command)
	}
	if !executor.invocations[0].Capture {
		t.Error("query output should be captured")
	}
}

func TestInstalled_ExecutorError(t *testing.T) {
	launchErr := errors.New("exec failed")
	client := newTestClient(t, &recordingExecutor{err: launchErr})
	if _, err := client.Installed(context.Background(), "autodeps-host"); !errors.Is(err, launchErr) {
		t.Errorf("error = %v, want wrapping %v", err, launchErr)
	}
}

func TestPrintArch(t *testing.T) {
	client := newTestClient(t, &recordingExecutor{stdout: "riscv64\n"})
	got, err := client.PrintArch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "riscv64" {
		t.Errorf("PrintArch = %q", got)
	}

	client = newTestClient(t, &recordingExecutor{exitCodes: []int{99}})
	var commandErr *sandbox.CommandError
	if _, err := client.PrintArch(context.Background()); !errors.As(err, &commandErr) {
		t.Errorf("error = %v, want *sandbox.CommandError", err)
	}

	client = newTestClient(t, &recordingExecutor{stdout: "\n"})
	if _, err := client.PrintArch(context.Background()); err == nil {
		t.Error("empty output accepted")
	}
}

func TestPrintArch_DetectThroughRunner(t *testing.T) {
	binary := testutil.FakeExecutable(t, t.TempDir(), "apk", `
if [ "$1" = "--print-arch" ]; then
	echo ppc64le
	exit 0
fi
exit 1
`)
	runner, err := sandbox.NewRunner(sandbox.Config{
		Layout: paths.Layout{Root: t.TempDir()},
		Arch:   &arch.State{},
	})
	if err != nil {
		t.Fatal(err)
	}
	client, err := New(Config{Root: runner.Layout().Root, Binary: binary, Executor: runner})
	if err != nil {
		t.Fatal(err)
	}

	detected, err := arch.Detect(context.Background(), client)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if detected != "ppc64le" {
		t.Errorf("Detect = %q, want ppc64le", detected)
	}
}

func TestHostBinary_Missing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	client, err := New(Config{Root: "/srv/root", Executor: &recordingExecutor{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Host(context.Background(), "info", nil, HostOptions{}); err == nil {
		t.Error("missing apk accepted")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Config{Executor: &recordingExecutor{}}); err == nil {
		t.Error("missing root accepted")
	}
	if _, err := New(Config{Root: "/srv/root"}); err == nil {
		t.Error("missing executor accepted")
	}
}
