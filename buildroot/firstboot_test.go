// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/bldroot/lib/testutil"
)

func TestPrepareFirstBoot_NoShell(t *testing.T) {
	f := newFixture(t)
	err := f.session.PrepareFirstBoot(context.Background(), "x86_64", 2)
	if !errors.Is(err, ErrBootstrapNotInstalled) {
		t.Fatalf("error = %v, want ErrBootstrapNotInstalled", err)
	}
	if _, err := os.Stat(f.layout.Marker()); !os.IsNotExist(err) {
		t.Error("marker written for a root without a shell")
	}
}

func TestPrepareFirstBoot(t *testing.T) {
	f := newFixture(t)
	f.installShell(t)

	if err := f.session.PrepareFirstBoot(context.Background(), "x86_64", 2); err != nil {
		t.Fatalf("PrepareFirstBoot: %v", err)
	}

	marker, err := os.ReadFile(f.layout.Marker())
	if err != nil || string(marker) != "x86_64\n" {
		t.Errorf("marker = %q (%v)", marker, err)
	}
	if target, err := os.Readlink(f.layout.InRoot("etc/localtime")); err != nil || target != localtimeTarget {
		t.Errorf("localtime -> %q (%v)", target, err)
	}

	passwd := testutil.ReadLines(t, f.layout.InRoot("etc/passwd"))
	wantPasswd := []string{"root:x:0:0:root:/root:/bin/sh", "cbuild:x:1337:1337:cbuild user:/tmp:/bin/nologin"}
	if !slices.Equal(passwd, wantPasswd) {
		t.Errorf("passwd = %q, want %q", passwd, wantPasswd)
	}
	// The base group file has no trailing newline.
	group := testutil.ReadLines(t, f.layout.InRoot("etc/group"))
	if !slices.Equal(group, []string{"root:x:0:", "cbuild:x:1337:"}) {
		t.Errorf("group = %q", group)
	}
	if calls := f.calls(t); len(calls) != 0 {
		t.Errorf("unexpected commands without a CA tool: %v", calls)
	}
}

func TestPrepareFirstBoot_MarkerPresent(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.layout.Marker(), "riscv64\n")

	if err := f.session.PrepareFirstBoot(context.Background(), "x86_64", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(f.layout.InRoot("etc/passwd")); !os.IsNotExist(err) {
		t.Error("initialized root was prepared again")
	}
	marker, _ := os.ReadFile(f.layout.Marker())
	if string(marker) != "riscv64\n" {
		t.Errorf("marker rewritten to %q", marker)
	}
}

func TestPrepareFirstBoot_RefreshesCertificates(t *testing.T) {
	f := newFixture(t)
	f.installShell(t)
	testutil.WriteFile(t, f.layout.InRoot(caRefreshTool), "")

	if err := f.session.PrepareFirstBoot(context.Background(), "x86_64", 2); err != nil {
		t.Fatal(err)
	}
	calls := f.calls(t)
	if !slices.Equal(calls, []string{"sandbox update-ca-certificates --fresh"}) {
		t.Errorf("calls = %v", calls)
	}
}

func TestPrepareFirstBoot_CertificateFailure(t *testing.T) {
	f := newFixture(t)
	f.installShell(t)
	testutil.WriteFile(t, f.layout.InRoot(caRefreshTool), "")
	f.setControl(t, "fail-sandbox-update-ca-certificates")

	if err := f.session.PrepareFirstBoot(context.Background(), "x86_64", 2); err != nil {
		t.Fatalf("PrepareFirstBoot: %v", err)
	}

	marker, err := os.ReadFile(f.layout.Marker())
	if err != nil {
		t.Fatalf("marker not written after a failed certificate refresh: %v", err)
	}
	if string(marker) != "x86_64\n" {
		t.Errorf("marker = %q, want x86_64", marker)
	}
	if _, err := os.Stat(f.layout.InRoot("etc/passwd")); err != nil {
		t.Errorf("passwd not prepared: %v", err)
	}
	logs := f.logs.String()
	if !strings.Contains(logs, "level=WARN") || !strings.Contains(logs, "sandbox refused update-ca-certificates") {
		t.Errorf("no warning carrying the tool's stderr in logs:\n%s", logs)
	}
}

func TestPrepareFirstBoot_MissingBaseFiles(t *testing.T) {
	f := newFixture(t)
	f.installShell(t)
	if err := os.RemoveAll(f.layout.DistDir); err != nil {
		t.Fatal(err)
	}
	if err := f.session.PrepareFirstBoot(context.Background(), "x86_64", 2); err == nil {
		t.Fatal("missing base passwd accepted")
	}
	if _, err := os.Stat(f.layout.Marker()); !os.IsNotExist(err) {
		t.Error("marker written without user databases")
	}
}
