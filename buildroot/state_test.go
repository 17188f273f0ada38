// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"context"
	"testing"

	"github.com/bureau-foundation/bldroot/lib/testutil"
)

func TestResolveState_MarkerDrivesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	state, err := f.session.ResolveState(ctx, false)
	if err != nil {
		t.Fatalf("ResolveState: %v", err)
	}
	if state != Uninitialized {
		t.Fatalf("state = %v, want uninitialized", state)
	}
	if host, _ := f.session.Arch().Host(); host != "x86_64" {
		t.Errorf("detected host = %q, want the package manager's x86_64", host)
	}

	testutil.WriteFile(t, f.layout.Marker(), "aarch64\n")

	state, _ = f.session.ResolveState(ctx, false)
	if state != Uninitialized {
		t.Errorf("cached state = %v, want uninitialized until forced", state)
	}

	state, err = f.session.ResolveState(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if state != Initialized {
		t.Errorf("forced state = %v, want initialized", state)
	}
	host, _ := f.session.Arch().Host()
	target, _ := f.session.Arch().Target()
	if host != "aarch64" || target != "aarch64" {
		t.Errorf("arch = %s/%s, want the marker's aarch64", host, target)
	}
}

func TestResolveState_InitializedSkipsDetection(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.layout.Marker(), "x86_64\n")

	ready, err := f.session.Ready(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ready {
		t.Fatal("root with marker not ready")
	}
	host, _ := f.session.Arch().Host()
	target, _ := f.session.Arch().Target()
	if host != "x86_64" || target != "x86_64" {
		t.Errorf("arch = %s/%s", host, target)
	}
	if calls := f.calls(t); len(calls) != 0 {
		t.Errorf("package manager called for an initialized root: %v", calls)
	}
}

func TestResolveState_EmptyMarker(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFile(t, f.layout.Marker(), "\n")
	if _, err := f.session.ResolveState(context.Background(), false); err == nil {
		t.Error("empty marker accepted")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Uninitialized: "uninitialized",
		Initialized:   "initialized",
		State(7):      "State(7)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
