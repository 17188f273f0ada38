// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildroot

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.session.Install(ctx, "", FinalStage); err != nil {
		t.Fatal(err)
	}

	snapshot := filepath.Join(t.TempDir(), "root.tar.lz4")
	if err := f.session.Snapshot(snapshot); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if err := f.session.Restore(snapshot); err == nil {
		t.Fatal("restore over an initialized root accepted")
	}

	if err := f.session.Zap(); err != nil {
		t.Fatal(err)
	}
	if err := f.session.Restore(snapshot); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	ready, err := f.session.Ready(ctx)
	if err != nil || !ready {
		t.Errorf("restored root ready = %v (%v)", ready, err)
	}
}

func TestSnapshot_Uninitialized(t *testing.T) {
	f := newFixture(t)
	if err := f.session.Snapshot(filepath.Join(t.TempDir(), "root.tar")); err == nil {
		t.Error("snapshot of an uninitialized root accepted")
	}
}
