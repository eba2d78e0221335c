package lifecycle_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/assetlife/server/internal/assetlife/lifecycle"
	"github.com/assetlife/server/internal/assetlife/types"
)

func TestRulesWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - from: AUDIT\n    to: IN_OPERATION\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rs, err := lifecycle.LoadRulesFile(path)
	if err != nil {
		t.Fatal(err)
	}
	v := lifecycle.NewValidator(rs)

	w := lifecycle.NewRulesWatcher(path, v, zerolog.Nop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	// A broken file is ignored.
	if err := os.WriteFile(path, []byte("rules: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if !v.IsAllowed(types.StageAudit, types.StageInOperation) {
		t.Fatal("broken file replaced the active rules")
	}

	if err := os.WriteFile(path, []byte("rules:\n  - from: AUDIT\n    to: TRANSFER\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if v.IsAllowed(types.StageAudit, types.StageTransfer) {
			if v.IsAllowed(types.StageAudit, types.StageInOperation) {
				t.Fatal("old edge still present after reload")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("rules were not reloaded")
}

func TestRulesWatcher_StopWithoutStart(t *testing.T) {
	w := lifecycle.NewRulesWatcher(filepath.Join(t.TempDir(), "rules.yaml"), lifecycle.NewValidator(nil), zerolog.Nop())

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a watcher that was never started")
	}
}

func TestRulesWatcher_StopAfterFailedStart(t *testing.T) {
	w := lifecycle.NewRulesWatcher(filepath.Join(t.TempDir(), "missing", "rules.yaml"), lifecycle.NewValidator(nil), zerolog.Nop())
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail for a missing directory")
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}
