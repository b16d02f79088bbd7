package worker

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPrunerRemovesExpiredArtifacts(t *testing.T) {
	dir := t.TempDir()
	ownerDir := filepath.Join(dir, "owner-1")
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		t.Fatal(err)
	}

	old := filepath.Join(ownerDir, "cert_old_deadbeef.json")
	fresh := filepath.Join(ownerDir, "cert_new_cafebabe.json")
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	p := NewPruner(dir, 24*time.Hour, discardLogger())
	p.prune()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired artifact survived prune")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh artifact removed: %v", err)
	}
}

func TestPrunerDisabledWithoutRetention(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cert_x_deadbeef.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-1000 * time.Hour)
	if err := os.Chtimes(path, stale, stale); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		p := NewPruner(dir, 0, discardLogger())
		p.Start(t.Context())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner with zero retention did not return immediately")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact removed with retention disabled: %v", err)
	}
}
