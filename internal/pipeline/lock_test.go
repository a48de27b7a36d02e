package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	ctx := context.Background()

	release, err := AcquireLock(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	if _, err := AcquireLock(ctx, path); err == nil {
		t.Error("second acquire must fail while the lock is held")
	}

	release()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("release must remove the lock file")
	}

	release2, err := AcquireLock(ctx, path)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release2()
}

func TestAcquireLockStaleTakeover(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	if err := os.WriteFile(path, []byte("1 old\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-lockTTL - time.Minute)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	release, err := AcquireLock(context.Background(), path)
	if err != nil {
		t.Fatalf("stale lock must be taken over: %v", err)
	}
	release()
}

func TestAcquireLockDisabled(t *testing.T) {
	release, err := AcquireLock(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	release()
}
