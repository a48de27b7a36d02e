package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"event-radar/ingester/internal/logging"
)

const lockTTL = 15 * time.Minute

// AcquireLock serializes invocations through a lock file. A leftover
// lock older than the TTL is treated as stale and taken over. The
// returned release func removes the file; the heartbeat keeps the
// mtime fresh while the process runs.
func AcquireLock(ctx context.Context, path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	if info, err := os.Stat(path); err == nil {
		if time.Since(info.ModTime()) < lockTTL {
			return nil, fmt.Errorf("lock file %s held by another invocation", path)
		}
		logging.Warn().Str("path", path).Msg("stale lock file, taking over")
		_ = os.Remove(path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	f.Close()

	hbCtx, stop := context.WithCancel(ctx)
	go heartbeat(hbCtx, path)

	return func() {
		stop()
		_ = os.Remove(path)
	}, nil
}

func heartbeat(ctx context.Context, path string) {
	t := time.NewTicker(lockTTL / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			_ = os.Chtimes(path, now, now)
		}
	}
}
