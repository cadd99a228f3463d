package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_BurstTriggersOnce(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, dir, 200*time.Millisecond, logger, func() { runs.Add(1) })
	}()

	time.Sleep(100 * time.Millisecond)

	for _, name := range []string{"06-01-2024_10:00.jpg", "06-01-2024_11:00.jpg"} {
		_ = os.WriteFile(filepath.Join(dir, name), []byte("frame"), 0o644)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return runs.Load() >= 1
	}, "watcher did not trigger")

	time.Sleep(400 * time.Millisecond)
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d, want 1 for a single burst", n)
	}

	cancel()
	<-done
}

func TestWatcher_IgnoresNonFrames(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	go Watch(ctx, dir, 100*time.Millisecond, logger, func() { runs.Add(1) })

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(dir, "data.json"), []byte("{}"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".pothos-tmp-123"), []byte("partial"), 0o644)

	time.Sleep(500 * time.Millisecond)
	if n := runs.Load(); n != 0 {
		t.Errorf("runs = %d, want 0", n)
	}
}
