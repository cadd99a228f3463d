package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/evmaki/pothos/internal/frame"
)

// Watch starts an fsnotify watcher on the raw frame directory and calls
// trigger once per burst of new frames, after debounce of quiet time.
// It returns when ctx is cancelled.
//
// trigger runs on the watcher goroutine and should hand off rather than
// do the work itself.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *slog.Logger, trigger func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	if debounce <= 0 {
		debounce = 5 * time.Second
	}

	logger.Info("watcher: started", slog.String("dir", dir), slog.Duration("debounce", debounce))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			trigger()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// Captures land via rename of a temp file, so Create covers both paths.
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if _, err := frame.Parse(filepath.Base(ev.Name)); err != nil {
				continue
			}
			logger.Debug("watcher: frame event", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
