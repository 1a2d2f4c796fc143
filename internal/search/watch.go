package search

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDelay = 200 * time.Millisecond

// Watch reloads the catalog at path into ix whenever the file changes, until
// ctx is cancelled. The parent directory is watched so editors that replace
// the file by rename are picked up. onReload (if non-nil) runs after content
// actually changed. A catalog that fails to load keeps the previous content.
func Watch(ctx context.Context, ix *Index, path string, logger *slog.Logger, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("catalog watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDelay)
			timerCh = timer.C
		} else {
			timer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("catalog watcher: stopped")
			return nil

		case <-timerCh:
			changed, err := ix.Load(abs)
			if err != nil {
				logger.Warn("catalog watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			if !changed {
				continue
			}
			logger.Info("catalog watcher: reloaded", slog.String("checksum", ix.Checksum()))
			if onReload != nil {
				onReload()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
