package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce is how long Watch waits after the last event before loading.
var WatchDebounce = 100 * time.Millisecond

// Watch reloads path whenever it is written or replaced and passes the new
// config to onChange. Load failures go to onError and the previous config
// stays in effect. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file, since editors often
// save by renaming a temporary file over the original. Events are debounced
// by WatchDebounce so a truncate-then-write save is loaded once, complete.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching config dir: %w", err)
	}
	slog.Info("watching config", "path", abs)

	debounce := time.NewTimer(WatchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(WatchDebounce)
		case <-debounce.C:
			// Mid-save truncation; the write that follows re-arms the timer
			if info, err := os.Stat(abs); err == nil && info.Size() == 0 {
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				slog.Warn("config reload failed", "path", abs, "error", err)
				if onError != nil {
					onError(err)
				}
				continue
			}
			slog.Info("config reloaded", "path", abs)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(fmt.Errorf("config watcher: %w", err))
			}
		}
	}
}
