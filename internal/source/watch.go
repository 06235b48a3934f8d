package source

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce absorbs the burst of events editors emit for a single save.
const watchDebounce = 100 * time.Millisecond

// Watch calls fn whenever the schedule at path changes, until ctx is done.
// The parent directory is watched so atomic saves (write then rename) are
// seen. When path is a directory every schedule file in it is watched.
func Watch(ctx context.Context, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating schedule watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return err
	}
	dir, match := filepath.Dir(abs), func(name string) bool { return filepath.Clean(name) == abs }
	if isDir(abs) {
		dir = abs
		match = func(name string) bool {
			ext := filepath.Ext(name)
			return ext == ".yaml" || ext == ".yml" || ext == ".json"
		}
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go runWatcher(ctx, watcher, match, fn)
	return nil
}

func runWatcher(ctx context.Context, watcher *fsnotify.Watcher, match func(string) bool, fn func()) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !match(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, fn)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("feaso: schedule watcher error: %v", err)
		}
	}
}
