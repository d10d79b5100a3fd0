// Package watch reruns a callback when any of a set of files changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Files watches paths and calls fn, debounced, after they change. Parent
// directories are watched so editors that replace files on save are seen.
// A directory path triggers on changes to any file directly inside it.
// Files blocks until ctx is done.
func Files(ctx context.Context, paths []string, debounce time.Duration, logger *zap.Logger, fn func(context.Context)) error {
	if len(paths) == 0 {
		return errors.New("watch: no files")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	logger = logger.Named("watch")

	files, dirs, err := targets(paths)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	logger.Info("watching", zap.Strings("files", paths), zap.Duration("debounce", debounce))

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)

	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerC = timer.C

			return
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}

		timer.Reset(debounce)
		timerC = timer.C
	}

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timerC:
			timerC = nil
			fn(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watcher error", zap.Error(err))
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if shouldTrigger(evt, files) {
				logger.Debug("change detected", zap.String("file", evt.Name), zap.Stringer("op", evt.Op))
				resetTimer()
			}
		}
	}
}

// targets maps every watched path to whether it is a directory, and lists
// the directories to register with the watcher.
func targets(paths []string) (map[string]bool, []string, error) {
	files := make(map[string]bool, len(paths))
	seen := map[string]struct{}{}

	var dirs []string

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, fmt.Errorf("watch %s: %w", p, err)
		}

		fi, err := os.Stat(abs)
		isDir := err == nil && fi.IsDir()
		files[abs] = isDir

		dir := filepath.Dir(abs)
		if isDir {
			dir = abs
		}

		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}

	return files, dirs, nil
}

func shouldTrigger(evt fsnotify.Event, files map[string]bool) bool {
	if strings.TrimSpace(evt.Name) == "" {
		return false
	}

	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	abs, err := filepath.Abs(evt.Name)
	if err != nil {
		return false
	}

	if _, ok := files[abs]; ok {
		return true
	}

	return files[filepath.Dir(abs)]
}
