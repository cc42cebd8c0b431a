package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchFile calls reload each time path is written or replaced, until ctx
// is cancelled. A reload error is logged and the previous state stays active.
//
// The parent directory is watched rather than the file, so saves that
// rename a temporary file over path keep being seen.
func WatchFile(ctx context.Context, path string, logger *zap.Logger, reload func(path string) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	logger.Info("watching file for changes", zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// A rename-style save shows up as Create on the target name.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if err := reload(path); err != nil {
				logger.Error("reload failed, keeping previous state", zap.String("path", path), zap.Error(err))
				continue
			}
			logger.Info("reloaded", zap.String("path", path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", zap.Error(err))
		}
	}
}
