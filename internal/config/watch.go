package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WorkspaceWatcher reloads a workspace's connection registry when its config
// or env file changes.
type WorkspaceWatcher struct {
	root     string
	debounce time.Duration
	logger   *zap.Logger
	onChange func(*Registry)
}

// NewWorkspaceWatcher creates a watcher for root. onChange receives every
// successfully reloaded registry.
func NewWorkspaceWatcher(root string, logger *zap.Logger, onChange func(*Registry)) *WorkspaceWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceWatcher{
		root:     root,
		debounce: 200 * time.Millisecond,
		logger:   logger.With(zap.String("component", "config-watcher")),
		onChange: onChange,
	}
}

// Run watches until ctx is cancelled. A workspace without a config directory
// is not watched.
func (w *WorkspaceWatcher) Run(ctx context.Context) error {
	dir := filepath.Join(w.root, WorkspaceDir)
	if _, err := os.Stat(dir); err != nil {
		w.logger.Debug("no workspace config directory", zap.String("dir", dir))
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *WorkspaceWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	return base == WorkspaceFile || base == WorkspaceEnv
}

func (w *WorkspaceWatcher) reload() {
	reg, err := LoadWorkspaceConfig(w.root)
	if err != nil {
		w.logger.Warn("failed to reload workspace config", zap.Error(err))
		return
	}
	w.logger.Info("workspace config reloaded", zap.Strings("aliases", reg.Aliases()))
	if w.onChange != nil {
		w.onChange(reg)
	}
}
