package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a watcher waits after the last file event
// before reloading.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes.
//
// The parent directory is watched, so files replaced by rename (as most
// editors save) are picked up. Invalid files are logged and skipped.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher
	last     Config
}

// NewWatcher starts watching path. The current contents, if valid, become
// the baseline that later changes are compared against.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		logger:   logger.With("config", abs),
		debounce: DefaultDebounce,
		fsw:      fsw,
	}

	if cfg, err := Load(abs); err == nil {
		w.last = cfg
	}

	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run calls fn with every valid configuration that differs from the
// previous one, until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context, fn func(Config)) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != w.path {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			if errors.Is(err, fsnotify.ErrEventOverflow) {
				timer.Reset(w.debounce)
				continue
			}

			return fmt.Errorf("config: watch %s: %w", w.path, err)

		case <-timer.C:
			w.reload(fn)
		}
	}
}

func (w *Watcher) reload(fn func(Config)) {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("ignoring invalid config", "error", err)
		return
	}

	if cfg.Equal(w.last) {
		return
	}

	w.logger.Info("config changed", "stage", cfg.Stage)
	w.last = cfg
	fn(cfg)
}

// Watch is NewWatcher followed by Run.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(Config)) error {
	w, err := NewWatcher(path, logger)
	if err != nil {
		return err
	}

	return w.Run(ctx, fn)
}
