package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultReloadDelay debounces bursts of file events into one reload.
const DefaultReloadDelay = 300 * time.Millisecond

// LoadResult reports one reload of a watched parameter file.
type LoadResult struct {
	Path     string
	Failures int
	Err      error
	At       time.Time
}

// WatchConfig configures a Watcher.
type WatchConfig struct {
	// Prefix is passed to ReadAllOptional.
	Prefix string

	// Delay debounces reloads. Zero means DefaultReloadDelay.
	Delay time.Duration

	// Locker, if set, is held while parameters are written, so a host can
	// keep the model's own thread off the Handle during a reload.
	Locker sync.Locker

	// OnLoad is called after every reload attempt.
	OnLoad func(LoadResult)
}

// Watcher re-reads a parameter file into a Bridge whenever it changes.
// Reloads use ReadAllOptional: keys removed from the file leave their
// parameters unchanged.
type Watcher struct {
	path    string
	bridge  *Bridge
	cfg     WatchConfig
	logger  zerolog.Logger
	watcher *fsnotify.Watcher

	// serialises reloads fired by overlapping timers
	mu sync.Mutex
}

// NewWatcher creates a watcher for the file at path.
func NewWatcher(path string, b *Bridge, cfg WatchConfig, logger zerolog.Logger) *Watcher {
	if cfg.Delay == 0 {
		cfg.Delay = DefaultReloadDelay
	}
	return &Watcher{
		path:   filepath.Clean(path),
		bridge: b,
		cfg:    cfg,
		logger: logger.With().Str("component", "config-watcher").Str("path", path).Logger(),
	}
}

// Start watches the file's directory in the background until ctx is done
// or Stop is called. The directory is watched rather than the file so
// that editors replacing the file by rename are followed.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.path, err)
	}
	w.watcher = watcher

	go w.processEvents(ctx)

	w.logger.Info().Msg("Started watching parameter file")
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// Reload reads the file once and applies it.
func (w *Watcher) Reload(ctx context.Context) LoadResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	res := LoadResult{Path: w.path, At: time.Now()}

	store, err := LoadFile(ctx, w.path)
	if err != nil {
		res.Err = err
		w.logger.Error().Err(err).Msg("Failed to reload parameter file")
		w.notify(res)
		return res
	}

	if w.cfg.Locker != nil {
		w.cfg.Locker.Lock()
	}
	res.Failures = w.bridge.ReadAllOptional(store, w.cfg.Prefix)
	if w.cfg.Locker != nil {
		w.cfg.Locker.Unlock()
	}

	w.logger.Info().Int("failures", res.Failures).Msg("Parameter file reloaded")
	w.notify(res)
	return res
}

func (w *Watcher) notify(res LoadResult) {
	if w.cfg.OnLoad != nil {
		w.cfg.OnLoad(res)
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	var reloadTimer *time.Timer
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.logger.Debug().Str("op", event.Op.String()).Msg("Parameter file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(w.cfg.Delay, func() {
				w.Reload(ctx)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}
