package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 250 * time.Millisecond

// Watcher reloads the configuration when files in the loader directory
// change and notifies subscribers. Invalid reloads keep the current
// configuration.
type Watcher struct {
	loader    *Loader
	config    *Config
	callbacks []func(*Config)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewWatcher starts watching the loader directory. Outside development the
// watcher only serves the initial configuration.
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		loader: loader,
		config: initial,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	if !initial.IsDevelopment() {
		logger.Info("Configuration hot reloading disabled",
			zap.String("environment", string(initial.Environment)))
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(loader.Dir()); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", loader.Dir(), err)
	}
	w.watcher = fsWatcher
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled", zap.String("dir", loader.Dir()))
	return w, nil
}

func (w *Watcher) watchLoop() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !isConfigFile(event.Name) {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}

// Reload loads the configuration again and notifies subscribers if it is
// valid and changed
func (w *Watcher) Reload() {
	next, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.config
	w.config = next
	callbacks := append([]func(*Config)(nil), w.callbacks...)
	w.mu.Unlock()

	changes := diff(prev, next)
	if len(changes) == 0 {
		w.logger.Debug("Configuration unchanged after reload")
		return
	}
	w.logger.Info("Configuration reloaded", zap.Strings("changes", changes))

	for i, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("Configuration callback panicked",
						zap.Int("callback_index", i),
						zap.Any("panic", r),
					)
				}
			}()
			cb(next)
		}()
	}
}

// OnChange registers a callback invoked with each changed configuration
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Current returns the active configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Stop stops watching
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
}

func diff(old, new *Config) []string {
	var changes []string
	if old.LogLevel != new.LogLevel {
		changes = append(changes, fmt.Sprintf("log_level: %s -> %s", old.LogLevel, new.LogLevel))
	}
	if old.Analysis.SampleThreshold != new.Analysis.SampleThreshold {
		changes = append(changes, fmt.Sprintf("analysis.sample_threshold: %d -> %d",
			old.Analysis.SampleThreshold, new.Analysis.SampleThreshold))
	}
	if old.Analysis.AggregatorThreshold != new.Analysis.AggregatorThreshold {
		changes = append(changes, fmt.Sprintf("analysis.aggregator_threshold: %d -> %d",
			old.Analysis.AggregatorThreshold, new.Analysis.AggregatorThreshold))
	}
	if old.Sessions.TTL != new.Sessions.TTL {
		changes = append(changes, fmt.Sprintf("sessions.ttl: %s -> %s", old.Sessions.TTL, new.Sessions.TTL))
	}
	return changes
}

func isConfigFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}
