package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a config file when it changes on disk and hands the new
// Config to registered callbacks. Reload failures are logged and the previous
// config stays in effect.
type Watcher struct {
	watcher   *fsnotify.Watcher
	path      string
	callbacks []func(*Config)
	mu        sync.RWMutex
	done      chan struct{}
	stopped   chan struct{}
	stopOnce  sync.Once
	log       *zap.Logger
}

type WatcherOption func(*Watcher)

func WithWatcherLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWatcher watches path. The directory is watched rather than the file so
// editors that save by rename are picked up.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher: fw,
		path:    filepath.Clean(path),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, err
	}
	w.log.Debug("watching config", zap.String("path", w.path))
	return w, nil
}

// OnChange registers a callback run with each successfully reloaded config.
func (w *Watcher) OnChange(cb func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start processes events until Stop is called.
func (w *Watcher) Start() {
	defer close(w.stopped)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.reload()
			case event.Has(fsnotify.Rename):
				// Renamed away: reload only if something already replaced it.
				if _, err := os.Stat(w.path); err == nil {
					w.reload()
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) StartAsync() { go w.Start() }

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

// Wait blocks until Start has returned.
func (w *Watcher) Wait() { <-w.stopped }

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.log.Info("config reloaded", zap.String("path", w.path))

	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb(cfg)
	}
}
