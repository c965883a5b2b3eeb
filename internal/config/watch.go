// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// DefaultDebounce is how long the watcher waits after the last change before
// reloading. Editors often write a file in several steps.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path     string
	onChange func(*Config, error)
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending bool
	changed time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Watch starts watching path and calls onChange with the reloaded config
// (or the load error) after each settled change. The parent directory is
// watched so atomic rename-over saves are seen too. onChange runs on the
// watcher goroutine.
func Watch(path string, onChange func(*Config, error)) (*Watcher, error) {
	return WatchWithDebounce(path, DefaultDebounce, onChange)
}

// WatchWithDebounce is Watch with an explicit debounce interval.
func WatchWithDebounce(path string, debounce time.Duration, onChange func(*Config, error)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     abs,
		onChange: onChange,
		watcher:  fw,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	tick := w.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = true
				w.changed = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onChange(nil, fmt.Errorf("watch config: %w", err))

		case <-ticker.C:
			w.mu.Lock()
			fire := w.pending && time.Since(w.changed) >= w.debounce
			if fire {
				w.pending = false
			}
			w.mu.Unlock()
			if fire {
				w.reload()
			}
		}
	}
}

// reload skips files that vanished mid-save; the following Create event
// schedules another attempt.
func (w *Watcher) reload() {
	if _, err := os.Stat(w.path); err != nil {
		return
	}
	cfg, err := LoadFromPath(w.path)
	w.onChange(cfg, err)
}
