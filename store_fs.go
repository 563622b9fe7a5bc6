package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const tempFilePrefix = "stickies-tmp-"

// fsStore keeps one file per key inside dir.
type fsStore struct {
	dir    string
	logger *slog.Logger

	mu  sync.Mutex
	own map[string]ownWrite
}

// ownWrite is the last state this process left a key in.
type ownWrite struct {
	value   string
	removed bool
}

func openFSStore(dir string, logger *slog.Logger) (*fsStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &fsStore{
		dir:    dir,
		logger: logger.With("component", "store"),
		own:    make(map[string]ownWrite),
	}, nil
}

func (s *fsStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") || strings.HasPrefix(key, tempFilePrefix) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *fsStore) Get(key string) (string, bool, error) {
	p, err := s.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *fsStore) Set(key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(p, []byte(value), 0644); err != nil {
		return err
	}
	s.remember(key, ownWrite{value: value})
	return nil
}

func (s *fsStore) Remove(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	s.remember(key, ownWrite{removed: true})
	return nil
}

func (s *fsStore) remember(key string, w ownWrite) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.own[key] = w
}

// echo reports whether key still holds exactly what this process last wrote,
// in which case a change event for it came from this process.
func (s *fsStore) echo(key string) bool {
	s.mu.Lock()
	w, ok := s.own[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	v, exists, err := s.Get(key)
	if err != nil {
		return false
	}
	if w.removed {
		return !exists
	}
	return exists && v == w.value
}

func (s *fsStore) Keys(pattern string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempFilePrefix) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		keys = append(keys, e.Name())
	}
	return matchKeys(pattern, keys)
}

func (s *fsStore) Close() error { return nil }

// Watch reports keys written or removed in the store directory by other
// processes until ctx ends. Bursts of events for one key are collapsed.
func (s *fsStore) Watch(ctx context.Context, changed func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", s.dir, err)
	}

	d := newDebouncer(50 * time.Millisecond)
	go func() {
		defer watcher.Close()
		defer d.stop()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Base(event.Name)
				if strings.HasPrefix(name, tempFilePrefix) || strings.HasPrefix(name, ".") {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				d.add(name, func() {
					if s.echo(name) {
						return
					}
					changed(name)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("fsnotify error", "error", err)
			}
		}
	}()
	return nil
}

type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.timers {
		t.Stop()
		delete(d.timers, k)
	}
}

// writeFileAtomic writes to a temp file in the same directory and renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", filename, err)
	}
	return nil
}
