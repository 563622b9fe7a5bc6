package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Store is the key-value persistence the board writes through.
// Values are opaque strings; the board stores JSON in them.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	// Keys lists stored keys matching a doublestar glob; "" matches everything.
	Keys(pattern string) ([]string, error)
	Close() error
}

// Watcher is implemented by stores that can report writes made by other processes.
type Watcher interface {
	Watch(ctx context.Context, changed func(key string)) error
}

const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
	BackendMemory = "memory"
)

// OpenStore opens the backend selected in the config.
func OpenStore(cfg *Config, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return openSQLiteStore(filepath.Join(cfg.DataDir, "stickies.db"))
	case BackendFS:
		return openFSStore(filepath.Join(cfg.DataDir, "store"), logger)
	case BackendMemory:
		return newMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func matchKeys(pattern string, keys []string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid key pattern %q", pattern)
	}
	var out []string
	for _, k := range keys {
		if ok, _ := doublestar.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (s *memoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memoryStore) Keys(pattern string) ([]string, error) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.Unlock()
	return matchKeys(pattern, keys)
}

func (s *memoryStore) Close() error { return nil }
