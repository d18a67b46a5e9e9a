package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const fileMode = 0644

// Store owns read, write and watch access to the one managed environment
// file.
type Store struct {
	path string

	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	skipNotify bool
	done       chan struct{}
}

// NewStore creates a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the managed file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the managed file. A missing file is not an error: callers get
// ok=false and fall back to defaults. Any other failure is a read error.
func (s *Store) Load() (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return string(data), true, nil
}

// Write replaces the managed file atomically: the text goes to a temp file
// in the same directory, synced, then renamed over the target.
func (s *Store) Write(text string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	s.mu.Lock()
	s.skipNotify = true
	s.mu.Unlock()

	if err := os.Rename(tmpName, s.path); err != nil {
		s.mu.Lock()
		s.skipNotify = false
		s.mu.Unlock()
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Watch invokes callback whenever the managed file changes on disk from
// outside the store. The parent directory is watched because editors and
// this store itself replace the file by rename. Bursts of events collapse
// into one callback. Watch returns immediately; Close stops it.
func (s *Store) Watch(callback func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	go s.watchLoop(callback)
	return nil
}

func (s *Store) watchLoop(callback func()) {
	var debounce *time.Timer
	base := filepath.Base(s.path)

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			s.mu.Lock()
			skip := s.skipNotify
			s.skipNotify = false
			s.mu.Unlock()
			if skip {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, callback)
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the watcher if one is running.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}
