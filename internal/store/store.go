// Package store persists small JSON documents under a state directory.
//
// Every invocation of nudge is a short-lived process, so this is the only
// coordination point between them. Writes replace whole files through a
// temp file and rename; readers never observe a partially written document.
// Unparseable documents read as absent.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nudgehq/nudge/internal/debug"
	"github.com/nudgehq/nudge/internal/lockfile"
)

// DefaultLockTimeout bounds how long a critical section waits for another
// nudge process to finish its own.
const DefaultLockTimeout = 5 * time.Second

const lockName = ".lock"

// Store reads and writes JSON documents relative to a root directory.
type Store struct {
	root        string
	lockTimeout time.Duration
}

// New creates a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Store {
	return &Store{root: dir, lockTimeout: DefaultLockTimeout}
}

// Root returns the state directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the absolute path of a named document.
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// ReadJSON decodes the named document into v. It reports false when the
// document does not exist or cannot be parsed.
func (s *Store) ReadJSON(name string, v interface{}) (bool, error) {
	data, err := os.ReadFile(s.Path(name)) // #nosec G304 -- path is inside the state dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		debug.Logf("store: ignoring corrupt document %s: %v\n", name, err)
		return false, nil
	}
	return true, nil
}

// WriteJSON atomically replaces the named document with v.
func (s *Store) WriteJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return s.WriteFile(name, append(data, '\n'))
}

// WriteFile atomically replaces the named document with data.
func (s *Store) WriteFile(name string, data []byte) error {
	path := s.Path(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := renameWithRetry(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// renameWithRetry retries only on Windows, where a reader holding the target
// open makes rename fail transiently. Elsewhere the first error is final.
func renameWithRetry(oldPath, newPath string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = time.Second

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := os.Rename(oldPath, newPath)
		if err != nil && runtime.GOOS != "windows" {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(b, 3))
	if err != nil {
		return fmt.Errorf("rename failed after %d attempt(s): %w", attempts, err)
	}
	return nil
}

// Remove deletes the named document. It reports whether the document existed.
func (s *Store) Remove(name string) (bool, error) {
	err := os.Remove(s.Path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("remove %s: %w", name, err)
}

// ModTime returns the modification time of the named document and whether it
// exists.
func (s *Store) ModTime(name string) (time.Time, bool) {
	info, err := os.Stat(s.Path(name))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// List returns the names of the JSON documents in dir, relative to the root
// and sorted. A missing directory is empty.
func (s *Store) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(s.Path(dir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || strings.HasPrefix(n, ".") || !strings.HasSuffix(n, ".json") {
			continue
		}
		names = append(names, dir+"/"+n)
	}
	sort.Strings(names)
	return names, nil
}

// WithLock runs fn while holding the state directory's advisory lock.
func (s *Store) WithLock(fn func() error) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	l, err := lockfile.Acquire(s.Path(lockName), s.lockTimeout)
	if err != nil {
		return fmt.Errorf("acquire state lock: %w", err)
	}
	defer func() { _ = l.Release() }()
	return fn()
}

// Key maps an arbitrary identifier to a filename-safe document key.
// Characters outside [A-Za-z0-9._-] become '_'.
func Key(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == '.':
			if b.Len() == 0 {
				b.WriteRune('_')
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
