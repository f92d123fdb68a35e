package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore persists one collection as a single JSON object whose keys are
// entity ids. Every mutation rewrites the whole file through a temp-file
// rename, so a crash mid-write leaves either the old or the new state.
//
// Records are held as marshaled JSON and decoded fresh on every read, so
// callers always get private copies. Mutating a returned record never
// touches stored state until it is written back through Set.
type FileStore[T Entity] struct {
	path string
	name string

	mu     sync.Mutex
	data   map[string]json.RawMessage
	loaded bool

	now func() time.Time
}

// NewFileStore returns a file-backed store for the collection at path.
// name labels the collection in logs.
func NewFileStore[T Entity](path, name string) *FileStore[T] {
	return &FileStore[T]{
		path: path,
		name: name,
		data: make(map[string]json.RawMessage),
		now:  time.Now,
	}
}

// Init loads the backing file. Missing files initialize an empty store and
// persist an empty collection; unreadable or corrupt files are fatal to the
// caller.
func (s *FileStore[T]) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLoaded()
}

func (s *FileStore[T]) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating %s data directory: %w", s.name, err)
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		slog.Info("no existing data found, starting fresh", "collection", s.name, "path", s.path)
		s.loaded = true
		return s.persist()
	}
	if err != nil {
		return fmt.Errorf("loading %s data: %w", s.name, err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		return fmt.Errorf("parsing %s data: %w", s.name, err)
	}

	// Reject files whose records don't decode as T now, rather than on
	// first access.
	for key, rec := range s.data {
		if _, err := s.decode(rec); err != nil {
			return fmt.Errorf("parsing %s record %q: %w", s.name, key, err)
		}
	}

	s.loaded = true
	slog.Info("storage initialized", "collection", s.name, "entries", len(s.data))
	return nil
}

// persist rewrites the backing file from the in-memory state. Callers must
// hold s.mu.
func (s *FileStore[T]) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s data: %w", s.name, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s data: %w", s.name, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s data: %w", s.name, err)
	}
	return nil
}

func (s *FileStore[T]) decode(raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (s *FileStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if err := s.ensureLoaded(); err != nil {
		return zero, false, err
	}
	raw, ok := s.data[key]
	if !ok {
		return zero, false, nil
	}
	v, err := s.decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("decoding %s record %q: %w", s.name, key, err)
	}
	return v, true, nil
}

func (s *FileStore[T]) Set(ctx context.Context, key string, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	value.Touch(s.now())
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s record %q: %w", s.name, key, err)
	}
	s.data[key] = raw
	return s.persist()
}

func (s *FileStore[T]) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	if _, ok := s.data[key]; !ok {
		return false, nil
	}
	delete(s.data, key)
	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore[T]) Values(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	values := make([]T, 0, len(s.data))
	for key, raw := range s.data {
		v, err := s.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s record %q: %w", s.name, key, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *FileStore[T]) Entries(ctx context.Context) (map[string]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	entries := make(map[string]T, len(s.data))
	for key, raw := range s.data {
		v, err := s.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s record %q: %w", s.name, key, err)
		}
		entries[key] = v
	}
	return entries, nil
}

func (s *FileStore[T]) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *FileStore[T]) Size(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return 0, err
	}
	return len(s.data), nil
}

func (s *FileStore[T]) Find(ctx context.Context, predicate func(T) bool) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if err := s.ensureLoaded(); err != nil {
		return zero, false, err
	}
	for key, raw := range s.data {
		v, err := s.decode(raw)
		if err != nil {
			return zero, false, fmt.Errorf("decoding %s record %q: %w", s.name, key, err)
		}
		if predicate(v) {
			return v, true, nil
		}
	}
	return zero, false, nil
}

func (s *FileStore[T]) Filter(ctx context.Context, predicate func(T) bool) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	var matches []T
	for key, raw := range s.data {
		v, err := s.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding %s record %q: %w", s.name, key, err)
		}
		if predicate(v) {
			matches = append(matches, v)
		}
	}
	return matches, nil
}
