package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps every entry in one JSON file, rewritten atomically on each
// mutation. The file is created with mode 0600.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type persistedFile struct {
	Version int               `json:"version"`
	Entries map[string][]byte `json:"entries"`
	SavedAt int64             `json:"savedAt"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

var _ Store = (*FileStore)(nil)

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return nil, err
	}
	v, ok := entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		// An unreadable file is replaced rather than blocking every write.
		entries = make(map[string][]byte)
	}
	entries[key] = append([]byte(nil), value...)
	return f.save(entries)
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		entries = make(map[string][]byte)
	}
	if _, ok := entries[key]; !ok && err == nil {
		return nil
	}
	delete(entries, key)
	return f.save(entries)
}

func (f *FileStore) load() (map[string][]byte, error) {
	entries := make(map[string][]byte)
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("kv: read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return entries, nil
	}

	var file persistedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("kv: decode %s: %w", f.path, err)
	}
	if file.Version != 1 {
		return nil, errors.New("kv: unsupported state file version")
	}
	for k, v := range file.Entries {
		entries[k] = v
	}
	return entries, nil
}

func (f *FileStore) save(entries map[string][]byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("kv: mkdir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(persistedFile{Version: 1, Entries: entries, SavedAt: time.Now().UnixMilli()}, "", "  ")
	if err != nil {
		return fmt.Errorf("kv: marshal: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("kv: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("kv: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("kv: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("kv: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("kv: rename: %w", err)
	}
	return nil
}
