package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// File keeps every entry in one JSON object on disk. Writes replace the file
// atomically through a temporary sibling. It suits a single process only.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: file path is empty", ErrInvalidInput)
	}
	return &File{path: path}, nil
}

// Path returns the backing file location.
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return "", false, err
	}
	value, ok := entries[key]
	return value, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	entries[key] = value
	return f.store(entries)
}

func (f *File) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return f.store(entries)
}

func (f *File) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	entries := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("storage: parse %s: %w", f.path, err)
	}
	return entries, nil
}

func (f *File) store(entries map[string]string) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write %s: %w", tmp, err)
	}
	return os.Rename(tmp, f.path)
}
