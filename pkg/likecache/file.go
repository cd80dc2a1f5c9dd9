package likecache

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists one JSON blob per event as a file on disk.
// It is the default backend for a single-device deployment.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a file-backed store rooted at dir.
// The directory is created if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("likecache: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// path returns the blob path for an event. Event ids are hex-encoded so
// arbitrary ids cannot escape the store directory.
func (f *FileStore) path(eventID string) string {
	return filepath.Join(f.dir, hex.EncodeToString([]byte(eventID))+".json")
}

// Load retrieves the blob for an event.
func (f *FileStore) Load(ctx context.Context, eventID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrStoreClosed{}
	}

	data, err := os.ReadFile(f.path(eventID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("likecache: read blob: %w", err)
	}
	return data, nil
}

// Save writes the blob for an event. The write goes to a temp file first and
// is moved into place with a rename, so a crash never leaves a torn blob.
func (f *FileStore) Save(ctx context.Context, eventID string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed{}
	}

	path := f.path(eventID)
	tmp, err := os.CreateTemp(f.dir, ".likecache-*")
	if err != nil {
		return fmt.Errorf("likecache: create temp: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("likecache: write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("likecache: sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("likecache: close temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("likecache: rename blob: %w", err)
	}
	return nil
}

// Close marks the store as closed. Files already written stay on disk.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
