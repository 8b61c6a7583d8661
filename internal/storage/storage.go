// Package storage keeps binary blobs such as profile images, either on the
// local filesystem or in an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore stores opaque byte blobs under generated ids.
type BlobStore interface {
	// Put stores data and returns the id to fetch it with. key is a readable
	// prefix for the id.
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get returns the blob, or nil when no blob has that id.
	Get(ctx context.Context, id string) ([]byte, error)
	// Delete removes the blob and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// FileStore provides a file-based blob storage.
type FileStore struct {
	basePath string
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath}, nil
}

// newBlobID appends a random suffix so a replaced blob never reuses the id of
// the one it replaces.
func newBlobID(key string) string {
	return fmt.Sprintf("%s_%s", sanitizeKey(key), uuid.NewString())
}

// sanitizeKey makes the key safe for filenames and object keys.
func sanitizeKey(key string) string {
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, key)
	if key == "" {
		return "blob"
	}
	return key
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid blob id %q", id)
	}
	return filepath.Join(s.basePath, id), nil
}

// Put writes data to a new file.
func (s *FileStore) Put(_ context.Context, key string, data []byte) (string, error) {
	id := newBlobID(key)
	filePath, err := s.path(id)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write blob file: %w", err)
	}
	return id, nil
}

// Get reads a blob back.
func (s *FileStore) Get(_ context.Context, id string) ([]byte, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read blob file: %w", err)
	}
	return data, nil
}

// Delete removes a blob file.
func (s *FileStore) Delete(_ context.Context, id string) (bool, error) {
	filePath, err := s.path(id)
	if err != nil {
		return false, err
	}
	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove blob file %s: %w", id, err)
	}
	return true, nil
}
