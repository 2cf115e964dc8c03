// Package local implements the local filesystem storage adapter.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Storage implements the storage.Storage interface using local filesystem.
type Storage struct {
	basePath string
	baseURL  string
}

// New creates a new local storage adapter.
// basePath is the root directory for storing files (e.g., "data/public").
// baseURL is the public prefix for URLs; empty means the disk is private.
func New(basePath, baseURL string) (*Storage, error) {
	if basePath == "" {
		basePath = "data/public"
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return &Storage{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put writes a file to the local filesystem.
func (s *Storage) Put(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	return s.write(key, data, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// Create writes the file with O_EXCL so an existing file is never replaced.
func (s *Storage) Create(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	return s.write(key, data, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
}

func (s *Storage) write(key string, data io.Reader, flag int) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(fullPath, flag, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("object exists: %s: %w", key, fs.ErrExist)
		}
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}

// Get reads a file from the local filesystem.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object not found: %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}

	return f, nil
}

// Delete removes a file from the local filesystem.
func (s *Storage) Delete(ctx context.Context, key string) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // Already deleted
		}
		return fmt.Errorf("delete file: %w", err)
	}

	return nil
}

// Exists checks if a file exists in the local filesystem.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}

	return !info.IsDir(), nil
}

// DirectoryExists checks if a directory exists below the base path.
func (s *Storage) DirectoryExists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat directory: %w", err)
	}
	return info.IsDir(), nil
}

// MakeDirectory creates key and any missing parents.
func (s *Storage) MakeDirectory(ctx context.Context, key string) error {
	fullPath, err := s.keyToPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	return nil
}

// URL returns baseURL/key, or "" when no base URL is configured.
func (s *Storage) URL(ctx context.Context, key string) (string, error) {
	if s.baseURL == "" {
		return "", nil
	}
	return s.baseURL + "/" + strings.TrimLeft(path.Clean("/"+key), "/"), nil
}

// Type returns "local" as the storage type identifier.
func (s *Storage) Type() string {
	return "local"
}

// keyToPath converts an object key to a full filesystem path, refusing keys
// that would escape the base path.
func (s *Storage) keyToPath(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	if cleaned == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(cleaned, "/"))), nil
}

// BasePath returns the base path of the storage.
func (s *Storage) BasePath() string {
	return s.basePath
}
