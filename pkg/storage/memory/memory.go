// Package memory implements an in-process storage adapter on an afero
// memory filesystem. It backs scratch disks and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Storage implements the storage.Storage interface in memory.
type Storage struct {
	fs      afero.Fs
	baseURL string

	mu         sync.Mutex
	failWrites error
	failDelete map[string]error
}

// New creates an empty memory disk. baseURL empty means private.
func New(baseURL string) *Storage {
	return &Storage{
		fs:      afero.NewMemMapFs(),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FailWrites makes every following Put return err; nil restores normal writes.
func (s *Storage) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = err
}

// FailDelete makes Delete of key return err; nil clears it.
func (s *Storage) FailDelete(key string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete == nil {
		s.failDelete = make(map[string]error)
	}
	if err == nil {
		delete(s.failDelete, clean(key))
		return
	}
	s.failDelete[clean(key)] = err
}

func (s *Storage) Put(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(clean(key), data)
}

// Create checks and writes under the disk lock, so of two concurrent Creates
// on one key exactly one succeeds.
func (s *Storage) Create(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := clean(key)
	if ok, err := afero.Exists(s.fs, p); err != nil {
		return fmt.Errorf("stat file: %w", err)
	} else if ok {
		return fmt.Errorf("object exists: %s: %w", key, fs.ErrExist)
	}
	return s.write(p, data)
}

// write expects s.mu to be held.
func (s *Storage) write(p string, data io.Reader) error {
	if s.failWrites != nil {
		return s.failWrites
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := afero.WriteReader(s.fs, p, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	p := clean(key)
	if ok, _ := afero.IsDir(s.fs, p); ok {
		return nil, fmt.Errorf("object not found: %s: %w", key, fs.ErrNotExist)
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("object not found: %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	p := clean(key)
	s.mu.Lock()
	failErr := s.failDelete[p]
	s.mu.Unlock()
	if failErr != nil {
		return failErr
	}

	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	p := clean(key)
	ok, err := afero.Exists(s.fs, p)
	if err != nil || !ok {
		return false, err
	}
	isDir, err := afero.IsDir(s.fs, p)
	if err != nil {
		return false, err
	}
	return !isDir, nil
}

func (s *Storage) DirectoryExists(ctx context.Context, key string) (bool, error) {
	return afero.DirExists(s.fs, clean(key))
}

func (s *Storage) MakeDirectory(ctx context.Context, key string) error {
	return s.fs.MkdirAll(clean(key), 0o755)
}

func (s *Storage) URL(ctx context.Context, key string) (string, error) {
	if s.baseURL == "" {
		return "", nil
	}
	return s.baseURL + clean(key), nil
}

func (s *Storage) Type() string {
	return "memory"
}

// Files lists every stored object path, without the leading slash.
func (s *Storage) Files() []string {
	var out []string
	_ = afero.Walk(s.fs, "/", func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			out = append(out, strings.TrimPrefix(p, "/"))
		}
		return nil
	})
	return out
}

func clean(key string) string {
	return path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
}
