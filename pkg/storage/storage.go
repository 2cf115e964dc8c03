package storage

// Package storage defines the storage abstraction layer for media assets.
// A disk is a named backend (local filesystem, S3-compatible object storage,
// Google Cloud Storage or memory) plus the upload policy configured for it.

import (
	"context"
	"errors"
	"io"
	"io/fs"
)

var (
	// ErrDiskNotFound is returned by Manager.Disk for an unconfigured name.
	ErrDiskNotFound = errors.New("disk not found")
	// ErrObjectNotFound is wrapped by Get when the path holds no object.
	ErrObjectNotFound = fs.ErrNotExist
	// ErrObjectExists is wrapped by Create when the path is already taken.
	ErrObjectExists = fs.ErrExist
)

// Storage defines the interface for object storage operations.
// All backends must implement this interface.
type Storage interface {
	// Put writes data at path, replacing any existing object.
	Put(ctx context.Context, path string, data io.Reader, contentType string, size int64) error

	// Create writes data at path only if no object is there yet. A taken path
	// yields an error wrapping ErrObjectExists and leaves the object untouched.
	Create(ctx context.Context, path string, data io.Reader, contentType string, size int64) error

	// Get opens the object at path. The caller must close the reader.
	// A missing object yields an error wrapping ErrObjectNotFound.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at path. Deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error

	// Exists checks if an object exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns a public address for path, or "" when the disk is not
	// publicly addressable.
	URL(ctx context.Context, path string) (string, error)

	// DirectoryExists and MakeDirectory manage folder prefixes. Object stores
	// have no real directories and treat both as trivially satisfied.
	DirectoryExists(ctx context.Context, path string) (bool, error)
	MakeDirectory(ctx context.Context, path string) error

	// Type returns the storage type identifier ("local", "s3", "gcs", "memory").
	Type() string
}
