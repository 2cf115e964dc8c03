// Package gcs implements the Google Cloud Storage adapter.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Config holds Google Cloud Storage configuration.
type Config struct {
	Bucket          string
	CredentialsFile string
	// Endpoint points the client at an emulator such as fake-gcs-server.
	Endpoint  string
	CDNDomain string
	Public    bool
}

// Storage implements the storage.Storage interface on a single GCS bucket.
type Storage struct {
	client    *storage.Client
	bucket    string
	endpoint  string
	cdnDomain string
	public    bool
}

// New creates a GCS storage adapter.
func New(cfg Config) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	var opts []option.ClientOption
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	switch {
	case endpoint != "":
		opts = append(opts, option.WithEndpoint(endpoint+"/storage/v1/"), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &Storage{
		client:    client,
		bucket:    cfg.Bucket,
		endpoint:  endpoint,
		cdnDomain: strings.Trim(strings.TrimSpace(cfg.CDNDomain), "/"),
		public:    cfg.Public,
	}, nil
}

// Put streams data into the bucket object at key.
func (s *Storage) Put(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	return s.write(ctx, s.client.Bucket(s.bucket).Object(key), data, contentType)
}

// Create writes with a DoesNotExist precondition so an existing object is
// never replaced.
func (s *Storage) Create(ctx context.Context, key string, data io.Reader, contentType string, size int64) error {
	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})
	if err := s.write(ctx, obj, data, contentType); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("object exists: %s: %w", key, fs.ErrExist)
		}
		return err
	}
	return nil
}

func (s *Storage) write(ctx context.Context, obj *storage.ObjectHandle, data io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := obj.NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close object writer: %w", err)
	}
	return nil
}

// Get opens a reader on the object at key.
func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("object not found: %s: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open object reader: %w", err)
	}
	return r, nil
}

// Delete removes the object at key; a missing object is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("delete object %q in bucket %q: %w", key, s.bucket, err)
	}
	return nil
}

// Exists checks if the object at key exists.
func (s *Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("object attrs: %w", err)
	}
	return true, nil
}

// DirectoryExists always reports true: GCS has a flat namespace.
func (s *Storage) DirectoryExists(ctx context.Context, key string) (bool, error) {
	return true, nil
}

// MakeDirectory is a no-op on GCS.
func (s *Storage) MakeDirectory(ctx context.Context, key string) error {
	return nil
}

// URL returns the CDN or public storage URL, or "" for private buckets.
func (s *Storage) URL(ctx context.Context, key string) (string, error) {
	if !s.public {
		return "", nil
	}
	return s.publicURL(key), nil
}

func (s *Storage) publicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	if s.endpoint != "" {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", s.endpoint, url.PathEscape(s.bucket), url.PathEscape(key))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

// Type returns "gcs" as the storage type identifier.
func (s *Storage) Type() string {
	return "gcs"
}

// Close releases the underlying client.
func (s *Storage) Close() error {
	return s.client.Close()
}
