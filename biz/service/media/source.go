package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/yi-nology/mediable/pkg/mediaerr"
)

// Source is an upload payload. Build one with FromBytes, FromReader or
// FromPath.
type Source struct {
	Name     string
	MimeType string
	open     func() (io.ReadCloser, error)
}

// FromBytes wraps an in-memory payload.
func FromBytes(name, mimeType string, data []byte) Source {
	return Source{
		Name:     name,
		MimeType: mimeType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FromReader wraps a stream. The stream is consumed by the upload.
func FromReader(name, mimeType string, r io.Reader) Source {
	return Source{
		Name:     name,
		MimeType: mimeType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(r), nil
		},
	}
}

// FromPath adapts a local file. The mime type is detected from content.
func FromPath(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Source{}, mediaerr.FileNotFound(path)
		}
		return Source{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Source{}, mediaerr.FileNotFound(path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("detect mime type of %s: %w", path, err)
	}
	return Source{
		Name:     filepath.Base(path),
		MimeType: mt.String(),
		open: func() (io.ReadCloser, error) {
			f, err := os.Open(path)
			if errors.Is(err, fs.ErrNotExist) {
				return nil, mediaerr.FileNotFound(path)
			}
			return f, err
		},
	}, nil
}

// read loads the payload. With a positive limit at most limit+1 bytes are
// read, enough to tell that the payload is over the limit.
func (src Source) read(limit int64) ([]byte, error) {
	if src.open == nil {
		return nil, errors.New("empty upload source")
	}
	rc, err := src.open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	return io.ReadAll(r)
}

// detectMimeType prefers the declared type and sniffs content when nothing
// useful was declared.
func detectMimeType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
