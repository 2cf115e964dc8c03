package validator

import (
	"slices"
	"strings"

	"github.com/yi-nology/mediable/pkg/mediaerr"
)

// Policy defines constraints for files accepted by a disk. An empty list or
// a zero MaxSize leaves that axis unrestricted.
type Policy struct {
	MimeTypes  []string
	Extensions []string
	MaxSize    int64
}

// File is the part of a candidate upload the policy looks at.
type File struct {
	MimeType  string
	Extension string
	Size      int64
}

// Unrestricted reports whether the policy accepts everything.
func (p Policy) Unrestricted() bool {
	return len(p.MimeTypes) == 0 && len(p.Extensions) == 0 && p.MaxSize <= 0
}

// Validate checks mime type, extension and size in that order and returns the
// first violation.
func (p Policy) Validate(f File) error {
	if err := p.ValidateMimeType(f.MimeType); err != nil {
		return err
	}
	if err := p.ValidateExtension(f.Extension); err != nil {
		return err
	}
	return p.ValidateFileSize(f.Size)
}

// ValidateMimeType checks if the MIME type is in the allow-list.
func (p Policy) ValidateMimeType(mimeType string) error {
	if len(p.MimeTypes) == 0 {
		return nil
	}
	normalized := NormalizeMimeType(mimeType)
	for _, allowed := range p.MimeTypes {
		if NormalizeMimeType(allowed) == normalized && normalized != "" {
			return nil
		}
	}
	return mediaerr.MimeTypeNotSupported(p.MimeTypes)
}

// ValidateExtension checks if the extension is in the allow-list.
func (p Policy) ValidateExtension(ext string) error {
	if len(p.Extensions) == 0 {
		return nil
	}
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext != "" && slices.ContainsFunc(p.Extensions, func(allowed string) bool {
		return strings.ToLower(strings.TrimPrefix(allowed, ".")) == ext
	}) {
		return nil
	}
	return mediaerr.ExtensionNotSupported(p.Extensions)
}

// ValidateFileSize checks if the file size is within the allowed limit.
func (p Policy) ValidateFileSize(size int64) error {
	if p.MaxSize > 0 && size > p.MaxSize {
		return mediaerr.MaxFileSizeExceeded(p.MaxSize)
	}
	return nil
}

// NormalizeMimeType lowercases and drops parameters (e.g. "text/plain; charset=utf-8").
func NormalizeMimeType(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx > 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	return normalized
}
