// Package mediaerr defines the typed errors returned by the upload, validation
// and conversion pipeline. Callers match on the sentinel values with errors.Is
// and read the offending policy values with errors.As.
package mediaerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yi-nology/mediable/pkg/common"
)

// Code identifies which policy axis or resource an Error is about.
type Code string

const (
	CodeExtensionNotFound     Code = "extension_not_found"
	CodeExtensionNotSupported Code = "extension_not_supported"
	CodeMimeTypeNotSupported  Code = "mime_type_not_supported"
	CodeMaxFileSizeExceeded   Code = "max_file_size_exceeded"
	CodeUploadFailed          Code = "upload_failed"
	CodeUnknownConversion     Code = "unknown_conversion"
	CodeFileNotFound          Code = "file_not_found"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrExtensionNotFound     = &Error{Code: CodeExtensionNotFound}
	ErrExtensionNotSupported = &Error{Code: CodeExtensionNotSupported}
	ErrMimeTypeNotSupported  = &Error{Code: CodeMimeTypeNotSupported}
	ErrMaxFileSizeExceeded   = &Error{Code: CodeMaxFileSizeExceeded}
	ErrUploadFailed          = &Error{Code: CodeUploadFailed}
	ErrUnknownConversion     = &Error{Code: CodeUnknownConversion}
	ErrFileNotFound          = &Error{Code: CodeFileNotFound}
)

// Error carries the code plus whatever detail the code needs: the allow-list
// for the *NotSupported codes, the byte limit for MaxFileSizeExceeded, the
// name or path of the resource for the rest.
type Error struct {
	Code    Code
	Allowed []string
	Limit   int64
	Name    string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var msg string
	switch e.Code {
	case CodeExtensionNotFound:
		msg = fmt.Sprintf("File %s extension not found", e.Name)
	case CodeExtensionNotSupported:
		msg = "File extension not supported, supported extensions: " + strings.Join(e.Allowed, ", ")
	case CodeMimeTypeNotSupported:
		msg = "File mime type not supported, supported types: " + strings.Join(e.Allowed, ", ")
	case CodeMaxFileSizeExceeded:
		msg = "Maximum file size exceeded, max size: " + common.ReadableSize(e.Limit, 1)
	case CodeUploadFailed:
		msg = fmt.Sprintf("Failed to upload file %s", e.Path)
	case CodeUnknownConversion:
		msg = fmt.Sprintf("The conversion [%s] does not exist.", e.Name)
	case CodeFileNotFound:
		msg = fmt.Sprintf("File %s not found", e.Path)
	default:
		msg = string(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

func ExtensionNotFound(name string) *Error {
	return &Error{Code: CodeExtensionNotFound, Name: name}
}

func ExtensionNotSupported(allowed []string) *Error {
	return &Error{Code: CodeExtensionNotSupported, Allowed: append([]string(nil), allowed...)}
}

func MimeTypeNotSupported(allowed []string) *Error {
	return &Error{Code: CodeMimeTypeNotSupported, Allowed: append([]string(nil), allowed...)}
}

func MaxFileSizeExceeded(limit int64) *Error {
	return &Error{Code: CodeMaxFileSizeExceeded, Limit: limit}
}

func UploadFailed(path string, err error) *Error {
	return &Error{Code: CodeUploadFailed, Path: path, Err: err}
}

func UnknownConversion(name string) *Error {
	return &Error{Code: CodeUnknownConversion, Name: name}
}

func FileNotFound(path string) *Error {
	return &Error{Code: CodeFileNotFound, Path: path}
}
