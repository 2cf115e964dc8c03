// Package sanitize turns client supplied file names into storage safe names.
package sanitize

import (
	"path"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yi-nology/mediable/pkg/mediaerr"
)

// Name is the result of sanitizing a file name.
type Name struct {
	Base      string
	Extension string
}

// String joins base and extension, e.g. "photo.png".
func (n Name) String() string {
	if n.Extension == "" {
		return n.Base
	}
	return n.Base + "." + n.Extension
}

// FileName strips the extension from fileName, slugs the remainder and
// resolves the extension from the name itself or, failing that, from mimeType.
// It fails with mediaerr.ErrExtensionNotFound when neither source has one.
func FileName(fileName, mimeType string) (Name, error) {
	fileName = path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if fileName == "." || fileName == "/" {
		fileName = ""
	}

	ext := Extension(fileName)
	stem := fileName
	if ext != "" {
		stem = strings.TrimSuffix(fileName, "."+ext)
		ext = strings.ToLower(ext)
	}
	if ext == "" && mimeType != "" {
		ext = GuessExtension(mimeType)
	}
	if ext == "" {
		return Name{}, mediaerr.ExtensionNotFound(fileName)
	}

	base := Slug(stem)
	if base == "" {
		base = "file"
	}
	return Name{Base: base, Extension: ext}, nil
}

// Extension returns the extension of name without the leading dot. Dot files
// such as ".env" have no extension.
func Extension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}

// GuessExtension maps a mime type onto its canonical extension, "" when the
// type is unknown.
func GuessExtension(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mt, ";"); idx > 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	if mt == "" {
		return ""
	}
	m := mimetype.Lookup(mt)
	if m == nil {
		return ""
	}
	return strings.TrimPrefix(m.Extension(), ".")
}

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug lowercases s, folds accents to ASCII and collapses every run of
// non-alphanumeric characters into a single hyphen.
func Slug(s string) string {
	folded, _, err := transform.String(asciiFold, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingDash := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
