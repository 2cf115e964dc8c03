package sanitize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yi-nology/mediable/pkg/mediaerr"
)

func TestFileName(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		mime     string
		wantBase string
		wantExt  string
	}{
		{"keeps declared extension", "Holiday Photo.JPG", "", "holiday-photo", "jpg"},
		{"guesses from mime", "photo", "image/png", "photo", "png"},
		{"declared wins over mime", "doc.exe", "image/png", "doc", "exe"},
		{"folds accents", "Café Crème.txt", "", "cafe-creme", "txt"},
		{"collapses separators", "a  -- b__c.pdf", "", "a-b-c", "pdf"},
		{"strips directories", "../../etc/passwd.txt", "", "passwd", "txt"},
		{"mime parameters ignored", "notes", "text/plain; charset=utf-8", "notes", "txt"},
		{"empty stem", "!!!.png", "", "file", "png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FileName(tc.input, tc.mime)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBase, got.Base)
			assert.Equal(t, tc.wantExt, got.Extension)
		})
	}
}

func TestFileNameWithoutExtension(t *testing.T) {
	for _, mime := range []string{"", "application/x-made-up"} {
		_, err := FileName("README", mime)
		require.Error(t, err)
		assert.True(t, errors.Is(err, mediaerr.ErrExtensionNotFound), "mime %q: %v", mime, err)
	}
}

func TestNameString(t *testing.T) {
	assert.Equal(t, "photo.png", Name{Base: "photo", Extension: "png"}.String())
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "", Extension(".env"))
	assert.Equal(t, "", Extension("trailing."))
	assert.Equal(t, "gz", Extension("archive.tar.gz"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "hello-world", Slug("  Hello, World!  "))
	assert.Equal(t, "", Slug("---"))
}
