// Package imageproc is the image-processing capability used by conversions:
// decoding stored bytes, transforming decoded images and encoding them back.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultJPEGQuality is used when a codec has no explicit quality.
const DefaultJPEGQuality = 90

// Transform maps a decoded image onto a derived image.
type Transform func(img image.Image) (image.Image, error)

// Codec decodes stored bytes into images and encodes results back.
type Codec interface {
	// Decode returns the image and its format name ("png", "jpeg", ...).
	Decode(r io.Reader) (image.Image, string, error)
	// Encode writes img in format. Formats without an encoder fall back to
	// PNG; the format actually written is returned.
	Encode(w io.Writer, img image.Image, format string) (string, error)
}

// StdCodec is the default Codec on the image and x/image packages.
type StdCodec struct {
	JPEGQuality int
}

func (StdCodec) Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

func (c StdCodec) Encode(w io.Writer, img image.Image, format string) (string, error) {
	var err error
	switch format {
	case "jpeg", "jpg":
		quality := c.JPEGQuality
		if quality <= 0 {
			quality = DefaultJPEGQuality
		}
		format = "jpeg"
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case "gif":
		err = gif.Encode(w, img, nil)
	case "bmp":
		err = bmp.Encode(w, img)
	case "tiff":
		err = tiff.Encode(w, img, nil)
	default:
		format = "png"
		err = png.Encode(w, img)
	}
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", format, err)
	}
	return format, nil
}

// Dimensions reads the pixel size from the image header without decoding
// the whole image.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
