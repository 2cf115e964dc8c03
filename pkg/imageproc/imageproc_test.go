package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	return img
}

func TestFit(t *testing.T) {
	out, err := Fit(100, 100)(solid(400, 200))
	require.NoError(t, err)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())

	small := solid(20, 10)
	out, err = Fit(100, 100)(small)
	require.NoError(t, err)
	assert.Equal(t, small, out)
}

func TestFill(t *testing.T) {
	out, err := Fill(50, 50)(solid(400, 200))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 50), out.Bounds())
}

func TestCircle(t *testing.T) {
	out, err := Circle(32)(solid(64, 40))
	require.NoError(t, err)
	assert.Equal(t, 32, out.Bounds().Dx())
	_, _, _, a := out.At(0, 0).RGBA()
	assert.Zero(t, a, "corner should be transparent")
	_, _, _, a = out.At(16, 16).RGBA()
	assert.NotZero(t, a, "center should be opaque")
}

func TestPresetTransform(t *testing.T) {
	_, err := Preset{Name: "thumb", Width: 10, Height: 10, Mode: "fill"}.Transform()
	require.NoError(t, err)
	_, err = Preset{Name: "bad", Mode: "fill", Width: 10}.Transform()
	assert.Error(t, err)
	_, err = Preset{Name: "bad", Mode: "spin", Width: 10}.Transform()
	assert.Error(t, err)
}

func TestCodecRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(8, 6)))

	w, h, err := Dimensions(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 8, w)
	assert.Equal(t, 6, h)

	codec := StdCodec{}
	img, format, err := codec.Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	for _, f := range []string{"jpeg", "gif", "bmp", "tiff", "webp"} {
		var out bytes.Buffer
		written, err := codec.Encode(&out, img, f)
		require.NoError(t, err, f)
		_, decodedFormat, err := image.Decode(bytes.NewReader(out.Bytes()))
		require.NoError(t, err, f)
		assert.Equal(t, written, decodedFormat)
	}

	_, _, err = Dimensions([]byte("not an image"))
	assert.Error(t, err)
}
