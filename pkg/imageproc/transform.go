package imageproc

import (
	"fmt"
	"image"
	"strings"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Preset modes.
const (
	ModeFit    = "fit"
	ModeFill   = "fill"
	ModeCircle = "circle"
)

// Preset describes a stock conversion.
type Preset struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Mode   string `yaml:"mode"`
}

// Transform builds the transform the preset describes.
func (p Preset) Transform() (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(p.Mode)) {
	case "", ModeFit:
		if p.Width <= 0 && p.Height <= 0 {
			return nil, fmt.Errorf("preset %q: width or height required", p.Name)
		}
		return Fit(p.Width, p.Height), nil
	case ModeFill:
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("preset %q: width and height required", p.Name)
		}
		return Fill(p.Width, p.Height), nil
	case ModeCircle:
		size := p.Width
		if size <= 0 {
			size = p.Height
		}
		if size <= 0 {
			return nil, fmt.Errorf("preset %q: size required", p.Name)
		}
		return Circle(size), nil
	default:
		return nil, fmt.Errorf("preset %q: unknown mode %q", p.Name, p.Mode)
	}
}

// Fit scales img down to fit inside width x height keeping its aspect ratio.
// A zero bound is unconstrained. Images already inside the box are returned
// unchanged.
func Fit(width, height int) Transform {
	return func(img image.Image) (image.Image, error) {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w == 0 || h == 0 {
			return nil, fmt.Errorf("empty image")
		}
		scale := 1.0
		if width > 0 && w > width {
			scale = float64(width) / float64(w)
		}
		if height > 0 && float64(h)*scale > float64(height) {
			scale = float64(height) / float64(h)
		}
		if scale >= 1 {
			return img, nil
		}
		return resize(img, max(1, int(float64(w)*scale+0.5)), max(1, int(float64(h)*scale+0.5))), nil
	}
}

// Fill center-crops img to the aspect ratio of width x height and scales it
// to exactly that size.
func Fill(width, height int) Transform {
	return func(img image.Image) (image.Image, error) {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w == 0 || h == 0 {
			return nil, fmt.Errorf("empty image")
		}
		cropW, cropH := w, w*height/width
		if cropH > h {
			cropW, cropH = h*width/height, h
		}
		x0 := b.Min.X + (w-cropW)/2
		y0 := b.Min.Y + (h-cropH)/2
		cropped := image.NewRGBA(image.Rect(0, 0, cropW, cropH))
		draw.Draw(cropped, cropped.Bounds(), img, image.Point{X: x0, Y: y0}, draw.Src)
		return resize(cropped, width, height), nil
	}
}

// Circle fills a size x size square and clips it to a circle.
func Circle(size int) Transform {
	fill := Fill(size, size)
	return func(img image.Image) (image.Image, error) {
		square, err := fill(img)
		if err != nil {
			return nil, err
		}
		dc := gg.NewContext(size, size)
		dc.DrawCircle(float64(size)/2, float64(size)/2, float64(size)/2)
		dc.Clip()
		dc.DrawImage(square, 0, 0)
		return dc.Image(), nil
	}
}

func resize(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}
