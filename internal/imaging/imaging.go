// Package imaging renders receipt jobs into paper-like preview images.
package imaging

import (
	"image"
	"image/color"
	"image/png"
	"io"
)

// Paper geometry of a 58mm thermal printer at 203 dpi
const (
	PaperWidth = 384
	DPI        = 203
)

// EncodePNG writes img as a PNG
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, img)
}

// Monochrome converts an image to pure black and white the way a thermal
// head would burn it. Pixels darker than threshold become black.
func Monochrome(img image.Image, threshold uint8) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if rgbToGray(img.At(b.Min.X+x, b.Min.Y+y)) < threshold {
				dst.SetGray(x, y, color.Gray{0})
			} else {
				dst.SetGray(x, y, color.Gray{255})
			}
		}
	}

	return dst
}

// rgbToGray converts a color to grayscale value
func rgbToGray(c color.Color) uint8 {
	r, g, b, _ := c.RGBA()
	// Standard luminance formula, values are 16-bit so divide by 256
	gray := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256
	return uint8(gray)
}

// scale enlarges src by an integer factor with nearest-neighbor sampling,
// which is what GS ! does to glyphs on the printer.
func scale(src image.Image, factor int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))

	for y := 0; y < dst.Bounds().Dy(); y++ {
		for x := 0; x < dst.Bounds().Dx(); x++ {
			dst.Set(x, y, src.At(b.Min.X+x/factor, b.Min.Y+y/factor))
		}
	}

	return dst
}
