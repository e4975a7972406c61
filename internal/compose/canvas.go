// Package compose draws fetched map images onto the page.
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Canvas is the RGBA page the bitmap layers are drawn on, bottom layer first.
type Canvas struct {
	img *image.RGBA
}

// NewCanvas creates a transparent canvas
func NewCanvas(width, height int) *Canvas {
	return &Canvas{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (c *Canvas) Image() *image.RGBA { return c.img }

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Draw blends src over the canvas with its top left corner at (xoff, yoff).
// Pixels falling outside the canvas are dropped.
func (c *Canvas) Draw(src image.Image, xoff, yoff int, opacity float64) {
	bounds := src.Bounds()
	width := c.img.Bounds().Dx()
	height := c.img.Bounds().Dy()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			xd := x - bounds.Min.X + xoff
			yd := y - bounds.Min.Y + yoff

			if xd < 0 || yd < 0 || xd >= width || yd >= height {
				continue
			}

			r, g, b, a := src.At(x, y).RGBA()
			px := [4]byte{byte(r >> 8), byte(g >> 8), byte(b >> 8), byte(a >> 8)}

			idx := c.img.PixOffset(xd, yd)
			var dst [4]byte
			copy(dst[:], c.img.Pix[idx:idx+4])
			result := alphaBlend(px, dst, opacity)
			copy(c.img.Pix[idx:idx+4], result[:])
		}
	}
}

// PNG encodes the canvas.
func (c *Canvas) PNG() ([]byte, error) {
	var output bytes.Buffer
	if err := png.Encode(&output, c.img); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// alphaBlend composites src over dst. Both are premultiplied RGBA as stored
// in image.RGBA; opacity scales src.
func alphaBlend(src, dst [4]byte, opacity float64) [4]byte {
	as := float64(src[3]) / 255.0 * opacity
	if as == 0 {
		return dst
	}
	k := 1 - as

	var out [4]byte
	for i := 0; i < 3; i++ {
		v := float64(src[i])*opacity + float64(dst[i])*k
		out[i] = clamp(v)
	}
	out[3] = clamp(as*255.0 + float64(dst[3])*k)
	return out
}

func clamp(v float64) byte {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return byte(v + 0.5)
}

// decodeImage detects PNG and JPEG payloads and decodes them.
func decodeImage(data []byte) (image.Image, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}) {
		return png.Decode(bytes.NewReader(data))
	} else if len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xD8}) {
		return jpeg.Decode(bytes.NewReader(data))
	}

	return nil, fmt.Errorf("unrecognized image format")
}
