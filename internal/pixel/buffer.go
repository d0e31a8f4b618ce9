// Package pixel holds the canonical RGBA8 buffer every capture stage
// exchanges: row-major, top-down, four bytes per pixel.
package pixel

import (
	"errors"
	"fmt"
	"image"
)

// BytesPerPixel is the size of one RGBA8 quad
const BytesPerPixel = 4

// ErrLengthMismatch reports a buffer whose pixel data does not match its size
var ErrLengthMismatch = errors.New("pixel buffer length does not match dimensions")

// Buffer is an RGBA8 image with no stride padding
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed buffer
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*BytesPerPixel),
	}, nil
}

// Validate checks the width*height invariant
func (b *Buffer) Validate() error {
	if b == nil {
		return errors.New("nil pixel buffer")
	}
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("invalid buffer size %dx%d", b.Width, b.Height)
	}
	if len(b.Pix) != b.Width*b.Height*BytesPerPixel {
		return fmt.Errorf("%w: %dx%d needs %d bytes, have %d",
			ErrLengthMismatch, b.Width, b.Height, b.Width*b.Height*BytesPerPixel, len(b.Pix))
	}
	return nil
}

// At returns the RGBA quad at (x, y)
func (b *Buffer) At(x, y int) (r, g, bl, a uint8) {
	i := (y*b.Width + x) * BytesPerPixel
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Size returns width and height
func (b *Buffer) Size() (int, int) {
	return b.Width, b.Height
}

// RGBA wraps the buffer as an *image.RGBA without copying
func (b *Buffer) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromRGBA copies an *image.RGBA into a packed buffer, dropping any stride
// padding and rebasing the bounds to the origin.
func FromRGBA(img *image.RGBA) (*Buffer, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	bounds := img.Bounds()
	buf, err := New(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	rowBytes := buf.Width * BytesPerPixel
	for y := 0; y < buf.Height; y++ {
		src := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(buf.Pix[y*rowBytes:(y+1)*rowBytes], img.Pix[src:src+rowBytes])
	}
	return buf, nil
}

// FromBGRA builds a buffer from top-down 32bpp B-G-R-A rows as returned by
// GDI and X11 ZPixmap reads. Alpha is forced opaque since captured window
// content carries none. stride is the byte length of one source row.
func FromBGRA(data []byte, width, height, stride int) (*Buffer, error) {
	buf, err := New(width, height)
	if err != nil {
		return nil, err
	}
	if stride < width*BytesPerPixel {
		return nil, fmt.Errorf("stride %d too small for width %d", stride, width)
	}
	if len(data) < stride*(height-1)+width*BytesPerPixel {
		return nil, fmt.Errorf("short BGRA data: %d bytes for %dx%d (stride %d)", len(data), width, height, stride)
	}

	for y := 0; y < height; y++ {
		row := data[y*stride:]
		out := buf.Pix[y*width*BytesPerPixel:]
		for x := 0; x < width; x++ {
			i := x * BytesPerPixel
			out[i+0] = row[i+2] // R
			out[i+1] = row[i+1] // G
			out[i+2] = row[i+0] // B
			out[i+3] = 0xff
		}
	}
	return buf, nil
}
