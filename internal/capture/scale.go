package capture

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/viewcapture/internal/pixel"
	xdraw "golang.org/x/image/draw"
)

// FitWithin returns the output size for a width x height source under bounds.
// A source already inside the bounds is returned unchanged with scaled false.
// Otherwise one uniform factor min(maxW/w, maxH/h) is applied to both axes,
// each result floored and kept at least 1.
func FitWithin(width, height int, bounds Bounds) (outW, outH int, scaled bool) {
	if width <= bounds.MaxWidth && height <= bounds.MaxHeight {
		return width, height, false
	}

	scale := float64(bounds.MaxWidth) / float64(width)
	if s := float64(bounds.MaxHeight) / float64(height); s < scale {
		scale = s
	}

	outW = int(float64(width) * scale)
	outH = int(float64(height) * scale)
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	// float rounding can leave the constrained axis one pixel over
	if outW > bounds.MaxWidth {
		outW = bounds.MaxWidth
	}
	if outH > bounds.MaxHeight {
		outH = bounds.MaxHeight
	}
	return outW, outH, true
}

// Scale resizes buf to exactly targetW x targetH with bilinear filtering.
// Aspect ratio is the caller's concern.
func Scale(buf *pixel.Buffer, targetW, targetH int) (*pixel.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("scale source: %w", err)
	}
	if targetW < 1 || targetH < 1 {
		return nil, fmt.Errorf("invalid scale target %dx%d", targetW, targetH)
	}

	dst, err := pixel.New(targetW, targetH)
	if err != nil {
		return nil, err
	}

	src := buf.RGBA()
	out := dst.RGBA()
	xdraw.BiLinear.Scale(out, image.Rect(0, 0, targetW, targetH), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}
