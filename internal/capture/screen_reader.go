package capture

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/logger"
	"github.com/bryanchriswhite/viewcapture/internal/pixel"
	"github.com/kbinani/screenshot"
)

// RegionGrabber reads a screen-space rectangle. screenshot.CaptureRect is the
// production implementation.
type RegionGrabber func(rect image.Rectangle) (*image.RGBA, error)

// ScreenReader reads window pixels straight from the composited screen. The
// window must be visible at its rectangle, so callers repaint it first.
type ScreenReader struct {
	grab     RegionGrabber
	fallback RegionGrabber
	name     string
}

// ScreenReaderOption configures a ScreenReader
type ScreenReaderOption func(*ScreenReader)

// WithGrabber replaces the direct readback function
func WithGrabber(grab RegionGrabber) ScreenReaderOption {
	return func(r *ScreenReader) {
		r.grab = grab
	}
}

// WithFallbackGrabber sets a reader used when direct readback fails, such as
// the desktop portal on Wayland sessions
func WithFallbackGrabber(grab RegionGrabber) ScreenReaderOption {
	return func(r *ScreenReader) {
		r.fallback = grab
	}
}

// NewScreenReader creates a reader backed by screenshot.CaptureRect
func NewScreenReader(opts ...ScreenReaderOption) *ScreenReader {
	r := &ScreenReader{
		grab: screenshot.CaptureRect,
		name: "screen readback",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the strategy name
func (r *ScreenReader) Name() string {
	return r.name
}

// ReadSurfacePixels reads the screen rectangle (x, y, width, height)
func (r *ScreenReader) ReadSurfacePixels(window *config.WindowInfo, x, y, width, height int) (*pixel.Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, newFailure(KindInvalidSurfaceSize, nil,
			"%s has size %dx%d", window.Label(), width, height)
	}

	log := logger.WithComponent("screen-reader")
	rect := image.Rect(x, y, x+width, y+height)

	img, err := r.grab(rect)
	if err != nil && r.fallback != nil {
		log.Debug().
			Err(err).
			Str("window", window.Label()).
			Msg("Direct readback failed, trying fallback reader")
		img, err = r.fallback(rect)
	}
	if err != nil {
		return nil, fmt.Errorf("read %v for %s: %w", rect, window.Label(), err)
	}

	if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
		// readers clip to the visible desktop; report what we actually got
		log.Debug().
			Int("want_width", width).
			Int("want_height", height).
			Int("got_width", img.Bounds().Dx()).
			Int("got_height", img.Bounds().Dy()).
			Msg("Readback size differs from window rectangle")
	}

	buf, err := pixel.FromRGBA(img)
	if err != nil {
		return nil, newFailure(KindInvalidSurfaceSize, err, "readback for %s", window.Label())
	}

	// screen readback alpha is undefined on some platforms
	for i := 3; i < len(buf.Pix); i += pixel.BytesPerPixel {
		buf.Pix[i] = 0xff
	}
	return buf, nil
}
