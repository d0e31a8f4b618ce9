package capture

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeGrab(calls *[]image.Rectangle) RegionGrabber {
	return func(rect image.Rectangle) (*image.RGBA, error) {
		*calls = append(*calls, rect)
		img := image.NewRGBA(rect)
		img.SetRGBA(rect.Min.X, rect.Min.Y, color.RGBA{R: 1, G: 2, B: 3, A: 0})
		return img, nil
	}
}

func TestScreenReaderReadsRectangle(t *testing.T) {
	var calls []image.Rectangle
	r := NewScreenReader(WithGrabber(fakeGrab(&calls)))

	buf, err := r.ReadSurfacePixels(&config.WindowInfo{Title: "Game"}, 100, 50, 32, 16)
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, image.Rect(100, 50, 132, 66), calls[0])
	assert.Equal(t, 32, buf.Width)
	assert.Equal(t, 16, buf.Height)

	rr, g, b, a := buf.At(0, 0)
	assert.Equal(t, [4]uint8{1, 2, 3, 255}, [4]uint8{rr, g, b, a}, "alpha forced opaque")
}

func TestScreenReaderRejectsEmptySize(t *testing.T) {
	var calls []image.Rectangle
	r := NewScreenReader(WithGrabber(fakeGrab(&calls)))

	_, err := r.ReadSurfacePixels(&config.WindowInfo{Title: "Scene"}, 0, 0, 0, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSurfaceSize)

	_, err = r.ReadSurfacePixels(&config.WindowInfo{Title: "Scene"}, 0, 0, 10, -1)
	assert.ErrorIs(t, err, ErrInvalidSurfaceSize)
	assert.Empty(t, calls)
}

func TestScreenReaderUsesFallback(t *testing.T) {
	var calls []image.Rectangle
	failing := func(image.Rectangle) (*image.RGBA, error) {
		return nil, errors.New("no X display")
	}
	r := NewScreenReader(WithGrabber(failing), WithFallbackGrabber(fakeGrab(&calls)))

	buf, err := r.ReadSurfacePixels(&config.WindowInfo{Title: "Game"}, 0, 0, 8, 8)
	require.NoError(t, err)
	assert.Len(t, calls, 1)
	assert.Equal(t, 8, buf.Width)
}

func TestScreenReaderPropagatesError(t *testing.T) {
	failing := func(image.Rectangle) (*image.RGBA, error) {
		return nil, errors.New("boom")
	}
	r := NewScreenReader(WithGrabber(failing))

	_, err := r.ReadSurfacePixels(&config.WindowInfo{Title: "Game"}, 0, 0, 8, 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Zero(t, KindOf(err))
}
