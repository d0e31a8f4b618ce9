package capture

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/pixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitWithinLeavesSmallSourcesAlone(t *testing.T) {
	w, h, scaled := FitWithin(800, 600, Bounds{MaxWidth: 1920, MaxHeight: 1080})
	assert.False(t, scaled)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	w, h, scaled = FitWithin(1920, 1080, DefaultBounds())
	assert.False(t, scaled)
	assert.Equal(t, [2]int{1920, 1080}, [2]int{w, h})
}

func TestFitWithinKnownSizes(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		bounds       Bounds
		wantW, wantH int
	}{
		{"4k to 1080p", 3840, 2160, Bounds{1920, 1080}, 1920, 1080},
		{"wide limited by width", 2560, 1080, Bounds{1280, 1080}, 1280, 540},
		{"tall limited by height", 1000, 3000, Bounds{1920, 1080}, 360, 1080},
		{"thin strip floors to one", 5000, 2, Bounds{64, 64}, 64, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, scaled := FitWithin(tt.srcW, tt.srcH, tt.bounds)
			assert.True(t, scaled)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestFitWithinPreservesAspect(t *testing.T) {
	sources := [][2]int{{2561, 1441}, {4000, 3000}, {1921, 100}, {333, 4444}, {7680, 4320}, {3001, 1999}}
	for _, src := range sources {
		for maxW := MinBound; maxW <= MaxBoundWidth; maxW += 149 {
			for maxH := MinBound; maxH <= MaxBoundHeight; maxH += 113 {
				b := Bounds{MaxWidth: maxW, MaxHeight: maxH}
				w, h, scaled := FitWithin(src[0], src[1], b)
				if !scaled {
					continue
				}

				require.LessOrEqual(t, w, maxW)
				require.LessOrEqual(t, h, maxH)
				require.GreaterOrEqual(t, w, 1)
				require.GreaterOrEqual(t, h, 1)

				// one axis sits on its bound, within a pixel of rounding
				assert.True(t, maxW-w <= 1 || maxH-h <= 1,
					"src %v bounds %v got %dx%d", src, b, w, h)

				// out aspect matches source aspect within one pixel
				expectH := float64(w) * float64(src[1]) / float64(src[0])
				expectW := float64(h) * float64(src[0]) / float64(src[1])
				assert.True(t, abs(expectH-float64(h)) <= 1.0 || abs(expectW-float64(w)) <= 1.0,
					"src %v bounds %v got %dx%d", src, b, w, h)
			}
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func solidBuffer(t *testing.T, w, h int, r, g, b uint8) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.New(w, h)
	require.NoError(t, err)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = r, g, b, 255
	}
	return buf
}

func TestScaleProducesRequestedSize(t *testing.T) {
	src := solidBuffer(t, 400, 200, 200, 100, 50)

	out, err := Scale(src, 100, 50)
	require.NoError(t, err)
	require.NoError(t, out.Validate())
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)

	// a uniform source stays uniform under bilinear filtering
	r, g, b, a := out.At(50, 25)
	assert.Equal(t, [4]uint8{200, 100, 50, 255}, [4]uint8{r, g, b, a})
}

func TestScaleRejectsBadInput(t *testing.T) {
	_, err := Scale(&pixel.Buffer{Width: 2, Height: 2, Pix: make([]uint8, 3)}, 1, 1)
	assert.Error(t, err)

	_, err = Scale(solidBuffer(t, 2, 2, 0, 0, 0), 0, 1)
	assert.Error(t, err)
}

func TestEncodeRoundTripIsLossless(t *testing.T) {
	buf, err := pixel.New(7, 5)
	require.NoError(t, err)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i * 37)
	}
	// captured pixels are always opaque
	for i := 3; i < len(buf.Pix); i += 4 {
		buf.Pix[i] = 255
	}

	for _, level := range []string{config.CompressionDefault, config.CompressionSpeed, config.CompressionBest, config.CompressionNone} {
		data, err := NewEncoder(level).Encode(buf)
		require.NoError(t, err, level)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err, level)

		rgba := image.NewRGBA(img.Bounds())
		for y := 0; y < 5; y++ {
			for x := 0; x < 7; x++ {
				rgba.Set(x, y, img.At(x, y))
			}
		}
		decoded, err := pixel.FromRGBA(rgba)
		require.NoError(t, err)
		assert.Equal(t, buf.Pix, decoded.Pix, level)
	}
}

func TestEncodeRejectsInvalidBuffer(t *testing.T) {
	_, err := NewEncoder(config.CompressionDefault).Encode(&pixel.Buffer{Width: 0, Height: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodingFailed)
}
