package pixel

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonPositive(t *testing.T) {
	for _, size := range [][2]int{{0, 1}, {1, 0}, {-3, 4}} {
		_, err := New(size[0], size[1])
		assert.Error(t, err, "size %v", size)
	}

	buf, err := New(3, 2)
	require.NoError(t, err)
	assert.Len(t, buf.Pix, 3*2*4)
	assert.NoError(t, buf.Validate())
}

func TestValidateDetectsLengthMismatch(t *testing.T) {
	buf := &Buffer{Width: 2, Height: 2, Pix: make([]uint8, 15)}
	err := buf.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestFromBGRARemapsChannels(t *testing.T) {
	data := []byte{
		10, 20, 30, 0, // B G R A(ignored)
		1, 2, 3, 77,
	}
	buf, err := FromBGRA(data, 2, 1, 8)
	require.NoError(t, err)

	r, g, b, a := buf.At(0, 0)
	assert.Equal(t, [4]uint8{30, 20, 10, 255}, [4]uint8{r, g, b, a})
	r, g, b, a = buf.At(1, 0)
	assert.Equal(t, [4]uint8{3, 2, 1, 255}, [4]uint8{r, g, b, a})
}

func TestFromBGRAHonorsStride(t *testing.T) {
	// one pixel per row, rows padded to 8 bytes
	data := []byte{
		10, 20, 30, 0, 0xee, 0xee, 0xee, 0xee,
		40, 50, 60, 0,
	}
	buf, err := FromBGRA(data, 1, 2, 8)
	require.NoError(t, err)

	r, g, b, _ := buf.At(0, 1)
	assert.Equal(t, [3]uint8{60, 50, 40}, [3]uint8{r, g, b})
}

func TestFromBGRARejectsShortData(t *testing.T) {
	_, err := FromBGRA(make([]byte, 7), 2, 1, 8)
	assert.Error(t, err)

	_, err = FromBGRA(make([]byte, 16), 2, 2, 4)
	assert.Error(t, err)
}

func TestFromRGBARebasesSubImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.SetRGBA(2, 1, color.RGBA{R: 9, G: 8, B: 7, A: 6})

	sub := img.SubImage(image.Rect(2, 1, 4, 3)).(*image.RGBA)
	buf, err := FromRGBA(sub)
	require.NoError(t, err)

	assert.Equal(t, 2, buf.Width)
	assert.Equal(t, 2, buf.Height)
	r, g, b, a := buf.At(0, 0)
	assert.Equal(t, [4]uint8{9, 8, 7, 6}, [4]uint8{r, g, b, a})
	assert.NoError(t, buf.Validate())
}

func TestRGBASharesPixels(t *testing.T) {
	buf, err := New(2, 2)
	require.NoError(t, err)

	img := buf.RGBA()
	img.SetRGBA(1, 1, color.RGBA{R: 1, G: 2, B: 3, A: 4})

	r, g, b, a := buf.At(1, 1)
	assert.Equal(t, [4]uint8{1, 2, 3, 4}, [4]uint8{r, g, b, a})
}
