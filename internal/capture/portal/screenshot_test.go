package portal

import (
	"image"
	"image/color"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	uri, err := parseResponse([]interface{}{
		uint32(0),
		map[string]dbus.Variant{"uri": dbus.MakeVariant("file:///tmp/Screenshot%20one.png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/Screenshot%20one.png", uri)

	path, err := pathFromURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/Screenshot one.png", path)
}

func TestParseResponseErrors(t *testing.T) {
	cases := map[string][]interface{}{
		"short":  {uint32(0)},
		"denied": {uint32(1), map[string]dbus.Variant{}},
		"no uri": {uint32(0), map[string]dbus.Variant{}},
		"bad":    {"0", map[string]dbus.Variant{}},
	}
	for name, body := range cases {
		_, err := parseResponse(body)
		assert.Error(t, err, name)
	}

	_, err := pathFromURI("https://example.com/shot.png")
	assert.Error(t, err)
}

func TestCrop(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	src.Set(30, 20, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	out, err := crop(src, image.Rect(30, 20, 40, 25))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 5), out.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 100, B: 50, A: 255}, out.RGBAAt(0, 0))

	_, err = crop(src, image.Rect(90, 40, 110, 60))
	assert.Error(t, err)
}
