package capture

import (
	"bytes"
	"image/png"

	"github.com/bryanchriswhite/viewcapture/internal/config"
	"github.com/bryanchriswhite/viewcapture/internal/pixel"
)

// Encoder serializes pixel buffers to PNG
type Encoder struct {
	level png.CompressionLevel
}

// NewEncoder creates an encoder for a config compression name
func NewEncoder(compression string) *Encoder {
	level := png.DefaultCompression
	switch compression {
	case config.CompressionSpeed:
		level = png.BestSpeed
	case config.CompressionBest:
		level = png.BestCompression
	case config.CompressionNone:
		level = png.NoCompression
	}
	return &Encoder{level: level}
}

// Encode returns the PNG bytes for buf
func (e *Encoder) Encode(buf *pixel.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, newFailure(KindEncodingFailed, err, "refusing to encode buffer")
	}

	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: e.level}
	if err := enc.Encode(&out, buf.RGBA()); err != nil {
		return nil, newFailure(KindEncodingFailed, err, "png encode %dx%d", buf.Width, buf.Height)
	}
	return out.Bytes(), nil
}
