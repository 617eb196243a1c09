package encoder

import (
	"context"
	"errors"
	"image"
	"math"
)

// ErrUnsupportedFormat is returned when no available encoder handles a format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the output format name (e.g. "jpeg", "webp", "avif", "png").
	Format() string

	// MIMEType returns the media type of the encoded output.
	MIMEType() string

	// Encode converts the image to bytes at the given quality in [0,1].
	// Lossless encoders ignore quality.
	Encode(ctx context.Context, img image.Image, quality float64) ([]byte, error)

	// Lossless reports whether the format has no quality knob.
	Lossless() bool

	// Available returns true if the encoder is ready to use.
	// External encoders (avifenc) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string
}

// DefaultQuality is used when a lossy encoder receives a quality outside (0,1].
const DefaultQuality = 0.82

// percent maps a normalized quality to the 1-100 scale most codecs expect.
func percent(quality float64) int {
	if quality <= 0 || quality > 1 || math.IsNaN(quality) {
		quality = DefaultQuality
	}
	q := int(math.Round(quality * 100))
	if q < 1 {
		q = 1
	}
	return q
}
