package encoder

import (
	"bytes"
	"context"
	"image"

	"github.com/chai2010/webp"
)

// WebPEncoder encodes images to lossy WebP in-process via libwebp.
type WebPEncoder struct{}

func (e *WebPEncoder) Format() string    { return "webp" }
func (e *WebPEncoder) MIMEType() string  { return "image/webp" }
func (e *WebPEncoder) Extension() string { return "webp" }
func (e *WebPEncoder) Lossless() bool    { return false }
func (e *WebPEncoder) Available() bool   { return true }

func (e *WebPEncoder) Encode(ctx context.Context, img image.Image, quality float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(128 * 1024)

	opts := &webp.Options{
		Lossless: false,
		Quality:  float32(percent(quality)),
	}
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
