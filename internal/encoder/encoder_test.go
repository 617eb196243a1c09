package encoder

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 255,
			})
		}
	}
	return img
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"JPG":        "jpeg",
		".jpeg":      "jpeg",
		"image/jpeg": "jpeg",
		"tif":        "tiff",
		"image/webp": "webp",
		"png":        "png",
		" Auto ":     "auto",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestRegistry_GetUnsupported(t *testing.T) {
	r := NewRegistryWith(&JPEGEncoder{})

	_, err := r.Get("png")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	enc, err := r.Get("image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "jpeg", enc.Format())
}

func TestRegistry_ResolveAuto(t *testing.T) {
	full := NewRegistryWith(&WebPEncoder{}, &JPEGEncoder{}, &PNGEncoder{})
	enc, err := full.Resolve("auto", "png", true)
	require.NoError(t, err)
	assert.Equal(t, "webp", enc.Format())

	noWebP := NewRegistryWith(&JPEGEncoder{}, &PNGEncoder{})
	enc, err = noWebP.Resolve("auto", "png", true)
	require.NoError(t, err)
	assert.Equal(t, "png", enc.Format(), "alpha source falls back to png")

	enc, err = noWebP.Resolve("auto", "png", false)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", enc.Format())
}

func TestRegistry_ResolveOriginal(t *testing.T) {
	r := NewRegistryWith(&JPEGEncoder{}, &PNGEncoder{})

	enc, err := r.Resolve("original", "jpg", false)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", enc.Format())

	enc, err = r.Resolve("", "png", false)
	require.NoError(t, err)
	assert.Equal(t, "png", enc.Format())

	_, err = r.Resolve("original", "webp", false)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_AvailableOrder(t *testing.T) {
	r := NewRegistryWith(&PNGEncoder{}, &JPEGEncoder{}, &TIFFEncoder{})
	assert.Equal(t, []string{"jpeg", "png", "tiff"}, r.Available())
	assert.Equal(t, "encoders: jpeg, png, tiff", r.String())
	assert.Equal(t, "no encoders available", NewRegistryWith().String())
}

func TestJPEG_QualityAffectsSize(t *testing.T) {
	img := gradient(128, 96)
	enc := &JPEGEncoder{}

	high, err := enc.Encode(context.Background(), img, 0.95)
	require.NoError(t, err)
	low, err := enc.Encode(context.Background(), img, 0.1)
	require.NoError(t, err)

	assert.Less(t, len(low), len(high))
}

func TestJPEG_FlattensAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	// Fully transparent source must come out white, not black.
	data, err := (&JPEGEncoder{}).Encode(context.Background(), img, 0.9)
	require.NoError(t, err)

	out, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := out.At(4, 4).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestLosslessEncodersIgnoreQuality(t *testing.T) {
	img := gradient(32, 32)
	ctx := context.Background()

	for _, enc := range []Encoder{&PNGEncoder{}, &GIFEncoder{}, &BMPEncoder{}, &TIFFEncoder{}} {
		t.Run(enc.Format(), func(t *testing.T) {
			require.True(t, enc.Lossless())
			a, err := enc.Encode(ctx, img, 0.1)
			require.NoError(t, err)
			b, err := enc.Encode(ctx, img, 0.9)
			require.NoError(t, err)
			assert.Equal(t, a, b)
		})
	}
}

func TestEncodeHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&JPEGEncoder{}).Encode(ctx, gradient(8, 8), 0.5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 95, percent(0.95))
	assert.Equal(t, 5, percent(0.05))
	assert.Equal(t, 82, percent(0))
	assert.Equal(t, 82, percent(1.5))
	assert.Equal(t, 1, percent(0.001))
}
