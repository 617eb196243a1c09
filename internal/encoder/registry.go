package encoder

import (
	"fmt"
	"strings"
)

// Format names with special meaning for Resolve.
const (
	FormatAuto     = "auto"
	FormatOriginal = "original"
)

// priority is the display and fallback order of formats.
var priority = []string{"avif", "webp", "jpeg", "png", "gif", "bmp", "tiff"}

// Priority returns the built-in format names in display order.
func Priority() []string {
	return append([]string(nil), priority...)
}

// aliases maps file extensions and MIME types to canonical format names.
var aliases = map[string]string{
	"jpg":        "jpeg",
	"jpe":        "jpeg",
	"tif":        "tiff",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpeg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/avif": "avif",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
}

// Normalize returns the canonical format name for a format, extension or
// MIME type ("JPG", ".jpg", "image/jpeg" all become "jpeg").
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, ".")
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// Registry holds all available encoders and selects the best one per format.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	return NewRegistryWith(
		&AVIFEncoder{},
		&WebPEncoder{},
		&JPEGEncoder{},
		&PNGEncoder{},
		&GIFEncoder{},
		&BMPEncoder{},
		&TIFFEncoder{},
	)
}

// NewRegistryWith builds a registry from the given encoders. Only
// available ones are registered; a later encoder replaces an earlier one
// with the same format.
func NewRegistryWith(encoders ...Encoder) *Registry {
	r := &Registry{
		encoders: make(map[string]Encoder),
	}
	for _, enc := range encoders {
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}
	return r
}

// Get returns the encoder for a format, extension or MIME type.
func (r *Registry) Get(format string) (Encoder, error) {
	f := Normalize(format)
	if enc, ok := r.encoders[f]; ok {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Available returns all available format names.
func (r *Registry) Available() []string {
	var result []string
	seen := map[string]bool{}
	for _, f := range priority {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
			seen[f] = true
		}
	}
	// Encoders registered outside the built-in set go last.
	for f := range r.encoders {
		if !seen[f] {
			result = append(result, f)
		}
	}
	return result
}

// Resolve picks the encoder for a requested output format.
//
// "auto" prefers webp, then jpeg, falling back to png for sources with
// alpha when webp is missing. "original" or an empty request keeps the
// source format.
func (r *Registry) Resolve(requested, sourceFormat string, hasAlpha bool) (Encoder, error) {
	switch Normalize(requested) {
	case "", FormatOriginal:
		return r.Get(sourceFormat)
	case FormatAuto:
		if enc, ok := r.encoders["webp"]; ok {
			return enc, nil
		}
		if hasAlpha {
			if enc, ok := r.encoders["png"]; ok {
				return enc, nil
			}
		}
		if enc, ok := r.encoders["jpeg"]; ok {
			return enc, nil
		}
		return nil, fmt.Errorf("%w: no encoder for %q", ErrUnsupportedFormat, requested)
	default:
		return r.Get(requested)
	}
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}
