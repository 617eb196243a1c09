package sizefit

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/AnyUserName/reducepic/internal/imgutil"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode turns raw upload bytes into a Source. EXIF orientation is applied
// so that width and height match what a viewer shows.
func Decode(name string, data []byte) (Source, error) {
	kind, err := imgutil.Detect(data)
	if err != nil {
		return Source{}, &Error{Kind: KindDecodeFailed, Source: name, Err: err}
	}
	if kind == imgutil.KindUnknown {
		return Source{}, newError(KindDecodeFailed, name, "unrecognized image header")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Source{}, &Error{Kind: KindDecodeFailed, Source: name, Err: err}
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Source{}, newError(KindDecodeFailed, name, "empty image %dx%d", b.Dx(), b.Dy())
	}

	return Source{
		Name:     name,
		Image:    img,
		Width:    b.Dx(),
		Height:   b.Dy(),
		Size:     int64(len(data)),
		Format:   kind.String(),
		MIMEType: kind.MIMEType(),
	}, nil
}

// HasAlpha reports whether any pixel of img may be translucent.
func HasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}
