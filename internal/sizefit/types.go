package sizefit

import (
	"image"

	"github.com/AnyUserName/reducepic/internal/preset"
)

// Source is a decoded upload. It is never mutated after Decode.
type Source struct {
	Name     string
	Image    image.Image
	Width    int
	Height   int
	Size     int64  // original file size in bytes
	Format   string // canonical format name, e.g. "jpeg"
	MIMEType string
}

// Result is one encoded output.
type Result struct {
	Data       []byte
	Size       int64 // always len(Data)
	Format     string
	MIMEType   string
	Extension  string
	Width      int
	Height     int
	Quality    float64 // ignored by lossless formats
	Scale      float64 // smaller side ratio to the source; above 1 only for upscaled dimension specs
	Iterations int
}

// Saved returns the bytes saved relative to original, clamped at zero
// when the output grew.
func (r *Result) Saved(original int64) int64 {
	if d := original - r.Size; d > 0 {
		return d
	}
	return 0
}

// Constraint is the goal of one encode run: ByteBudget, QualityPreset
// or DimensionSpec.
type Constraint interface {
	constraint()
	String() string
}

// ByteBudget searches quality and scale until the output fits MaxBytes.
type ByteBudget struct {
	MaxBytes int64
}

// QualityPreset encodes once at the tier's fixed quality.
type QualityPreset struct {
	Level preset.Level
}

// DimensionSpec encodes once at explicit dimensions.
//
// Percent, when set, scales both sides and wins over Width/Height. With
// KeepAspect a single given side determines the other; otherwise the
// missing side keeps its original value. Quality zero means the encoder's
// DefaultQuality.
type DimensionSpec struct {
	Width      int
	Height     int
	Percent    float64
	KeepAspect bool
	Quality    float64
}

func (ByteBudget) constraint()    {}
func (QualityPreset) constraint() {}
func (DimensionSpec) constraint() {}
