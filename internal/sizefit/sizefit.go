// Package sizefit re-encodes decoded images to meet a byte budget, a
// quality tier or explicit dimensions.
//
// A ByteBudget run is a guarded loop of render, encode, measure, adjust.
// Adjustments alternate between one quality step and one scale step,
// starting with quality. Once quality has reached its floor (or the
// format is lossless) only scale moves. When the next scale step would
// take either side under MinDimension and quality cannot drop further,
// the run fails with ErrTargetUnreachable and hands back its last attempt.
// Output bytes are never padded.
package sizefit

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/AnyUserName/reducepic/internal/encoder"
	"github.com/AnyUserName/reducepic/internal/preset"
)

// Options tunes the search. Zero fields take the DefaultOptions value.
type Options struct {
	// Format is the requested output format: a name, extension or MIME
	// type, "auto", or "original" (also the empty string).
	Format string

	StartQuality   float64 // first quality tried by a budget search
	MinQuality     float64 // quality floor
	CoarseStep     float64 // quality step while quality > FineBelow
	FineStep       float64 // quality step at or below FineBelow
	FineBelow      float64
	ScaleStep      float64 // scale multiplier per scale step
	SmallScaleStep float64 // multiplier once a side is under SmallDimension
	SmallDimension int
	MinDimension   int   // pixel floor for either side
	Tolerance      int64 // bytes allowed over MaxBytes; negative means none
	DefaultQuality float64

	Logger *slog.Logger
}

// DefaultOptions returns the stock search parameters.
func DefaultOptions() Options {
	return Options{
		Format:         encoder.FormatOriginal,
		StartQuality:   0.95,
		MinQuality:     0.05,
		CoarseStep:     0.05,
		FineStep:       0.02,
		FineBelow:      0.5,
		ScaleStep:      0.9,
		SmallScaleStep: 0.8,
		SmallDimension: 100,
		MinDimension:   50,
		Tolerance:      2 * 1024,
		DefaultQuality: 0.9,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.StartQuality <= 0 || o.StartQuality > 1 {
		o.StartQuality = d.StartQuality
	}
	if o.MinQuality <= 0 || o.MinQuality > o.StartQuality {
		o.MinQuality = min(d.MinQuality, o.StartQuality)
	}
	if o.CoarseStep <= 0 {
		o.CoarseStep = d.CoarseStep
	}
	if o.FineStep <= 0 {
		o.FineStep = d.FineStep
	}
	if o.FineBelow <= 0 {
		o.FineBelow = d.FineBelow
	}
	if o.ScaleStep <= 0 || o.ScaleStep >= 1 {
		o.ScaleStep = d.ScaleStep
	}
	if o.SmallScaleStep <= 0 || o.SmallScaleStep >= 1 {
		o.SmallScaleStep = d.SmallScaleStep
	}
	if o.SmallDimension <= 0 {
		o.SmallDimension = d.SmallDimension
	}
	if o.MinDimension <= 0 {
		o.MinDimension = d.MinDimension
	}
	switch {
	case o.Tolerance == 0:
		o.Tolerance = d.Tolerance
	case o.Tolerance < 0:
		o.Tolerance = 0
	}
	if o.DefaultQuality <= 0 || o.DefaultQuality > 1 {
		o.DefaultQuality = d.DefaultQuality
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Encoder is the size-targeting encoder. It holds no per-image state and
// is safe for concurrent use; every Encode call owns its own raster.
type Encoder struct {
	registry *encoder.Registry
	opts     Options

	// resample renders the source at the given size.
	resample func(img image.Image, w, h int) image.Image
}

// New creates an Encoder backed by the given registry.
func New(registry *encoder.Registry, opts Options) *Encoder {
	return &Encoder{
		registry: registry,
		opts:     opts.withDefaults(),
		resample: func(img image.Image, w, h int) image.Image {
			return imaging.Resize(img, w, h, imaging.Lanczos)
		},
	}
}

// Options returns the effective options.
func (e *Encoder) Options() Options {
	return e.opts
}

// Encode re-encodes src to satisfy c.
func (e *Encoder) Encode(ctx context.Context, src Source, c Constraint) (*Result, error) {
	if src.Image == nil || src.Width <= 0 || src.Height <= 0 {
		return nil, newError(KindDecodeFailed, src.Name, "no decoded image")
	}
	if c == nil {
		return nil, newError(KindInvalidConstraint, src.Name, "no constraint")
	}

	enc, err := e.registry.Resolve(e.opts.Format, src.Format, HasAlpha(src.Image))
	if err != nil {
		return nil, &Error{Kind: KindUnsupportedFormat, Source: src.Name, Err: err}
	}

	switch c := c.(type) {
	case ByteBudget:
		return e.fitBudget(ctx, enc, src, c)
	case QualityPreset:
		p, err := preset.Get(c.Level)
		if err != nil {
			return nil, &Error{Kind: KindInvalidConstraint, Source: src.Name, Err: err}
		}
		return e.single(ctx, enc, src, src.Width, src.Height, p.Quality)
	case DimensionSpec:
		if c.Width < 0 || c.Height < 0 || c.Percent < 0 || c.Quality < 0 || c.Quality > 1 {
			return nil, newError(KindInvalidConstraint, src.Name, "bad %s (quality %g)", c, c.Quality)
		}
		q := c.Quality
		if q == 0 {
			q = e.opts.DefaultQuality
		}
		w, h := ResolveDimensions(src.Width, src.Height, c)
		return e.single(ctx, enc, src, w, h, q)
	default:
		return nil, newError(KindInvalidConstraint, src.Name, "unknown constraint %T", c)
	}
}

// single is the one-pass transform used by presets and dimension specs.
func (e *Encoder) single(ctx context.Context, enc encoder.Encoder, src Source, w, h int, quality float64) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scale := min(float64(w)/float64(src.Width), float64(h)/float64(src.Height))
	res, err := e.attempt(ctx, enc, src, w, h, quality, scale)
	if err != nil {
		return nil, err
	}
	res.Iterations = 1
	return res, nil
}

// searchState is the mutable state of one budget run.
type searchState struct {
	quality float64
	scale   float64
	width   int
	height  int
}

type move int

const (
	moveNone move = iota
	moveQuality
	moveScale
)

func (e *Encoder) fitBudget(ctx context.Context, enc encoder.Encoder, src Source, c ByteBudget) (*Result, error) {
	if c.MaxBytes <= 0 {
		return nil, newError(KindInvalidConstraint, src.Name, "byte budget must be positive, got %d", c.MaxBytes)
	}

	limit := c.MaxBytes + e.opts.Tolerance
	if limit < c.MaxBytes {
		limit = math.MaxInt64
	}
	if src.Size > 0 && src.Size < limit {
		limit = src.Size
	}

	st := searchState{
		quality: e.opts.StartQuality,
		scale:   1,
		width:   src.Width,
		height:  src.Height,
	}
	log := e.opts.Logger.With("image", src.Name, "format", enc.Format(), "limit", limit)
	last := moveScale // so the first adjustment lowers quality

	for iter := 1; ; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := e.attempt(ctx, enc, src, st.width, st.height, st.quality, st.scale)
		if err != nil {
			return nil, err
		}
		res.Iterations = iter

		log.Debug("attempt",
			"iteration", iter,
			"width", st.width,
			"height", st.height,
			"quality", st.quality,
			"size", res.Size,
		)

		if res.Size <= limit {
			return res, nil
		}

		next := e.nextMove(enc, src, st, last)
		switch next {
		case moveQuality:
			st.quality = e.lowerQuality(st.quality)
		case moveScale:
			st.scale *= e.scaleFactor(st)
			st.width, st.height = scaleDims(src.Width, src.Height, st.scale)
		default:
			return nil, &Error{
				Kind:   KindTargetUnreachable,
				Source: src.Name,
				Err: fmt.Errorf("smallest attempt %d bytes at %dx%d q=%.2f exceeds %d",
					res.Size, res.Width, res.Height, res.Quality, limit),
				Best: res,
			}
		}
		last = next
	}
}

// nextMove alternates quality and scale steps, falling back to whichever
// one is still possible.
func (e *Encoder) nextMove(enc encoder.Encoder, src Source, st searchState, last move) move {
	canQuality := !enc.Lossless() && st.quality > e.opts.MinQuality+1e-9

	nw, nh := scaleDims(src.Width, src.Height, st.scale*e.scaleFactor(st))
	canScale := nw >= e.opts.MinDimension && nh >= e.opts.MinDimension

	switch {
	case canQuality && (last == moveScale || !canScale):
		return moveQuality
	case canScale:
		return moveScale
	default:
		return moveNone
	}
}

func (e *Encoder) lowerQuality(q float64) float64 {
	step := e.opts.CoarseStep
	if q <= e.opts.FineBelow {
		step = e.opts.FineStep
	}
	return max(round2(q-step), e.opts.MinQuality)
}

func (e *Encoder) scaleFactor(st searchState) float64 {
	if st.width < e.opts.SmallDimension || st.height < e.opts.SmallDimension {
		return e.opts.SmallScaleStep
	}
	return e.opts.ScaleStep
}

// attempt renders src at w×h and encodes it once.
func (e *Encoder) attempt(ctx context.Context, enc encoder.Encoder, src Source, w, h int, quality, scale float64) (*Result, error) {
	img := src.Image
	if w != src.Width || h != src.Height {
		img = e.resample(src.Image, w, h)
	}

	data, err := enc.Encode(ctx, img, quality)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &Error{Kind: KindUnsupportedFormat, Source: src.Name, Err: fmt.Errorf("encode %s: %w", enc.Format(), err)}
	}

	return &Result{
		Data:      data,
		Size:      int64(len(data)),
		Format:    enc.Format(),
		MIMEType:  enc.MIMEType(),
		Extension: enc.Extension(),
		Width:     w,
		Height:    h,
		Quality:   quality,
		Scale:     scale,
	}, nil
}
