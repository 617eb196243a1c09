package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/AnyUserName/reducepic/internal/encoder"
	"github.com/AnyUserName/reducepic/internal/manifest"
	"github.com/AnyUserName/reducepic/internal/sizefit"
)

// DefaultParallelism is the number of images encoded at once.
const DefaultParallelism = 4

// ErrNoImages is returned when the input holds no recognized images.
var ErrNoImages = errors.New("no images found")

// ErrAllFailed is returned when no image produced an output.
var ErrAllFailed = errors.New("all images failed")

// Config holds all parameters for a compress run.
type Config struct {
	Input      string // file or directory
	OutputDir  string
	Constraint sizefit.Constraint
	Options    sizefit.Options

	// Parallelism is the size of each group of concurrently encoded images.
	Parallelism int

	// KeepBestEffort writes the last attempt of an unreachable budget
	// instead of only recording the failure.
	KeepBestEffort bool

	Logger     *slog.Logger
	OnProgress func(Progress)

	// Registry overrides the default encoder registry.
	Registry *encoder.Registry
}

// Progress is reported after every group.
type Progress struct {
	Done   int // images with an output written
	Failed int
	Total  int
}

// Pipeline orchestrates image processing.
type Pipeline struct {
	cfg      Config
	registry *encoder.Registry
	fit      *sizefit.Encoder
	log      *slog.Logger
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = encoder.NewRegistry()
	}
	opts := cfg.Options
	if opts.Logger == nil {
		opts.Logger = cfg.Logger
	}
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		fit:      sizefit.New(registry, opts),
		log:      cfg.Logger,
	}
}

// Run compresses every image under the input and returns the manifest.
//
// Images are processed in successive groups of Parallelism. A failed image
// is recorded and never stops the batch. When ctx is cancelled, Run stops
// starting new groups and returns the partial manifest along with the
// context error; outputs already written stay valid.
func (p *Pipeline) Run(ctx context.Context) (*manifest.Manifest, error) {
	if p.cfg.Constraint == nil {
		return nil, fmt.Errorf("%w: no constraint", sizefit.ErrInvalidConstraint)
	}
	p.log.Debug("encoders", "available", p.registry.Available())

	// Step 1: Scan for images.
	inputs, err := ScanImages(p.cfg.Input, p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, p.cfg.Input)
	}
	p.log.Debug("scan complete", "images", len(inputs), "input", p.cfg.Input)

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// Step 2: Process images group by group.
	results := make([]processResult, len(inputs))
	progress := Progress{Total: len(inputs)}
	processed := 0

	for start := 0; start < len(inputs); start += p.cfg.Parallelism {
		if ctx.Err() != nil {
			break
		}
		end := min(start+p.cfg.Parallelism, len(inputs))

		var g errgroup.Group
		g.SetLimit(p.cfg.Parallelism)
		for i := start; i < end; i++ {
			g.Go(func() error {
				p.log.Debug("processing", "key", inputs[i].Key)
				results[i] = p.processImage(ctx, inputs[i])
				if results[i].cancelled {
					return ctx.Err()
				}
				return nil
			})
		}
		// Per-image failures live in results; only cancellation comes back here.
		if err := g.Wait(); err != nil {
			p.log.Debug("group interrupted", "start", start, "error", err)
		}
		processed = end

		for _, r := range results[start:end] {
			switch {
			case r.cancelled:
			case r.failure != nil:
				progress.Failed++
			default:
				progress.Done++
			}
		}
		if p.cfg.OnProgress != nil {
			p.cfg.OnProgress(progress)
		}
	}

	// Step 3: Collect results into manifest.
	opts := p.fit.Options()
	m := manifest.New(p.cfg.Constraint.String(), opts.Format)
	m.RunInfo = &manifest.RunInfo{
		Parallelism:  p.cfg.Parallelism,
		Tolerance:    opts.Tolerance,
		MinDimension: opts.MinDimension,
	}

	cancelled := len(inputs) - processed
	for _, r := range results[:processed] {
		switch {
		case r.cancelled:
			cancelled++
		case r.failure != nil:
			m.Failures = append(m.Failures, *r.failure)
			p.log.Warn("image failed", "key", r.failure.Key, "kind", r.failure.Kind, "error", r.failure.Message)
		default:
			m.Entries[r.key] = r.entry
		}
	}
	m.Stats.Cancelled = cancelled
	m.ComputeStats()

	if err := ctx.Err(); err != nil {
		p.log.Warn("run cancelled", "written", len(m.Entries), "remaining", cancelled)
		return m, err
	}
	if len(m.Entries) == 0 {
		return m, fmt.Errorf("%w: %d of %d", ErrAllFailed, len(m.Failures), len(inputs))
	}
	if len(m.Failures) > 0 {
		p.log.Warn("partial failure", "failed", len(m.Failures), "total", len(inputs))
	}
	return m, nil
}

// ManifestPath returns where the manifest belongs for this run.
func (p *Pipeline) ManifestPath() string {
	return filepath.Join(p.cfg.OutputDir, manifest.FileName)
}
