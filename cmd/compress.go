package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/reducepic/internal/manifest"
	"github.com/AnyUserName/reducepic/internal/output"
	"github.com/AnyUserName/reducepic/internal/pipeline"
	"github.com/AnyUserName/reducepic/internal/preset"
	"github.com/AnyUserName/reducepic/internal/sizefit"
)

// constraintFlags holds the three mutually exclusive constraint families.
type constraintFlags struct {
	target     string
	preset     string
	width      int
	height     int
	percent    float64
	keepAspect bool
	quality    float64
}

var (
	compressFlags    constraintFlags
	compressOutDir   string
	compressFormat   string
	compressParallel int
	compressKeepBest bool
)

var compressCmd = &cobra.Command{
	Use:   "compress <path>",
	Short: "Compress images to a target size, preset or dimensions",
	Long: `Scans a file or directory for images (png, jpg, jpeg, webp, gif, bmp, tiff)
and re-encodes each one to satisfy exactly one constraint:

  --target 50KB                 byte budget; quality and scale are lowered
                                until the output fits (bare numbers are KiB)
  --preset high|medium|low      fixed quality, original dimensions
  --width/--height/--percent    explicit dimensions, encoded once

Output filenames are content-addressed: <key>.<w>x<h>.<hash>.<ext>
A reducepic.manifest.json is written next to the outputs.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func init() {
	f := compressCmd.Flags()
	f.StringVarP(&compressFlags.target, "target", "t", "", "maximum output size, e.g. 50KB, 1.5MB or 200 (KiB)")
	f.StringVarP(&compressFlags.preset, "preset", "p", "", "quality preset: high, medium, low")
	f.IntVar(&compressFlags.width, "width", 0, "output width in pixels")
	f.IntVar(&compressFlags.height, "height", 0, "output height in pixels")
	f.Float64Var(&compressFlags.percent, "percent", 0, "scale both sides to this percentage")
	f.BoolVar(&compressFlags.keepAspect, "keep-aspect", true, "derive the missing side from the aspect ratio")
	f.Float64Var(&compressFlags.quality, "quality", 0, "quality for --width/--height/--percent, 0-1 or 1-100 (default from config)")
	f.StringVarP(&compressOutDir, "out", "o", "", "output directory (default from config, ./reducepic_out)")
	f.StringVarP(&compressFormat, "format", "f", "", "output format: auto, original, jpeg, png, webp, avif, gif, bmp, tiff")
	f.IntVarP(&compressParallel, "parallel", "j", 0, "images encoded at once (default from config, 4)")
	f.BoolVar(&compressKeepBest, "keep-best-effort", false, "write the smallest attempt when a target cannot be met")
	compressCmd.MarkFlagsMutuallyExclusive("target", "preset")
	rootCmd.AddCommand(compressCmd)
}

// buildConstraint turns the flags into exactly one constraint.
func buildConstraint(f constraintFlags) (sizefit.Constraint, error) {
	dims := f.width != 0 || f.height != 0 || f.percent != 0
	set := 0
	for _, on := range []bool{f.target != "", f.preset != "", dims} {
		if on {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, errors.New("one of --target, --preset or --width/--height/--percent is required")
	case set > 1:
		return nil, errors.New("--target, --preset and --width/--height/--percent are mutually exclusive")
	}
	if f.quality != 0 && !dims {
		return nil, errors.New("--quality only applies to --width/--height/--percent")
	}

	switch {
	case f.target != "":
		b, err := sizefit.ParseByteBudget(f.target)
		if err != nil {
			return nil, err
		}
		return b, nil
	case f.preset != "":
		p, err := preset.Get(preset.Level(f.preset))
		if err != nil {
			return nil, err
		}
		return sizefit.QualityPreset{Level: p.Level}, nil
	}

	if f.width < 0 || f.height < 0 || f.percent < 0 {
		return nil, errors.New("--width, --height and --percent must be positive")
	}
	if f.percent != 0 && (f.width != 0 || f.height != 0) {
		return nil, errors.New("--percent cannot be combined with --width/--height")
	}
	q, err := normalizeQuality(f.quality)
	if err != nil {
		return nil, err
	}
	return sizefit.DimensionSpec{
		Width:      f.width,
		Height:     f.height,
		Percent:    f.percent,
		KeepAspect: f.keepAspect,
		Quality:    q,
	}, nil
}

// normalizeQuality accepts 0-1 or the 1-100 scale; zero means default.
func normalizeQuality(q float64) (float64, error) {
	switch {
	case q == 0:
		return 0, nil
	case q > 0 && q <= 1:
		return q, nil
	case q > 1 && q <= 100:
		return q / 100, nil
	default:
		return 0, fmt.Errorf("--quality %g out of range (0-1 or 1-100)", q)
	}
}

func runCompress(cmd *cobra.Command, args []string) error {
	start := time.Now()

	constraint, err := buildConstraint(compressFlags)
	if err != nil {
		return err
	}

	// Flags win over config.
	opts := cfg.SizefitOptions()
	if cmd.Flags().Changed("format") {
		opts.Format = compressFormat
	}
	outDir := cfg.Batch.OutDir
	if cmd.Flags().Changed("out") {
		outDir = compressOutDir
	}
	parallel := cfg.Batch.Parallelism
	if cmd.Flags().Changed("parallel") {
		parallel = compressParallel
	}
	keepBest := cfg.Batch.KeepBestEffort
	if cmd.Flags().Changed("keep-best-effort") {
		keepBest = compressKeepBest
	}

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	logger.Debug("compress",
		"input", absInput,
		"output", absOutput,
		"constraint", constraint.String(),
		"format", opts.Format,
		"parallelism", parallel,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.Config{
		Input:          absInput,
		OutputDir:      absOutput,
		Constraint:     constraint,
		Options:        opts,
		Parallelism:    parallel,
		KeepBestEffort: keepBest,
		Logger:         logger,
		OnProgress: func(pr pipeline.Progress) {
			if cfg.Output.Progress {
				printer.Progress(pr.Done, pr.Failed, pr.Total)
			}
		},
	})

	m, runErr := p.Run(ctx)
	if m == nil {
		return fmt.Errorf("compress: %w", runErr)
	}

	// A partial manifest is still written so that completed outputs stay
	// discoverable after a cancel.
	if err := manifest.WriteJSON(m, p.ManifestPath()); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printCompressReport(m, time.Since(start))

	switch {
	case errors.Is(runErr, context.Canceled):
		printer.Warning("cancelled: %d images not processed", m.Stats.Cancelled)
		return runErr
	case runErr != nil:
		return fmt.Errorf("compress: %w", runErr)
	}
	return nil
}

func printCompressReport(m *manifest.Manifest, elapsed time.Duration) {
	s := m.Stats
	printer.Header("reducepic compress complete")
	printer.Field("Constraint", "%s", m.Constraint)
	printer.Field("Images", "%s written, %s failed", output.Count(s.TotalEntries), output.Count(s.TotalFailures))
	if s.BestEffort > 0 {
		printer.Field("Best effort", "%d (target not met)", s.BestEffort)
	}
	printer.Field("Input size", "%s", output.Bytes(s.TotalInputBytes))
	printer.Field("Output size", "%s", output.Bytes(s.TotalOutputBytes))
	printer.Field("Saved", "%s (%s)", output.Bytes(s.SavedBytes), output.Reduction(s.TotalInputBytes, s.TotalInputBytes-s.SavedBytes))
	printer.Field("Time", "%s", elapsed.Round(time.Millisecond))
	printer.Field("Manifest", "%s", manifest.FileName)

	// Top 10 heaviest entries.
	if len(m.Entries) > 0 {
		keys := make([]string, 0, len(m.Entries))
		for k := range m.Entries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, b := m.Entries[keys[i]], m.Entries[keys[j]]
			if a.Original.Size != b.Original.Size {
				return a.Original.Size > b.Original.Size
			}
			return keys[i] < keys[j]
		})
		keys = keys[:min(len(keys), 10)]

		printer.Header(fmt.Sprintf("Top %d heaviest", len(keys)))
		tbl := printer.NewTable([]string{"Image", "Original", "Output", "Saved", "Size", "Quality", "Passes"})
		for _, k := range keys {
			e := m.Entries[k]
			name := truncKey(k, 40)
			if !e.TargetMet {
				name += " *"
			}
			tbl.AddRow(
				name,
				output.Bytes(e.Original.Size),
				output.Bytes(e.Output.Size),
				output.Reduction(e.Original.Size, e.Output.Size),
				fmt.Sprintf("%dx%d", e.Output.Width, e.Output.Height),
				fmt.Sprintf("%.2f", e.Output.Quality),
				fmt.Sprintf("%d", e.Output.Iterations),
			)
		}
		if err := tbl.Render(); err != nil {
			logger.Warn("render table", "error", err)
		}
	}

	if len(m.Failures) > 0 {
		printer.Header("Failures")
		tbl := printer.NewTable([]string{"Image", "Kind", "Error"})
		for _, f := range m.Failures {
			tbl.AddRow(truncKey(f.Key, 40), f.Kind, f.Message)
		}
		if err := tbl.Render(); err != nil {
			logger.Warn("render table", "error", err)
		}
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
