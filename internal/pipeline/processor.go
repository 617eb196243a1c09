package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/reducepic/internal/hasher"
	"github.com/AnyUserName/reducepic/internal/manifest"
	"github.com/AnyUserName/reducepic/internal/sizefit"
)

// KindWriteFailed marks an image whose output could not be written.
const KindWriteFailed = "WriteFailed"

// processResult holds the result of processing a single input image.
type processResult struct {
	key       string
	entry     manifest.Entry
	failure   *manifest.Failure
	cancelled bool
}

// processImage handles a single input: read, decode, fit, write.
func (p *Pipeline) processImage(ctx context.Context, in Input) processResult {
	result := processResult{key: in.Key}

	fail := func(kind string, err error) processResult {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.cancelled = true
			return result
		}
		result.failure = &manifest.Failure{
			Key:     in.Key,
			Path:    in.RelPath,
			Kind:    kind,
			Message: err.Error(),
		}
		return result
	}

	data, err := os.ReadFile(in.AbsPath)
	if err != nil {
		return fail(sizefit.KindDecodeFailed.String(), fmt.Errorf("read %s: %w", in.RelPath, err))
	}

	src, err := sizefit.Decode(in.RelPath, data)
	if err != nil {
		return fail(sizefit.KindOf(err).String(), err)
	}

	targetMet := true
	res, err := p.fit.Encode(ctx, src, p.cfg.Constraint)
	if err != nil {
		best := sizefit.BestEffort(err)
		if !p.cfg.KeepBestEffort || best == nil {
			return fail(sizefit.KindOf(err).String(), err)
		}
		p.log.Info("keeping best effort", "key", in.Key, "size", best.Size, "width", best.Width, "height", best.Height)
		res, targetMet = best, false
	}

	// Content hash for filename.
	contentHash := hasher.ContentHash(res.Data, 16)

	// Build filename: key.WxH.hash.ext
	keyDir := filepath.Dir(filepath.FromSlash(in.Key))
	fileName := fmt.Sprintf("%s.%dx%d.%s.%s",
		filepath.Base(in.Key), res.Width, res.Height, contentHash[:8], res.Extension)
	relPath := filepath.ToSlash(filepath.Join(keyDir, fileName))

	outPath := filepath.Join(p.cfg.OutputDir, filepath.FromSlash(relPath))
	if err := writeFileAtomic(outPath, res.Data); err != nil {
		return fail(KindWriteFailed, fmt.Errorf("write %s: %w", relPath, err))
	}

	p.log.Debug("done",
		"key", in.Key,
		"size", res.Size,
		"original", src.Size,
		"quality", res.Quality,
		"iterations", res.Iterations,
	)

	result.entry = manifest.Entry{
		Original: manifest.OriginalInfo{
			Path:   in.RelPath,
			Width:  src.Width,
			Height: src.Height,
			Format: src.Format,
			Size:   src.Size,
		},
		Output: manifest.Output{
			Format:     res.Format,
			MIMEType:   res.MIMEType,
			Width:      res.Width,
			Height:     res.Height,
			Size:       res.Size,
			Hash:       contentHash,
			Path:       relPath,
			Quality:    res.Quality,
			Scale:      res.Scale,
			Iterations: res.Iterations,
		},
		TargetMet: targetMet,
	}
	return result
}

// writeFileAtomic writes data next to path and renames it into place, so
// a cancelled or failed run never leaves a truncated output behind.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".reducepic-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
