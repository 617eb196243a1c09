package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnyUserName/reducepic/internal/encoder"
	"github.com/AnyUserName/reducepic/internal/hasher"
	"github.com/AnyUserName/reducepic/internal/manifest"
	"github.com/AnyUserName/reducepic/internal/preset"
	"github.com/AnyUserName/reducepic/internal/sizefit"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x*7 + y*13) % 256), A: 255,
			})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "banner.png"), 160, 120)
	writePNG(t, filepath.Join(dir, "cards", "card-1.png"), 120, 90)
	writePNG(t, filepath.Join(dir, "cards", "card-2.png"), 90, 120)
	writePNG(t, filepath.Join(dir, ".cache", "hidden.png"), 40, 40)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o644))
	return dir
}

func TestScanImages(t *testing.T) {
	dir := fixtureDir(t)
	out := filepath.Join(dir, "out")
	writePNG(t, filepath.Join(out, "old.png"), 10, 10)

	inputs, err := ScanImages(dir, out)
	require.NoError(t, err)

	var keys []string
	for _, in := range inputs {
		keys = append(keys, in.Key)
		assert.Equal(t, "png", in.Format)
		assert.True(t, filepath.IsAbs(in.AbsPath))
		assert.Positive(t, in.Size)
	}
	assert.Equal(t, []string{"banner", "cards/card-1", "cards/card-2"}, keys)
}

func TestScanImages_SingleFile(t *testing.T) {
	dir := fixtureDir(t)

	inputs, err := ScanImages(filepath.Join(dir, "cards", "card-1.png"))
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "card-1", inputs[0].Key)
	assert.Equal(t, "card-1.png", inputs[0].RelPath)

	_, err = ScanImages(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
}

func TestScanImages_SameStemKeepsExtension(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "photo.png"), 20, 20)
	writePNG(t, filepath.Join(dir, "photo.tiff"), 20, 20)
	writePNG(t, filepath.Join(dir, "other.png"), 20, 20)

	inputs, err := ScanImages(dir)
	require.NoError(t, err)

	var keys []string
	for _, in := range inputs {
		keys = append(keys, in.Key)
	}
	assert.Equal(t, []string{"other", "photo.png", "photo.tiff"}, keys)
}

func TestRun_SameStemDifferentExtensions(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "photo.png"), 80, 60)

	img := image.NewNRGBA(image.Rect(0, 0, 80, 60))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	f, err := os.Create(filepath.Join(dir, "photo.jpg"))
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 90}))
	require.NoError(t, f.Close())

	out := filepath.Join(dir, "out")
	m, err := New(Config{
		Input:      dir,
		OutputDir:  out,
		Constraint: sizefit.QualityPreset{Level: preset.High},
		Options:    sizefit.Options{Format: "jpeg"},
	}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Entries, 2)
	assert.Equal(t, 2, m.Stats.TotalEntries)
	assert.Equal(t, "photo.png", m.Entries["photo.png"].Original.Path)
	assert.Equal(t, "photo.jpg", m.Entries["photo.jpg"].Original.Path)
	assert.NotEqual(t, m.Entries["photo.png"].Output.Path, m.Entries["photo.jpg"].Output.Path)

	for key, e := range m.Entries {
		sum, err := hasher.ContentHashFile(filepath.Join(out, filepath.FromSlash(e.Output.Path)), 16)
		require.NoError(t, err, key)
		assert.Equal(t, e.Output.Hash, sum, key)
	}
}

func TestRun_PresetWritesOutputsAndManifest(t *testing.T) {
	dir := fixtureDir(t)
	out := filepath.Join(dir, "out")

	var reports []Progress
	p := New(Config{
		Input:       dir,
		OutputDir:   out,
		Constraint:  sizefit.QualityPreset{Level: preset.Medium},
		Options:     sizefit.Options{Format: "jpeg"},
		Parallelism: 2,
		OnProgress:  func(pr Progress) { reports = append(reports, pr) },
	})

	m, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Entries, 3)
	assert.Empty(t, m.Failures)
	assert.Equal(t, "preset medium", m.Constraint)
	assert.Equal(t, 2, m.RunInfo.Parallelism)

	// Two groups: 2 + 1.
	require.Len(t, reports, 2)
	assert.Equal(t, Progress{Done: 2, Total: 3}, reports[0])
	assert.Equal(t, Progress{Done: 3, Total: 3}, reports[1])

	name := regexp.MustCompile(`^card-1\.120x90\.[0-9a-f]{8}\.jpg$`)
	e := m.Entries["cards/card-1"]
	assert.True(t, e.TargetMet)
	assert.Equal(t, 0.6, e.Output.Quality)
	assert.Equal(t, 1, e.Output.Iterations)
	assert.Regexp(t, name, filepath.Base(e.Output.Path))
	assert.True(t, strings.HasPrefix(e.Output.Path, "cards/"))

	for key, e := range m.Entries {
		path := filepath.Join(out, filepath.FromSlash(e.Output.Path))
		info, err := os.Stat(path)
		require.NoError(t, err, key)
		assert.Equal(t, e.Output.Size, info.Size(), key)

		sum, err := hasher.ContentHashFile(path, 16)
		require.NoError(t, err)
		assert.Equal(t, e.Output.Hash, sum, key)
	}

	assert.Equal(t, 3, m.Stats.TotalEntries)
	assert.Zero(t, m.Stats.Cancelled)
	assert.Equal(t, filepath.Join(out, manifest.FileName), p.ManifestPath())
}

// countingJPEG tracks how many encodes run at once.
type countingJPEG struct {
	encoder.JPEGEncoder
	inFlight, peak atomic.Int32
}

func (c *countingJPEG) Encode(ctx context.Context, img image.Image, quality float64) ([]byte, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		old := c.peak.Load()
		if n <= old || c.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return c.JPEGEncoder.Encode(ctx, img, quality)
}

func TestRun_ParallelismBoundsConcurrentEncodes(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		writePNG(t, filepath.Join(dir, name+".png"), 40, 30)
	}
	enc := &countingJPEG{}

	var reports []Progress
	m, err := New(Config{
		Input:       dir,
		OutputDir:   filepath.Join(dir, "out"),
		Constraint:  sizefit.QualityPreset{Level: preset.Low},
		Options:     sizefit.Options{Format: "jpeg"},
		Parallelism: 2,
		Registry:    encoder.NewRegistryWith(enc),
		OnProgress:  func(pr Progress) { reports = append(reports, pr) },
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, m.Entries, 5)
	assert.LessOrEqual(t, enc.peak.Load(), int32(2))
	assert.Positive(t, enc.peak.Load())
	assert.Zero(t, enc.inFlight.Load())
	require.Len(t, reports, 3)
	assert.Equal(t, Progress{Done: 5, Total: 5}, reports[2])
}

func TestRun_BudgetNeverGrowsOutput(t *testing.T) {
	dir := fixtureDir(t)

	m, err := New(Config{
		Input:      dir,
		OutputDir:  filepath.Join(dir, "out"),
		Constraint: sizefit.ByteBudget{MaxBytes: 1 << 20},
		Options:    sizefit.Options{Format: "jpeg"},
	}).Run(context.Background())
	require.NoError(t, err)

	for key, e := range m.Entries {
		assert.True(t, e.TargetMet, key)
		assert.LessOrEqual(t, e.Output.Size, e.Original.Size, key)
	}
	assert.Equal(t, m.Stats.TotalInputBytes-m.Stats.TotalOutputBytes, m.Stats.SavedBytes)
}

func TestRun_RecordsFailuresAndContinues(t *testing.T) {
	dir := fixtureDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("definitely not a jpeg"), 0o644))

	var last Progress
	m, err := New(Config{
		Input:      dir,
		OutputDir:  filepath.Join(dir, "out"),
		Constraint: sizefit.QualityPreset{Level: preset.Low},
		Options:    sizefit.Options{Format: "jpeg"},
		OnProgress: func(pr Progress) { last = pr },
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, m.Entries, 3)
	require.Len(t, m.Failures, 1)
	assert.Equal(t, "broken", m.Failures[0].Key)
	assert.Equal(t, "DecodeFailed", m.Failures[0].Kind)
	assert.Equal(t, Progress{Done: 3, Failed: 1, Total: 4}, last)
	assert.Equal(t, 1, m.Stats.TotalFailures)
}

func TestRun_BestEffort(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "in", "photo.png"), 200, 160)

	cfg := Config{
		Input:      filepath.Join(dir, "in"),
		OutputDir:  filepath.Join(dir, "out"),
		Constraint: sizefit.ByteBudget{MaxBytes: 1},
		Options:    sizefit.Options{Format: "png", Tolerance: -1},
	}

	t.Run("recorded as failure", func(t *testing.T) {
		m, err := New(cfg).Run(context.Background())
		require.ErrorIs(t, err, ErrAllFailed)
		require.Len(t, m.Failures, 1)
		assert.Equal(t, "TargetUnreachable", m.Failures[0].Kind)
		assert.Empty(t, m.Entries)
	})

	t.Run("kept when asked", func(t *testing.T) {
		cfg := cfg
		cfg.KeepBestEffort = true
		cfg.OutputDir = filepath.Join(dir, "out-best")

		m, err := New(cfg).Run(context.Background())
		require.NoError(t, err)
		require.Len(t, m.Entries, 1)

		e := m.Entries["photo"]
		assert.False(t, e.TargetMet)
		assert.GreaterOrEqual(t, e.Output.Width, 50)
		assert.GreaterOrEqual(t, e.Output.Height, 50)
		assert.Less(t, e.Output.Width, 200)
		assert.Equal(t, 1, m.Stats.BestEffort)

		_, err = os.Stat(filepath.Join(cfg.OutputDir, e.Output.Path))
		assert.NoError(t, err)
	})
}

func TestRun_Cancelled(t *testing.T) {
	dir := fixtureDir(t)
	out := filepath.Join(dir, "out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := New(Config{
		Input:      dir,
		OutputDir:  out,
		Constraint: sizefit.QualityPreset{Level: preset.High},
		Options:    sizefit.Options{Format: "jpeg"},
	}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, m)
	assert.Empty(t, m.Entries)
	assert.Empty(t, m.Failures)
	assert.Equal(t, 3, m.Stats.Cancelled)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_CancelBetweenGroups(t *testing.T) {
	dir := fixtureDir(t)
	out := filepath.Join(dir, "out")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := New(Config{
		Input:       dir,
		OutputDir:   out,
		Constraint:  sizefit.QualityPreset{Level: preset.High},
		Options:     sizefit.Options{Format: "jpeg"},
		Parallelism: 1,
		OnProgress:  func(Progress) { cancel() },
	}).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, m.Entries, 1)
	assert.Equal(t, 2, m.Stats.Cancelled)

	// Only completed outputs, no temp files.
	var files []string
	require.NoError(t, filepath.WalkDir(out, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, d.Name())
		}
		return err
	}))
	require.Len(t, files, 1)
	assert.False(t, strings.HasPrefix(files[0], ".reducepic-"))
}

func TestRun_NoImages(t *testing.T) {
	dir := t.TempDir()
	_, err := New(Config{
		Input:      dir,
		OutputDir:  filepath.Join(dir, "out"),
		Constraint: sizefit.QualityPreset{Level: preset.High},
	}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestRun_NoConstraint(t *testing.T) {
	_, err := New(Config{Input: t.TempDir()}).Run(context.Background())
	assert.ErrorIs(t, err, sizefit.ErrInvalidConstraint)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.bin")
	require.NoError(t, writeFileAtomic(path, []byte("hello")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
