//go:build ignore

// gen_fixtures writes a mixed input tree for a compress smoke run:
//
//	go run e2e/gen_fixtures.go /tmp/rp_in
//	go run . compress /tmp/rp_in --target 30KB --out /tmp/rp_out --keep-best-effort
//	go run . validate /tmp/rp_out
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	for _, sub := range []string{"gallery", ".thumbs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			panic(err)
		}
	}
	rng := rand.New(rand.NewPCG(1, 2))

	// Large noisy photo: needs several quality and scale steps.
	writeJPEG(filepath.Join(dir, "photo.jpg"), noisy(rng, 1600, 1200), 95)

	// Gallery shots of different aspect ratios.
	writeJPEG(filepath.Join(dir, "gallery", "wide.jpg"), noisy(rng, 1200, 500), 90)
	writeJPEG(filepath.Join(dir, "gallery", "tall.jpg"), noisy(rng, 500, 1200), 90)
	writePNG(filepath.Join(dir, "gallery", "flat.png"), flat(640, 480))

	// Translucent logo: "auto" without webp must stay png.
	writePNG(filepath.Join(dir, "logo.png"), alphaGradient(256, 256))

	// Below the 50px floor: only quality can move.
	writeJPEG(filepath.Join(dir, "icon.jpg"), noisy(rng, 40, 40), 100)

	// Skipped: hidden directory.
	writePNG(filepath.Join(dir, ".thumbs", "skip.png"), flat(32, 32))

	// Recorded as DecodeFailed.
	if err := os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not really a jpeg"), 0o644); err != nil {
		panic(err)
	}

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 7 inputs (+1 hidden) in %s\n", dir)
}

func noisy(rng *rand.Rand, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := uint8(rng.IntN(64))
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*191/w) + n,
				G: uint8(y*191/h) + n,
				B: uint8((x+y)%128) + n,
				A: 255,
			})
		}
	}
	return img
}

func flat(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 40, G: 90, B: 160, A: 255}
			if x < 8 || x >= w-8 || y < 8 || y >= h-8 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func alphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

func writePNG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		panic(err)
	}
}

func writeJPEG(path string, img image.Image, quality int) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		panic(err)
	}
}
