package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/reducepic/internal/encoder"
)

// Input represents a discovered image file.
type Input struct {
	// AbsPath is the absolute path to the file on disk.
	AbsPath string
	// RelPath is the path relative to the scan root, with forward slashes.
	RelPath string
	// Key is the entry key: relpath without extension, or with it when
	// another input shares the same stem.
	Key string
	// Format is the format implied by the extension (jpeg, png, webp, ...).
	Format string
	// Size is the file size in bytes.
	Size int64
}

// imageExtensions lists recognized image file extensions.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
}

// IsImagePath reports whether path has a recognized image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// ScanImages returns the images under root. Root may be a single file.
// Hidden directories and any directory listed in skip are not descended.
func ScanImages(root string, skip ...string) ([]Input, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !IsImagePath(root) {
			return nil, fmt.Errorf("%s: not a supported image", root)
		}
		return []Input{newInput(root, filepath.Base(root), info.Size())}, nil
	}

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		if abs, err := filepath.Abs(s); err == nil {
			skipped[abs] = true
		}
	}

	var inputs []Input
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			// Skip hidden directories and the output directory.
			if strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if abs, err := filepath.Abs(path); err == nil && skipped[abs] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsImagePath(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		inputs = append(inputs, newInput(path, relPath, fi.Size()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	uniqueKeys(inputs)
	return inputs, nil
}

// uniqueKeys keeps the extension in the key of every input whose stem is
// shared with another input (photo.png and photo.jpg become "photo.png" and
// "photo.jpg").
func uniqueKeys(inputs []Input) {
	seen := make(map[string]int, len(inputs))
	for _, in := range inputs {
		seen[in.Key]++
	}
	for i := range inputs {
		if seen[inputs[i].Key] > 1 {
			inputs[i].Key = inputs[i].RelPath
		}
	}
}

func newInput(path, relPath string, size int64) Input {
	ext := filepath.Ext(relPath)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Input{
		AbsPath: abs,
		RelPath: filepath.ToSlash(relPath),
		// Key: relative path without extension, using forward slashes.
		Key:    filepath.ToSlash(strings.TrimSuffix(relPath, ext)),
		Format: encoder.Normalize(ext),
		Size:   size,
	}
}
