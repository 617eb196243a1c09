package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/reducepic/internal/hasher"
	"github.com/AnyUserName/reducepic/internal/manifest"
)

var validateSkipHash bool

var validateCmd = &cobra.Command{
	Use:   "validate <manifest_or_out_dir>",
	Short: "Validate a reducepic manifest against the files on disk",
	Long: `Checks that every output listed in the manifest exists, that its size
and content hash match, and that the recorded stats agree with the entries.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateSkipHash, "skip-hash", false, "only check existence and size")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	m, path, err := manifest.Read(args[0])
	if err != nil {
		return err
	}

	errs := validateManifest(m, filepath.Dir(path), !validateSkipHash)
	if len(errs) == 0 {
		printer.Success("Manifest is valid")
		printer.Success("%d entries, %d failures recorded, all outputs present", len(m.Entries), len(m.Failures))
		return nil
	}

	printer.Error("Manifest has %d error(s):", len(errs))
	for _, e := range errs {
		printer.Error("  %s", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string, checkHash bool) []string {
	var errs []string

	// Check version.
	if m.Version != manifest.SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seenPaths := map[string]string{}
	for _, key := range keys {
		e := m.Entries[key]

		if e.Original.Width <= 0 || e.Original.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid original dimensions %dx%d",
				key, e.Original.Width, e.Original.Height))
		}

		out := e.Output
		if out.Format == "" {
			errs = append(errs, fmt.Sprintf("entry %q: empty output format", key))
		}
		if out.Width <= 0 || out.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid output dimensions %dx%d", key, out.Width, out.Height))
		}
		if out.Quality < 0 || out.Quality > 1 {
			errs = append(errs, fmt.Sprintf("entry %q: quality %.2f out of range", key, out.Quality))
		}
		if out.Scale <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: scale %.3f out of range", key, out.Scale))
		}
		if out.Hash == "" {
			errs = append(errs, fmt.Sprintf("entry %q: missing hash", key))
		}
		if out.Path == "" {
			errs = append(errs, fmt.Sprintf("entry %q: missing path", key))
			continue
		}

		// Check duplicate paths.
		if other, ok := seenPaths[out.Path]; ok {
			errs = append(errs, fmt.Sprintf("entry %q: path %q already used by %q", key, out.Path, other))
		}
		seenPaths[out.Path] = key

		// Check file exists and matches.
		fullPath := filepath.Join(baseDir, filepath.FromSlash(out.Path))
		info, err := os.Stat(fullPath)
		if err != nil {
			errs = append(errs, fmt.Sprintf("entry %q: file not found: %s", key, out.Path))
			continue
		}
		if info.Size() != out.Size {
			errs = append(errs, fmt.Sprintf("entry %q: size mismatch: manifest=%d, disk=%d",
				key, out.Size, info.Size()))
		}
		if checkHash && out.Hash != "" {
			sum, err := hasher.ContentHashFile(fullPath, len(out.Hash))
			if err != nil {
				errs = append(errs, fmt.Sprintf("entry %q: hash: %v", key, err))
			} else if sum != out.Hash {
				errs = append(errs, fmt.Sprintf("entry %q: hash mismatch: manifest=%s, disk=%s", key, out.Hash, sum))
			}
		}
	}

	for i, f := range m.Failures {
		if f.Key == "" || f.Kind == "" {
			errs = append(errs, fmt.Sprintf("failure[%d]: missing key or kind", i))
		}
		if _, ok := m.Entries[f.Key]; ok {
			errs = append(errs, fmt.Sprintf("failure[%d]: %q is also listed as an entry", i, f.Key))
		}
	}

	// Verify stats consistency.
	recomputed := *m
	recomputed.ComputeStats()
	if m.Stats != recomputed.Stats {
		errs = append(errs, fmt.Sprintf("stats mismatch: manifest=%+v, computed=%+v", m.Stats, recomputed.Stats))
	}

	return errs
}
