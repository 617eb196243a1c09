package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/reducepic/internal/encoder"
	"github.com/AnyUserName/reducepic/internal/manifest"
	"github.com/AnyUserName/reducepic/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a compressed output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	m, path, err := manifest.Read(args[0])
	if err != nil {
		return err
	}
	logger.Debug("manifest loaded", "path", path, "entries", len(m.Entries))

	printStats(m)
	return nil
}

type formatStat struct {
	count    int
	input    int64
	output   int64
	saved    int64
	maxIters int
}

func printStats(m *manifest.Manifest) {
	printer.Header("reducepic stats")
	printer.Field("Version", "%d", m.Version)
	printer.Field("Generated", "%s", m.GeneratedAt)
	printer.Field("Constraint", "%s", m.Constraint)
	printer.Field("Format", "%s", m.Format)
	if m.RunInfo != nil {
		printer.Field("Parallelism", "%d", m.RunInfo.Parallelism)
		printer.Field("Tolerance", "%s", output.Bytes(m.RunInfo.Tolerance))
		printer.Field("Min side", "%dpx", m.RunInfo.MinDimension)
	}

	s := m.Stats
	printer.Field("Entries", "%s", output.Count(s.TotalEntries))
	printer.Field("Failures", "%s", output.Count(s.TotalFailures))
	if s.Cancelled > 0 {
		printer.Field("Cancelled", "%d", s.Cancelled)
	}
	printer.Field("Input size", "%s", output.Bytes(s.TotalInputBytes))
	printer.Field("Output size", "%s", output.Bytes(s.TotalOutputBytes))
	printer.Field("Compression", "%s of original", output.Ratio(s.TotalInputBytes, s.TotalOutputBytes))
	printer.Field("Saved", "%s", output.Bytes(s.SavedBytes))

	// Per-format breakdown.
	byFormat := map[string]*formatStat{}
	for _, e := range m.Entries {
		fs := byFormat[e.Output.Format]
		if fs == nil {
			fs = &formatStat{}
			byFormat[e.Output.Format] = fs
		}
		fs.count++
		fs.input += e.Original.Size
		fs.output += e.Output.Size
		fs.saved += e.Saved()
		fs.maxIters = max(fs.maxIters, e.Output.Iterations)
	}

	if len(byFormat) > 0 {
		printer.Header("Format breakdown")
		tbl := printer.NewTable([]string{"Format", "Files", "Input", "Output", "Saved", "Max passes"})
		for _, f := range orderedFormats(byFormat) {
			fs := byFormat[f]
			tbl.AddRow(
				f,
				output.Count(fs.count),
				output.Bytes(fs.input),
				output.Bytes(fs.output),
				output.Bytes(fs.saved),
				fmt.Sprintf("%d", fs.maxIters),
			)
		}
		if err := tbl.Render(); err != nil {
			logger.Warn("render table", "error", err)
		}
	}

	// Warnings.
	var warnings []string
	for key, e := range m.Entries {
		if !e.TargetMet {
			warnings = append(warnings, fmt.Sprintf("%q kept as best effort (%s)", key, output.Bytes(e.Output.Size)))
		}
		if e.Output.Size > e.Original.Size {
			warnings = append(warnings, fmt.Sprintf("%q grew from %s to %s",
				key, output.Bytes(e.Original.Size), output.Bytes(e.Output.Size)))
		}
	}
	for _, f := range m.Failures {
		warnings = append(warnings, fmt.Sprintf("%q failed: %s", f.Key, f.Kind))
	}
	if len(warnings) > 0 {
		sort.Strings(warnings)
		printer.Header(fmt.Sprintf("Warnings (%d)", len(warnings)))
		for _, w := range warnings {
			printer.Warning("%s", w)
		}
	}
}

// orderedFormats lists formats in registry priority order, unknown ones last.
func orderedFormats(stats map[string]*formatStat) []string {
	rank := map[string]int{}
	for i, f := range encoder.Priority() {
		rank[f] = i + 1
	}
	out := make([]string, 0, len(stats))
	for f := range stats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank[out[i]], rank[out[j]]
		if ri == 0 {
			ri = len(rank) + 1
		}
		if rj == 0 {
			rj = len(rank) + 1
		}
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}
