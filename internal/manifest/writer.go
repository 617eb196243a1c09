package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// New creates an empty manifest with defaults.
func New(constraint, format string) *Manifest {
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Constraint:  constraint,
		Format:      format,
		BasePath:    "./",
		Entries:     make(map[string]Entry),
	}
}

// Saved returns the bytes an entry saved, clamped at zero.
func (e Entry) Saved() int64 {
	if d := e.Original.Size - e.Output.Size; d > 0 {
		return d
	}
	return 0
}

// ComputeStats recalculates aggregate statistics from entries and
// failures. Cancelled is kept as recorded by the run.
func (m *Manifest) ComputeStats() {
	s := Stats{Cancelled: m.Stats.Cancelled}
	s.TotalEntries = len(m.Entries)
	s.TotalFailures = len(m.Failures)
	for _, e := range m.Entries {
		s.TotalInputBytes += e.Original.Size
		s.TotalOutputBytes += e.Output.Size
		s.SavedBytes += e.Saved()
		if !e.TargetMet {
			s.BestEffort++
		}
	}
	m.Stats = s
}

// WriteJSON serializes the manifest to a JSON file with stable ordering.
func WriteJSON(m *Manifest, path string) error {
	m.ComputeStats()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Read loads a manifest from a file, or from FileName inside a directory.
func Read(path string) (*Manifest, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", fmt.Errorf("parse manifest: %w", err)
	}
	return &m, path, nil
}
