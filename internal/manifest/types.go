package manifest

// Manifest is the top-level output of a reducepic run.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Constraint  string           `json:"constraint"`
	Format      string           `json:"format"`
	BasePath    string           `json:"base_path"`
	RunInfo     *RunInfo         `json:"run_info,omitempty"`
	Entries     map[string]Entry `json:"entries"`
	Failures    []Failure        `json:"failures,omitempty"`
	Stats       Stats            `json:"stats"`
}

// RunInfo captures run-time parameters for diagnostics.
type RunInfo struct {
	Parallelism  int   `json:"parallelism"`
	Tolerance    int64 `json:"tolerance"`
	MinDimension int   `json:"min_dimension"`
}

// Entry describes one source image and its encoded output.
type Entry struct {
	Original  OriginalInfo `json:"original"`
	Output    Output       `json:"output"`
	TargetMet bool         `json:"target_met"` // false for best-effort outputs
}

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

// Output is the encoded file written for an entry.
type Output struct {
	Format     string  `json:"format"`
	MIMEType   string  `json:"mime_type"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Size       int64   `json:"size"` // bytes on disk
	Hash       string  `json:"hash"` // first 16 hex chars of xxhash64
	Path       string  `json:"path"` // relative to base_path
	Quality    float64 `json:"quality"`
	Scale      float64 `json:"scale"`
	Iterations int     `json:"iterations"`
}

// Failure records an image that produced no output.
type Failure struct {
	Key     string `json:"key"`
	Path    string `json:"path"`
	Kind    string `json:"kind"` // DecodeFailed, UnsupportedFormat, TargetUnreachable, ...
	Message string `json:"message"`
}

// Stats aggregates run metrics. SavedBytes sums per-entry savings, each
// clamped at zero, so outputs that grew never count as reductions.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	SavedBytes       int64 `json:"saved_bytes"`
	TotalEntries     int   `json:"total_entries"`
	TotalFailures    int   `json:"total_failures"`
	BestEffort       int   `json:"best_effort,omitempty"` // entries written without meeting the target
	Cancelled        int   `json:"cancelled,omitempty"`   // images not processed because the run was cancelled
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1

// FileName is the manifest's name inside an output directory.
const FileName = "reducepic.manifest.json"
