// Package snapshot implements the supplemental project export/import
// feature: a portable gzip-tar archive of a project's .team tree (and
// optionally .worktrees), distinct from the in-place, uncompressed
// checkpoint mechanism in internal/checkpoint.
package snapshot

import "time"

const (
	// FormatVersion is the current snapshot manifest format version.
	FormatVersion = 1

	manifestArchivePath = "manifest.json"
	registryArchivePath = "registry.yaml"
)

// ConflictPolicy controls how import handles destination conflicts.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictFail      ConflictPolicy = "fail"
)

// ImportMode controls how import treats the destination's existing state:
// merge lays archive files over it (per the conflict policy), replace
// clears the archived trees first so the destination ends up exactly as
// the snapshot describes.
type ImportMode string

const (
	ImportModeMerge   ImportMode = "merge"
	ImportModeReplace ImportMode = "replace"
)

// FileEntry describes one archived file.
type FileEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Mode   int64  `json:"mode"`
}

// Manifest is the metadata file stored at the archive root.
type Manifest struct {
	Version          int         `json:"version"`
	CreatedAt        time.Time   `json:"created_at"`
	ProjectRoot      string      `json:"project_root"`
	IncludeWorktrees bool        `json:"include_worktrees"`
	Files            []FileEntry `json:"files"`
}

// ExportOptions configures snapshot export behavior.
type ExportOptions struct {
	ProjectRoot      string
	OutputPath       string
	IncludeWorktrees bool
}

// ExportResult describes an export operation.
type ExportResult struct {
	OutputPath string    `json:"output_path"`
	Manifest   *Manifest `json:"manifest"`
}

// ImportOptions configures snapshot import behavior.
type ImportOptions struct {
	InputPath      string
	ProjectRoot    string
	Mode           ImportMode
	DryRun         bool
	ConflictPolicy ConflictPolicy
}

// ImportReport summarizes import execution.
type ImportReport struct {
	Mode           ImportMode     `json:"mode"`
	DryRun         bool           `json:"dry_run"`
	ConflictPolicy ConflictPolicy `json:"conflict_policy"`
	Manifest       *Manifest      `json:"manifest"`
	RestoredFiles  int            `json:"restored_files"`
	SkippedFiles   int            `json:"skipped_files"`
	Conflicts      []string       `json:"conflicts,omitempty"`
	// Registry is the archive's registry.yaml summary, when present.
	Registry *RegistrySummary `json:"registry,omitempty"`
}
