package supervisor

import (
	"github.com/MBifolco/gotg-sub000/internal/snapshot"
)

// ExportSnapshot archives this project's .team tree (and optionally
// .worktrees) into a portable gzip-tar file.
func (s *Supervisor) ExportSnapshot(outputPath string, includeWorktrees bool) (*snapshot.ExportResult, error) {
	return snapshot.Export(&snapshot.ExportOptions{
		ProjectRoot:      s.Store.Root(),
		OutputPath:       outputPath,
		IncludeWorktrees: includeWorktrees,
	})
}

// ImportSnapshot restores a snapshot archive into this project.
func (s *Supervisor) ImportSnapshot(inputPath string, mode snapshot.ImportMode, policy snapshot.ConflictPolicy, dryRun bool) (*snapshot.ImportReport, error) {
	return snapshot.Import(&snapshot.ImportOptions{
		InputPath:      inputPath,
		ProjectRoot:    s.Store.Root(),
		Mode:           mode,
		ConflictPolicy: policy,
		DryRun:         dryRun,
	})
}
