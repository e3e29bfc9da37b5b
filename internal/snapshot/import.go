package snapshot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Import restores a project's .team tree (and optionally .worktrees) from
// a snapshot archive into opts.ProjectRoot.
func Import(opts *ImportOptions) (*ImportReport, error) {
	if err := normalizeImportOptions(opts); err != nil {
		return nil, err
	}

	manifest, archiveFiles, err := openArchive(opts.InputPath)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		Mode:           opts.Mode,
		DryRun:         opts.DryRun,
		ConflictPolicy: opts.ConflictPolicy,
		Manifest:       manifest,
		Conflicts:      make([]string, 0),
	}
	if registryFile, ok := archiveFiles[registryArchivePath]; ok {
		registry, regErr := decodeRegistry(registryFile.Data)
		if regErr != nil {
			return nil, regErr
		}
		report.Registry = registry
	}

	if opts.Mode == ImportModeReplace && !opts.DryRun {
		if err := clearArchivedTrees(opts.ProjectRoot, manifest.IncludeWorktrees); err != nil {
			return nil, err
		}
	}

	for _, fileEntry := range manifest.Files {
		relPath := fileEntry.Path
		if strings.HasPrefix(relPath, worktreesDirName+"/") && !manifest.IncludeWorktrees {
			report.SkippedFiles++
			continue
		}

		archiveFile, ok := archiveFiles[fileEntry.Path]
		if !ok {
			return nil, fmt.Errorf("archive entry missing for %s", fileEntry.Path)
		}

		targetFilePath, resolveErr := resolveTargetProjectFilePath(opts.ProjectRoot, relPath)
		if resolveErr != nil {
			return nil, fmt.Errorf("resolving target file %s: %w", fileEntry.Path, resolveErr)
		}

		if opts.DryRun {
			report.RestoredFiles++
			continue
		}

		exists := false
		if _, statErr := os.Stat(targetFilePath); statErr == nil {
			exists = true
		} else if !os.IsNotExist(statErr) {
			return nil, fmt.Errorf("checking target file %s: %w", targetFilePath, statErr)
		}

		if exists {
			switch opts.ConflictPolicy {
			case ConflictSkip:
				report.SkippedFiles++
				continue
			case ConflictFail:
				report.Conflicts = append(report.Conflicts, targetFilePath)
				return nil, fmt.Errorf("file conflict at %s", targetFilePath)
			case ConflictOverwrite:
				// Continue and overwrite.
			}
		}

		if err := ensureParentDir(targetFilePath); err != nil {
			return nil, fmt.Errorf("creating target directory for %s: %w", targetFilePath, err)
		}

		mode := os.FileMode(0o600)
		if archiveFile.Mode > 0 && archiveFile.Mode <= math.MaxUint32 {
			mode = os.FileMode(archiveFile.Mode)
		}
		if err := os.WriteFile(targetFilePath, archiveFile.Data, mode); err != nil {
			return nil, fmt.Errorf("writing file %s: %w", targetFilePath, err)
		}
		report.RestoredFiles++
	}

	return report, nil
}

// clearArchivedTrees removes the destination's .team tree (and .worktrees
// when the snapshot carries one) ahead of a replace-mode restore, so files
// absent from the snapshot do not survive it.
func clearArchivedTrees(projectRoot string, includeWorktrees bool) error {
	if err := os.RemoveAll(filepath.Join(projectRoot, teamDirName)); err != nil {
		return fmt.Errorf("clearing %s: %w", teamDirName, err)
	}
	if includeWorktrees {
		if err := os.RemoveAll(filepath.Join(projectRoot, worktreesDirName)); err != nil {
			return fmt.Errorf("clearing %s: %w", worktreesDirName, err)
		}
	}
	return nil
}

func resolveTargetProjectFilePath(projectRoot, relPath string) (string, error) {
	cleanRel := filepath.Clean(filepath.FromSlash(relPath))
	if cleanRel == "." || cleanRel == "" {
		return "", fmt.Errorf("invalid relative file path")
	}
	if strings.HasPrefix(cleanRel, "..") || filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("path traversal blocked: %s", relPath)
	}
	return filepath.Join(projectRoot, cleanRel), nil
}
