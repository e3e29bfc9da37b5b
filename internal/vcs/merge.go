package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/core"
)

// BranchDiff is one branch's three-dot diff against main for a given layer.
type BranchDiff struct {
	Branch     string
	Stat       string
	Diff       string
	Files      []string
	Insertions int
	Deletions  int
	Merged     bool
	Empty      bool
}

// DiffLayer enumerates branches matching "*/layer-N" and computes a
// three-dot diff (main...branch) for each.
func (m *WorktreeManager) DiffLayer(ctx context.Context, layer int) ([]BranchDiff, error) {
	branches, err := m.git.ListBranchesMatching(ctx, fmt.Sprintf("*/layer-%d", layer))
	if err != nil {
		return nil, err
	}

	diffs := make([]BranchDiff, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	for i, branch := range branches {
		i, branch := i, branch
		g.Go(func() error {
			d, err := m.diffBranch(gctx, branch)
			if err != nil {
				return err
			}
			diffs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return diffs, nil
}

func (m *WorktreeManager) diffBranch(ctx context.Context, branch string) (BranchDiff, error) {
	spec := "main..." + branch

	numstat, err := m.git.run(ctx, "diff", "--numstat", spec)
	if err != nil {
		return BranchDiff{}, err
	}
	full, err := m.git.run(ctx, "diff", spec)
	if err != nil {
		return BranchDiff{}, err
	}
	merged, err := m.isMerged(ctx, branch)
	if err != nil {
		return BranchDiff{}, err
	}

	files, insertions, deletions := parseNumstat(numstat)
	return BranchDiff{
		Branch:     branch,
		Stat:       numstat,
		Diff:       full,
		Files:      files,
		Insertions: insertions,
		Deletions:  deletions,
		Merged:     merged,
		Empty:      len(files) == 0,
	}, nil
}

func parseNumstat(numstat string) (files []string, insertions, deletions int) {
	for _, line := range splitLines(numstat) {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		ins, _ := strconv.Atoi(parts[0])
		del, _ := strconv.Atoi(parts[1])
		insertions += ins
		deletions += del
		files = append(files, parts[2])
	}
	return files, insertions, deletions
}

func (m *WorktreeManager) isMerged(ctx context.Context, branch string) (bool, error) {
	out, err := m.git.run(ctx, "branch", "--merged", "main", "--list", branch)
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// MergeResult is a structured outcome — never raised as an error — so the
// phase controller and supervisor can react to conflicts without
// exception-based control flow.
type MergeResult struct {
	Branch       string
	Success      bool
	Skipped      bool
	SkipReason   string
	Conflicts    []string
	MergeInProgress bool
	CommitSHA    string
}

// MergeLayerBranch merges branch with --no-ff, refusing to run unless HEAD
// is main and main is clean. Already-merged or empty branches are skipped.
func (m *WorktreeManager) MergeLayerBranch(ctx context.Context, branch string) (*MergeResult, error) {
	current, err := m.git.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	if current != "main" {
		return nil, core.ErrVCS("NOT_ON_MAIN", "merge requires HEAD to be on main, currently on "+current)
	}
	clean, err := m.git.IsClean(ctx)
	if err != nil {
		return nil, err
	}
	if !clean {
		return nil, core.ErrVCS("MAIN_DIRTY", "merge requires a clean main working tree")
	}

	diff, err := m.diffBranch(ctx, branch)
	if err != nil {
		return nil, err
	}
	if diff.Merged {
		return &MergeResult{Branch: branch, Success: true, Skipped: true, SkipReason: "already merged"}, nil
	}
	if diff.Empty {
		return &MergeResult{Branch: branch, Success: true, Skipped: true, SkipReason: "empty diff"}, nil
	}

	stdout, stderr, err := m.git.runAllowFail(ctx, "merge", "--no-ff", "--no-commit", branch)
	if err != nil {
		conflicted, listErr := m.conflictedFiles(ctx)
		if listErr != nil {
			return nil, listErr
		}
		if len(conflicted) > 0 {
			return &MergeResult{Branch: branch, Success: false, Conflicts: conflicted, MergeInProgress: true}, nil
		}
		return nil, fmt.Errorf("git merge %s: %s %s: %w", branch, stdout, stderr, err)
	}

	if _, err := m.git.run(ctx, "commit", "--no-edit"); err != nil {
		return nil, err
	}
	head, _ := m.git.run(ctx, "rev-parse", "HEAD")
	return &MergeResult{Branch: branch, Success: true, CommitSHA: head}, nil
}

func (m *WorktreeManager) conflictedFiles(ctx context.Context) ([]string, error) {
	out, err := m.git.run(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return splitLines(out), nil
}

// ConflictStrategy is one of the three per-file resolution strategies.
type ConflictStrategy string

const (
	ConflictOurs   ConflictStrategy = "ours"
	ConflictTheirs ConflictStrategy = "theirs"
	ConflictAI     ConflictStrategy = "ai"
)

// ResolveConflictFile applies ours/theirs resolution for one conflicted
// path and stages it. The "ai" strategy is handled by the caller (the
// implementation executor), which has the model client; this method only
// covers the two mechanical strategies.
func (m *WorktreeManager) ResolveConflictFile(ctx context.Context, path string, strategy ConflictStrategy) error {
	switch strategy {
	case ConflictOurs:
		if _, err := m.git.run(ctx, "checkout", "--ours", "--", path); err != nil {
			return err
		}
	case ConflictTheirs:
		if _, err := m.git.run(ctx, "checkout", "--theirs", "--", path); err != nil {
			return err
		}
	default:
		return core.ErrValidation("UNSUPPORTED_STRATEGY", "ResolveConflictFile handles only ours/theirs; ai resolution writes content directly")
	}
	_, err := m.git.run(ctx, "add", "--", path)
	return err
}

// WriteResolvedContent stages AI-resolved content for a conflicted path.
func (m *WorktreeManager) WriteResolvedContent(ctx context.Context, path string, content []byte) error {
	full := filepath.Join(m.git.repoPath, path)
	if err := config.AtomicWrite(full, content); err != nil {
		return err
	}
	_, err := m.git.run(ctx, "add", "--", path)
	return err
}

// FinalizeMerge commits a merge once every conflicted file has been
// resolved and staged.
func (m *WorktreeManager) FinalizeMerge(ctx context.Context) (string, error) {
	if _, err := m.git.run(ctx, "commit", "--no-edit"); err != nil {
		return "", err
	}
	return m.git.run(ctx, "rev-parse", "HEAD")
}

// AbortMerge restores pre-merge state.
func (m *WorktreeManager) AbortMerge(ctx context.Context) error {
	_, err := m.git.run(ctx, "merge", "--abort")
	return err
}
