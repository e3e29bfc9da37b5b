package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// WorktreeManager manages one git worktree per (agent, layer) pair under
// <repo>/.worktrees.
type WorktreeManager struct {
	git     *Client
	baseDir string
}

// NewWorktreeManager creates a worktree manager rooted at <repoPath>/.worktrees.
func NewWorktreeManager(git *Client) *WorktreeManager {
	return &WorktreeManager{git: git, baseDir: filepath.Join(git.RepoPath(), ".worktrees")}
}

// EnsureWorktree implements the idempotent four-case creation logic:
// reuse an existing registered worktree+branch; create both if
// neither exists; reattach an existing branch whose worktree directory is
// gone; or delete-and-recreate a directory that exists but is not a
// registered worktree.
func (m *WorktreeManager) EnsureWorktree(ctx context.Context, agent string, layer int, baseBranch string) (*core.Worktree, error) {
	dirName := core.WorktreeDirName(agent, layer)
	branch := core.WorktreeBranchName(agent, layer)
	path := filepath.Join(m.baseDir, dirName)

	if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating worktree base dir: %w", err)
	}

	registered, err := m.listRegistered(ctx)
	if err != nil {
		return nil, err
	}

	resolvedPath := resolvePath(path)
	if entry, ok := registered[resolvedPath]; ok {
		// Case (a): worktree and branch already registered together — reuse.
		if entry.Branch == branch {
			return &core.Worktree{Agent: agent, Layer: layer, Path: path, Branch: branch}, nil
		}
		// Case (d): directory exists but isn't the branch we expect — remove and recreate.
		if _, err := m.git.run(ctx, "worktree", "remove", "--force", path); err != nil {
			return nil, fmt.Errorf("removing stale worktree %s: %w", path, err)
		}
		delete(registered, resolvedPath)
	}

	if _, err := os.Stat(path); err == nil {
		// Directory exists on disk but isn't a registered worktree: case (d).
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("removing unmanaged directory %s: %w", path, err)
		}
	}

	branchExists, err := m.git.BranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}

	if branchExists {
		// Case (c): branch exists but worktree is gone — attach it.
		if _, err := m.git.run(ctx, "worktree", "add", path, branch); err != nil {
			return nil, fmt.Errorf("attaching worktree to existing branch %s: %w", branch, err)
		}
	} else {
		// Case (b): neither exists — create both, forked from baseBranch.
		args := []string{"worktree", "add", "-b", branch, path}
		if baseBranch != "" {
			args = append(args, baseBranch)
		}
		if _, err := m.git.run(ctx, args...); err != nil {
			return nil, fmt.Errorf("creating worktree+branch %s: %w", branch, err)
		}
	}

	return &core.Worktree{Agent: agent, Layer: layer, Path: path, Branch: branch}, nil
}

type registeredWorktree struct {
	Path   string
	Branch string
}

// listRegistered returns the worktrees git itself knows about, keyed by
// resolved path.
func (m *WorktreeManager) listRegistered(ctx context.Context) (map[string]registeredWorktree, error) {
	out, err := m.git.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	result := make(map[string]registeredWorktree)
	var cur registeredWorktree
	flush := func() {
		if cur.Path != "" {
			result[resolvePath(cur.Path)] = cur
		}
		cur = registeredWorktree{}
	}
	for _, line := range splitLines(out) {
		switch {
		case hasPrefix(line, "worktree "):
			flush()
			cur.Path = line[len("worktree "):]
		case hasPrefix(line, "branch "):
			cur.Branch = trimBranchRef(line[len("branch "):])
		}
	}
	flush()
	return result, nil
}

// AutoCommit commits any worktree with uncommitted changes using the
// literal message "Implementation complete (layer N)"; clean worktrees are
// skipped.
func (m *WorktreeManager) AutoCommit(ctx context.Context, wt *core.Worktree) (committed bool, err error) {
	worktreeClient, err := NewClient(wt.Path)
	if err != nil {
		return false, err
	}
	clean, err := worktreeClient.IsClean(ctx)
	if err != nil {
		return false, err
	}
	if clean {
		return false, nil
	}
	if _, err := worktreeClient.run(ctx, "add", "-A"); err != nil {
		return false, err
	}
	msg := fmt.Sprintf("Implementation complete (layer %d)", wt.Layer)
	if _, err := worktreeClient.run(ctx, "commit", "-m", msg); err != nil {
		return false, err
	}
	return true, nil
}

func resolvePath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func trimBranchRef(ref string) string {
	const prefix = "refs/heads/"
	if hasPrefix(ref, prefix) {
		return ref[len(prefix):]
	}
	return ref
}
