// Package vcs is the sandbox and merge layer: a thin subprocess wrapper
// around the system git binary providing worktree lifecycle, diff, and
// merge primitives for per-agent implementation sandboxes.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/MBifolco/gotg-sub000/internal/core"
)

// Client wraps git CLI operations rooted at one repository.
type Client struct {
	repoPath string
	timeout  time.Duration
	gitPath  string
}

// NewClient creates a git client rooted at repoPath, verifying it is a git
// repository.
func NewClient(repoPath string) (*Client, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("resolving repo path: %w", err)
	}
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, core.ErrVCS("GIT_NOT_FOUND", "git binary not found on PATH")
	}
	c := &Client{repoPath: absPath, timeout: 30 * time.Second, gitPath: gitPath}
	if _, err := c.run(context.Background(), "rev-parse", "--git-dir"); err != nil {
		return nil, core.ErrVCS("NOT_GIT_REPO", fmt.Sprintf("%s is not a git repository", absPath))
	}
	return c, nil
}

// RepoPath returns the repository root this client is rooted at.
func (c *Client) RepoPath() string { return c.repoPath }

// run executes a git command and returns trimmed stdout, or an error
// combining stderr on failure. exec.CommandContext never invokes a shell,
// so these arguments are not subject to shell interpolation.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.gitPath, args...)
	cmd.Dir = c.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", core.ErrVCS("GIT_TIMEOUT", "git command timed out")
		}
		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// runAllowFail behaves like run but returns stdout/stderr even when the
// command exits non-zero, since merge conflicts are reported this way.
func (c *Client) runAllowFail(ctx context.Context, args ...string) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.gitPath, args...)
	cmd.Dir = c.repoPath

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return strings.TrimSpace(outBuf.String()), strings.TrimSpace(errBuf.String()), err
}

// CurrentBranch returns the checked-out branch name in the main worktree.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// IsClean reports whether the working tree has no uncommitted changes.
func (c *Client) IsClean(ctx context.Context) (bool, error) {
	out, err := c.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// BranchExists reports whether branch is a known local branch.
func (c *Client) BranchExists(ctx context.Context, branch string) (bool, error) {
	out, err := c.run(ctx, "branch", "--list", branch)
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// ListBranchesMatching returns local branches matching a glob, e.g. "*/layer-0".
func (c *Client) ListBranchesMatching(ctx context.Context, glob string) ([]string, error) {
	out, err := c.run(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/"+glob)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
