// Package filemediator enforces the read/write capability policy agents
// operate under: a project-rooted path policy, a writable-path glob
// allowlist, resource limits, and an approval funnel for writes outside
// that allowlist.
package filemediator

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/MBifolco/gotg-sub000/internal/config"
	"github.com/MBifolco/gotg-sub000/internal/core"
	"github.com/MBifolco/gotg-sub000/internal/fsutil"
)

// deniedReadDirs are never readable regardless of writable-path config.
var deniedReadDirs = []string{".team", ".git"}

// envFilePatterns are denied-read filename globs, matched on basename.
var envFilePatterns = []string{".env", ".env.*", "*.env"}

// Mediator enforces the path policy over one project root.
type Mediator struct {
	root           string
	fallbackRoot   string
	access         core.FileAccessConfig
	approvals      *ApprovalStore
	writesThisTurn int
}

// New creates a mediator rooted at root with no fallback root.
func New(root string, access core.FileAccessConfig, approvals *ApprovalStore) *Mediator {
	return &Mediator{root: root, access: access, approvals: approvals}
}

// WithRoot returns a mediator rooted at newRoot (a worktree) whose read
// fallback remains this mediator's root, so agents can read committed code
// on main they have not yet touched without losing write isolation.
func (m *Mediator) WithRoot(newRoot string) *Mediator {
	return &Mediator{
		root:         newRoot,
		fallbackRoot: m.root,
		access:       m.access,
		approvals:    m.approvals,
	}
}

// containmentCheck resolves relPath against base and verifies the result
// stays within base, rejecting absolute paths and ".." segments up front
// and defending against symlink escape after resolution.
func containmentCheck(base, relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return "", core.ErrSecurity("ABSOLUTE_PATH_DENIED", "absolute paths are not permitted: "+relPath)
	}
	for _, seg := range strings.Split(filepath.ToSlash(relPath), "/") {
		if seg == ".." {
			return "", core.ErrSecurity("PATH_TRAVERSAL_DENIED", "path contains a .. segment: "+relPath)
		}
	}

	candidate := filepath.Join(base, relPath)
	resolvedBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("filemediator: resolving base: %w", err)
	}

	resolved := candidate
	if real, err := filepath.EvalSymlinks(candidate); err == nil {
		resolved = real
	} else if realBase, baseErr := filepath.EvalSymlinks(resolvedBase); baseErr == nil {
		resolvedBase = realBase
	}

	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("filemediator: resolving target: %w", err)
	}

	rel, err := filepath.Rel(resolvedBase, resolvedAbs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", core.ErrSecurity("PATH_ESCAPE_DENIED", "path escapes project root: "+relPath)
	}
	return candidate, nil
}

func isDeniedReadPath(relPath string) bool {
	clean := filepath.ToSlash(filepath.Clean(relPath))
	for _, dir := range deniedReadDirs {
		if clean == dir || strings.HasPrefix(clean, dir+"/") {
			return true
		}
	}
	base := path.Base(clean)
	for _, pattern := range envFilePatterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// ReadFile reads relPath, applying the read-denial policy and falling back
// to fallbackRoot on a miss when one is configured. The fallback also
// applies the denial policy so the sandbox boundary cannot leak secrets.
func (m *Mediator) ReadFile(relPath string) ([]byte, error) {
	if isDeniedReadPath(relPath) {
		return nil, core.ErrSecurity("READ_DENIED", "reading "+relPath+" is denied")
	}

	full, err := containmentCheck(m.root, relPath)
	if err == nil {
		if data, readErr := fsutil.ReadFileScoped(full); readErr == nil {
			return data, nil
		} else if !os.IsNotExist(readErr) {
			return nil, readErr
		}
	} else {
		return nil, err
	}

	if m.fallbackRoot == "" {
		return nil, core.ErrNotFound("FILE_NOT_FOUND", relPath+" does not exist")
	}

	fallbackFull, err := containmentCheck(m.fallbackRoot, relPath)
	if err != nil {
		return nil, err
	}
	data, err := fsutil.ReadFileScoped(fallbackFull)
	if os.IsNotExist(err) {
		return nil, core.ErrNotFound("FILE_NOT_FOUND", relPath+" does not exist")
	}
	return data, err
}

// ListDir lists relPath's direct children, applying the same read policy
// as ReadFile (with the same fallback-root semantics).
func (m *Mediator) ListDir(relPath string) ([]os.DirEntry, error) {
	if isDeniedReadPath(relPath) {
		return nil, core.ErrSecurity("READ_DENIED", "listing "+relPath+" is denied")
	}
	full, err := containmentCheck(m.root, relPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err == nil {
		return entries, nil
	}
	if !os.IsNotExist(err) || m.fallbackRoot == "" {
		return nil, err
	}
	fallbackFull, err := containmentCheck(m.fallbackRoot, relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(fallbackFull)
}

// WriteOutcome enumerates what happened to a WriteFile request.
type WriteOutcome string

const (
	WriteApplied          WriteOutcome = "applied"
	WritePendingApproval  WriteOutcome = "pending_approval"
)

// WriteResult is the outcome of one write request.
type WriteResult struct {
	Outcome    WriteOutcome
	ApprovalID string
}

// WriteFile applies the write policy: containment, hard-denied and
// user-protected paths, resource limits, and the writable-paths allowlist.
// A write that fails only the allowlist check is funneled to a pending
// approval when approvals are enabled; every other failure is rejected
// outright.
func (m *Mediator) WriteFile(agent, relPath string, content []byte) (*WriteResult, error) {
	full, err := containmentCheck(m.root, relPath)
	if err != nil {
		return nil, err
	}
	if isDeniedReadPath(relPath) {
		return nil, core.ErrSecurity("WRITE_DENIED", "writing "+relPath+" is denied")
	}
	if m.access.MaxFileSizeBytes > 0 && int64(len(content)) > m.access.MaxFileSizeBytes {
		return nil, core.ErrResourceLimit("FILE_TOO_LARGE", fmt.Sprintf("%s exceeds the %d byte limit", relPath, m.access.MaxFileSizeBytes))
	}
	if m.access.MaxFilesPerTurn > 0 && m.writesThisTurn >= m.access.MaxFilesPerTurn {
		return nil, core.ErrResourceLimit("TOO_MANY_WRITES", fmt.Sprintf("the %d writes-per-turn limit has been reached", m.access.MaxFilesPerTurn))
	}
	if matchesAny(relPath, m.access.ProtectedPaths) {
		return nil, core.ErrSecurity("PROTECTED_PATH", relPath+" is a protected path")
	}

	if !matchesAny(relPath, m.access.WritablePaths) {
		if !m.access.EnableApprovals || m.approvals == nil {
			return nil, core.ErrSecurity("NOT_WRITABLE", relPath+" is not within a writable path")
		}
		req := m.approvals.Request(agent, relPath, content)
		return &WriteResult{Outcome: WritePendingApproval, ApprovalID: req.ID}, nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return nil, fmt.Errorf("filemediator: creating parent dir: %w", err)
	}
	if err := config.AtomicWrite(full, content); err != nil {
		return nil, fmt.Errorf("filemediator: writing %s: %w", relPath, err)
	}
	m.writesThisTurn++
	return &WriteResult{Outcome: WriteApplied}, nil
}

// ResetTurn clears the per-turn write counter. The engine calls it at the
// start of every agent turn, the implementation executor at the start of
// every tool round.
func (m *Mediator) ResetTurn() { m.writesThisTurn = 0 }

// ApplyApprovedWrite writes content directly to relPath, bypassing the
// writable-paths check, since the write has already been approved by the
// human supervisor.
func (m *Mediator) ApplyApprovedWrite(relPath string, content []byte) error {
	full, err := containmentCheck(m.root, relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return fmt.Errorf("filemediator: creating parent dir: %w", err)
	}
	return config.AtomicWrite(full, content)
}

// matchesAny reports whether relPath matches any glob in patterns. A
// pattern ending in "/**" matches any path under that directory; other
// patterns match on basename via shell-style wildcards.
func matchesAny(relPath string, patterns []string) bool {
	clean := filepath.ToSlash(filepath.Clean(relPath))
	base := path.Base(clean)
	for _, pattern := range patterns {
		if strings.HasSuffix(pattern, "/**") {
			dir := strings.TrimSuffix(pattern, "/**")
			if clean == dir || strings.HasPrefix(clean, dir+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(pattern, clean); ok {
			return true
		}
	}
	return false
}
