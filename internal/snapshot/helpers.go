package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// teamDirName and worktreesDirName are the project-relative roots archived
// by Export; they mirror the on-disk layout described for a single project.
const (
	teamDirName       = ".team"
	worktreesDirName  = ".worktrees"
)

func normalizeImportOptions(opts *ImportOptions) error {
	if opts == nil {
		return fmt.Errorf("options are required")
	}
	if strings.TrimSpace(opts.InputPath) == "" {
		return fmt.Errorf("input path is required")
	}
	if strings.TrimSpace(opts.ProjectRoot) == "" {
		return fmt.Errorf("project root is required")
	}
	absRoot, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	opts.ProjectRoot = absRoot

	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = ConflictSkip
	}
	if opts.ConflictPolicy != ConflictSkip && opts.ConflictPolicy != ConflictOverwrite && opts.ConflictPolicy != ConflictFail {
		return fmt.Errorf("invalid conflict policy: %s", opts.ConflictPolicy)
	}
	if opts.Mode == "" {
		opts.Mode = ImportModeMerge
	}
	if opts.Mode != ImportModeMerge && opts.Mode != ImportModeReplace {
		return fmt.Errorf("invalid import mode: %s", opts.Mode)
	}
	return nil
}

func normalizeExportOptions(opts *ExportOptions) error {
	if opts == nil {
		return fmt.Errorf("options are required")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}
	if strings.TrimSpace(opts.ProjectRoot) == "" {
		return fmt.Errorf("project root is required")
	}
	absRoot, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}
	opts.ProjectRoot = absRoot
	return nil
}

func cleanArchivePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty archive path")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("absolute archive path is not allowed: %s", p)
	}
	clean := filepath.Clean(strings.TrimPrefix(p, "./"))
	if clean == "." || clean == "" {
		return "", fmt.Errorf("invalid archive path: %s", p)
	}
	if strings.HasPrefix(clean, "..") || strings.Contains(clean, `..\`) {
		return "", fmt.Errorf("path traversal detected: %s", p)
	}
	return clean, nil
}

func ensureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o750)
}

func sortFileEntries(entries []FileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

func encodeManifest(manifest *Manifest) ([]byte, error) {
	sortFileEntries(manifest.Files)
	return json.MarshalIndent(manifest, "", "  ")
}

// RegistrySummary is the human-readable subset of the project's iteration
// registry written into the archive as registry.yaml. Like manifest.json
// it is a sidecar of the archive itself, not a restored project file.
type RegistrySummary struct {
	GeneratedAt time.Time           `yaml:"generated_at"`
	Current     string              `yaml:"current,omitempty"`
	Iterations  []RegistryIteration `yaml:"iterations"`
}

// RegistryIteration is one iteration's registry line.
type RegistryIteration struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Status      string `yaml:"status"`
	Phase       string `yaml:"phase"`
}

// buildRegistrySummary reads <projectRoot>/.team/iteration.json into a
// summary, returning nil (not an error) when the registry does not exist.
func buildRegistrySummary(projectRoot string) (*RegistrySummary, error) {
	data, err := os.ReadFile(filepath.Join(projectRoot, teamDirName, "iteration.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var file struct {
		Iterations []struct {
			ID          string `json:"id"`
			Description string `json:"description"`
			Status      string `json:"status"`
			Phase       string `json:"phase"`
		} `json:"iterations"`
		Current string `json:"current"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing iteration registry: %w", err)
	}
	summary := &RegistrySummary{GeneratedAt: time.Now().UTC(), Current: file.Current}
	for _, it := range file.Iterations {
		summary.Iterations = append(summary.Iterations, RegistryIteration{
			ID:          it.ID,
			Description: it.Description,
			Status:      it.Status,
			Phase:       it.Phase,
		})
	}
	return summary, nil
}

func encodeRegistry(summary *RegistrySummary) ([]byte, error) {
	return yaml.Marshal(summary)
}

func decodeRegistry(data []byte) (*RegistrySummary, error) {
	var summary RegistrySummary
	if err := yaml.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parsing registry.yaml: %w", err)
	}
	return &summary, nil
}

func decodeManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if manifest.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d", manifest.Version)
	}
	return &manifest, nil
}
