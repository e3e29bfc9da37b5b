package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/MBifolco/gotg-sub000/internal/fsutil"
)

// Export archives one project's .team tree (and optionally .worktrees)
// into a single gzip-tar file at opts.OutputPath.
func Export(opts *ExportOptions) (*ExportResult, error) {
	if err := normalizeExportOptions(opts); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	out, err := os.Create(opts.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot file: %w", err)
	}
	defer out.Close()

	gzWriter := gzip.NewWriter(out)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	manifest := &Manifest{
		Version:          FormatVersion,
		CreatedAt:        time.Now().UTC(),
		ProjectRoot:      opts.ProjectRoot,
		IncludeWorktrees: opts.IncludeWorktrees,
		Files:            make([]FileEntry, 0),
	}

	files, err := listProjectFiles(opts.ProjectRoot, opts.IncludeWorktrees)
	if err != nil {
		return nil, fmt.Errorf("listing project files: %w", err)
	}

	for _, filePath := range files {
		relPath, relErr := filepath.Rel(opts.ProjectRoot, filePath)
		if relErr != nil {
			return nil, fmt.Errorf("computing relative path for %s: %w", filePath, relErr)
		}
		if strings.HasPrefix(relPath, "..") || filepath.IsAbs(relPath) {
			return nil, fmt.Errorf("invalid project file path: %s", filePath)
		}

		archivePath, cleanErr := cleanArchivePath(filepath.ToSlash(relPath))
		if cleanErr != nil {
			return nil, fmt.Errorf("invalid archive path for %s: %w", filePath, cleanErr)
		}

		data, mode, readErr := readFileWithMode(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("reading file %s: %w", filePath, readErr)
		}
		if err := addBytesToArchive(tarWriter, manifest, archivePath, data, mode); err != nil {
			return nil, err
		}
	}

	sort.Slice(manifest.Files, func(i, j int) bool { return manifest.Files[i].Path < manifest.Files[j].Path })

	registry, err := buildRegistrySummary(opts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("building registry summary: %w", err)
	}
	if registry != nil {
		registryData, encErr := encodeRegistry(registry)
		if encErr != nil {
			return nil, fmt.Errorf("encoding registry summary: %w", encErr)
		}
		if err := writeTarEntry(tarWriter, registryArchivePath, registryData, 0o600); err != nil {
			return nil, fmt.Errorf("writing registry summary: %w", err)
		}
	}

	manifestData, err := encodeManifest(manifest)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeTarEntry(tarWriter, manifestArchivePath, manifestData, 0o600); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	return &ExportResult{
		OutputPath: opts.OutputPath,
		Manifest:   manifest,
	}, nil
}

// listProjectFiles walks <projectRoot>/.team (and optionally
// <projectRoot>/.worktrees), returning every regular file found.
func listProjectFiles(projectRoot string, includeWorktrees bool) ([]string, error) {
	roots := []string{filepath.Join(projectRoot, teamDirName)}
	if includeWorktrees {
		roots = append(roots, filepath.Join(projectRoot, worktreesDirName))
	}

	files := make([]string, 0)
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

func readFileWithMode(path string) ([]byte, int64, error) {
	data, err := fsutil.ReadFileScoped(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	return data, int64(info.Mode().Perm()), nil
}

func addBytesToArchive(tw *tar.Writer, manifest *Manifest, archivePath string, data []byte, mode int64) error {
	cleanPath, err := cleanArchivePath(archivePath)
	if err != nil {
		return fmt.Errorf("invalid archive path: %w", err)
	}

	if err := writeTarEntry(tw, cleanPath, data, mode); err != nil {
		return fmt.Errorf("writing archive entry %s: %w", cleanPath, err)
	}

	hash := sha256.Sum256(data)
	manifest.Files = append(manifest.Files, FileEntry{
		Path:   cleanPath,
		SHA256: hex.EncodeToString(hash[:]),
		Size:   int64(len(data)),
		Mode:   mode,
	})
	return nil
}

func writeTarEntry(tw *tar.Writer, name string, data []byte, mode int64) error {
	header := &tar.Header{
		Name:     filepath.ToSlash(name),
		Mode:     mode,
		Size:     int64(len(data)),
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
