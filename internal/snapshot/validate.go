package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// archiveEntry is one file as it sits inside the archive.
type archiveEntry struct {
	Path string
	Data []byte
	Mode int64
}

// ValidateSnapshot fully reads an archive, verifying its structure and
// every checksum, and returns the manifest without touching any project.
func ValidateSnapshot(inputPath string) (*Manifest, error) {
	manifest, _, err := openArchive(inputPath)
	if err != nil {
		return nil, err
	}
	return manifest, nil
}

// openArchive reads and verifies a snapshot: the tar stream decodes, the
// manifest is present and well-formed, every manifest entry exists with
// the declared size and SHA-256, and every entry lands inside one of the
// two project trees this system archives.
func openArchive(inputPath string) (*Manifest, map[string]archiveEntry, error) {
	if inputPath == "" {
		return nil, nil, fmt.Errorf("input path is required")
	}

	entries, err := readEntries(inputPath)
	if err != nil {
		return nil, nil, err
	}

	manifestEntry, ok := entries[manifestArchivePath]
	if !ok {
		return nil, nil, fmt.Errorf("snapshot has no %s", manifestArchivePath)
	}
	manifest, err := decodeManifest(manifestEntry.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding manifest: %w", err)
	}

	for _, want := range manifest.Files {
		got, ok := entries[want.Path]
		if !ok {
			return nil, nil, fmt.Errorf("manifest lists %s but the archive does not contain it", want.Path)
		}
		if err := checkEntry(want, got); err != nil {
			return nil, nil, err
		}
	}

	return manifest, entries, nil
}

// checkEntry verifies one manifest entry against its archive bytes.
func checkEntry(want FileEntry, got archiveEntry) error {
	if !withinProjectTrees(want.Path) {
		return fmt.Errorf("manifest entry %s is outside the %s/%s trees", want.Path, teamDirName, worktreesDirName)
	}
	if int64(len(got.Data)) != want.Size {
		return fmt.Errorf("size mismatch for %s: manifest says %d, archive has %d", want.Path, want.Size, len(got.Data))
	}
	sum := sha256.Sum256(got.Data)
	if hex.EncodeToString(sum[:]) != want.SHA256 {
		return fmt.Errorf("checksum mismatch for %s", want.Path)
	}
	return nil
}

// withinProjectTrees reports whether an archive path belongs to the .team
// or .worktrees tree — the only two a single-project snapshot carries.
func withinProjectTrees(path string) bool {
	return path == teamDirName || strings.HasPrefix(path, teamDirName+"/") ||
		path == worktreesDirName || strings.HasPrefix(path, worktreesDirName+"/")
}

// readEntries decodes the gzip-tar stream into a path-keyed map, rejecting
// non-regular entries and traversal-shaped names up front.
func readEntries(inputPath string) (map[string]archiveEntry, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	entries := make(map[string]archiveEntry)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}
		if header.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("unsupported tar entry type %d for %s", header.Typeflag, header.Name)
		}

		path, err := cleanArchivePath(filepath.ToSlash(header.Name))
		if err != nil {
			return nil, fmt.Errorf("invalid archive path %q: %w", header.Name, err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading tar entry %s: %w", path, err)
		}
		entries[path] = archiveEntry{Path: path, Data: data, Mode: header.Mode}
	}
}
