// Package fs implements filesystem-based artifact storage.
//
// Artifacts are stored as regular files under a root directory, mirroring
// their relative paths. Writes go through a temporary file in the target
// directory followed by a rename, so readers never observe partial artifacts.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
)

// tempPrefix marks in-flight writes; List skips files carrying it.
const tempPrefix = ".tmp-"

// FSArtifactStore implements artifact.Store on the local filesystem.
//
// Thread Safety:
// Filesystem operations are safe at the OS level. Concurrent writes to the
// same path race on the final rename and the last writer wins.
type FSArtifactStore struct {
	basePath string
}

// NewFSArtifactStore creates a store rooted at basePath, creating the
// directory (0755) if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation
//   - basePath: Root directory for artifact files
//
// Returns:
//   - *FSArtifactStore: Initialized store
//   - error: Returns error if directory creation fails or context is cancelled
func NewFSArtifactStore(ctx context.Context, basePath string) (*FSArtifactStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSArtifactStore{basePath: abs}, nil
}

// BasePath returns the absolute root directory of the store.
func (s *FSArtifactStore) BasePath() string {
	return s.basePath
}

// filePath maps a relative artifact path onto the filesystem, rejecting
// paths that would escape the root.
func (s *FSArtifactStore) filePath(p string) (string, error) {
	clean := path.Clean("/" + p)
	if clean == "/" || p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("invalid artifact path %q", p)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(clean[1:])), nil
}

// Read opens the artifact file.
func (s *FSArtifactStore) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fp, err := s.filePath(p)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("artifact %s: %w", p, artifact.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return file, nil
}

// Write stores r at p atomically, creating parent directories as needed.
func (s *FSArtifactStore) Write(ctx context.Context, p string, r io.Reader) error {
	// ========================================================================
	// Step 1: Check context and resolve target
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	fp, err := s.filePath(p)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fp)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	// ========================================================================
	// Step 2: Write to a temporary file in the same directory
	// ========================================================================

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}

	// ========================================================================
	// Step 3: Rename into place
	// ========================================================================

	if err := os.Rename(tmpName, fp); err != nil {
		return fmt.Errorf("failed to commit artifact: %w", err)
	}
	return nil
}

// Size stats the artifact file.
func (s *FSArtifactStore) Size(ctx context.Context, p string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	fp, err := s.filePath(p)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(fp)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("artifact %s: %w", p, artifact.ErrArtifactNotFound)
		}
		return 0, fmt.Errorf("failed to stat artifact: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("artifact %s: %w", p, artifact.ErrArtifactNotFound)
	}
	return info.Size(), nil
}

// Exists reports whether a regular file exists at p.
func (s *FSArtifactStore) Exists(ctx context.Context, p string) (bool, error) {
	_, err := s.Size(ctx, p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, artifact.ErrArtifactNotFound) {
		return false, nil
	}
	return false, err
}

// Delete removes the artifact file. Empty parent directories are left in place.
func (s *FSArtifactStore) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fp, err := s.filePath(p)
	if err != nil {
		return err
	}

	if err := os.Remove(fp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// URI returns a file:// URI for p.
func (s *FSArtifactStore) URI(p string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.basePath, filepath.FromSlash(p)))}
	return u.String()
}

// Path converts a file:// URI under the root back to a relative path.
func (s *FSArtifactStore) Path(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("uri %q is not a file uri", uri)
	}

	rel, err := filepath.Rel(s.basePath, filepath.FromSlash(u.Path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("uri %q is outside %s", uri, s.basePath)
	}
	return filepath.ToSlash(rel), nil
}

// Close is a no-op; the store holds no open handles.
func (s *FSArtifactStore) Close() error {
	return nil
}

var _ artifact.Store = (*FSArtifactStore)(nil)

// sortedPaths sorts and returns paths.
func sortedPaths(paths []string) []string {
	sort.Strings(paths)
	return paths
}
