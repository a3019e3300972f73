// Package memory implements an in-memory artifact store.
//
// Artifacts live in a map and are lost when the process exits. The store is
// intended for tests and for throwaway repositories configured with
// artifacts.type=memory.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/catalogadmin/pkg/datastore/artifact"
)

// MemoryArtifactStore implements artifact.Store in process memory.
//
// Thread Safety:
// All operations are protected by a read/write mutex. Written bytes are copied
// on the way in and on the way out, so callers may reuse their buffers.
type MemoryArtifactStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	closed  bool
	rootURI string
}

// NewMemoryArtifactStore creates an empty in-memory store. name is used to
// build URIs of the form mem://name/path.
func NewMemoryArtifactStore(name string) *MemoryArtifactStore {
	if name == "" {
		name = "artifacts"
	}
	return &MemoryArtifactStore{
		data:    make(map[string][]byte),
		rootURI: "mem://" + name,
	}
}

func (s *MemoryArtifactStore) checkOpen() error {
	if s.closed {
		return fmt.Errorf("artifact store is closed")
	}
	return nil
}

// Read returns a reader over a copy of the artifact bytes.
func (s *MemoryArtifactStore) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	data, ok := s.data[path]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", path, artifact.ErrArtifactNotFound)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	return io.NopCloser(bytes.NewReader(buf)), nil
}

// Write replaces the artifact at path with the bytes read from r.
func (s *MemoryArtifactStore) Write(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Read outside the lock; r may be slow.
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read artifact data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	s.data[path] = data
	return nil
}

// Size returns the artifact length.
func (s *MemoryArtifactStore) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	data, ok := s.data[path]
	if !ok {
		return 0, fmt.Errorf("artifact %s: %w", path, artifact.ErrArtifactNotFound)
	}
	return int64(len(data)), nil
}

// Exists reports whether path holds an artifact.
func (s *MemoryArtifactStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return false, err
	}
	_, ok := s.data[path]
	return ok, nil
}

// Delete removes the artifact at path. Missing artifacts are ignored.
func (s *MemoryArtifactStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	delete(s.data, path)
	return nil
}

// List returns all stored paths, sorted.
func (s *MemoryArtifactStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(s.data))
	for p := range s.data {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// DeleteBatch removes several artifacts under a single lock acquisition.
func (s *MemoryArtifactStore) DeleteBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	if err := ctx.Err(); err != nil {
		for _, p := range paths {
			failures[p] = err
		}
		return failures, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		for _, p := range paths {
			failures[p] = err
		}
		return failures, nil
	}

	for _, p := range paths {
		delete(s.data, p)
	}
	return failures, nil
}

// URI returns mem://<name>/<path>.
func (s *MemoryArtifactStore) URI(path string) string {
	return s.rootURI + "/" + path
}

// Path strips the mem://<name>/ prefix.
func (s *MemoryArtifactStore) Path(uri string) (string, error) {
	p, ok := strings.CutPrefix(uri, s.rootURI+"/")
	if !ok || p == "" {
		return "", fmt.Errorf("uri %q is not in store %s", uri, s.rootURI)
	}
	return p, nil
}

// Close marks the store closed and releases its data.
func (s *MemoryArtifactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

var _ artifact.Store = (*MemoryArtifactStore)(nil)
