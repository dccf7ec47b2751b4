package coord

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
)

// FSBlobStore stores attachment blobs under a root directory. Keys are
// sanitized so a crafted key cannot escape the root.
type FSBlobStore struct {
	root string
}

var _ BlobStore = (*FSBlobStore)(nil)

func NewFSBlobStore(root string) (*FSBlobStore, error) {
	if root == "" {
		return nil, errors.New("blob store root must not be empty", errors.CategoryBadInput)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create blob store root")
	}
	return &FSBlobStore{root: root}, nil
}

func (s *FSBlobStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", errors.New("invalid blob key", errors.CategoryBadInput)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *FSBlobStore) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to create blob directory")
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to write blob")
	}
	return nil
}

func (s *FSBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("blob not found", errors.CategoryNotFound).WithCode(errors.CodeNotFound)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read blob")
	}
	return data, nil
}

func (s *FSBlobStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete blob")
	}
	return nil
}

// MemoryBlobStore keeps blobs in memory. Useful for tests and single-node
// development setups.
type MemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ BlobStore = (*MemoryBlobStore)(nil)

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: map[string][]byte{}}
}

func (s *MemoryBlobStore) Put(ctx context.Context, key string, data []byte, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return nil
}

func (s *MemoryBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, errors.New("blob not found", errors.CategoryNotFound).WithCode(errors.CodeNotFound)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
