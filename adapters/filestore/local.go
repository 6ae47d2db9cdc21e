// Package filestore keeps raw upload bytes on the local filesystem.
package filestore

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	apperrors "datastory/internal/errors"
)

// LocalStore implements ports.BlobStore under a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperrors.Wrapf(err, "failed to create upload directory %s", root)
	}
	return &LocalStore{root: root}, nil
}

// path rejects keys that would escape the root.
func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", apperrors.InvalidInput(fmt.Sprintf("invalid blob key %q", key))
	}
	return filepath.Join(s.root, clean), nil
}

// Put writes data atomically under key.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return apperrors.Wrap(err, "failed to create blob directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return apperrors.Wrap(err, "failed to create blob file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.Wrap(err, "failed to write blob")
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, "failed to write blob")
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return apperrors.Wrap(err, "failed to store blob")
	}
	log.Printf("[FileStore] Stored %s (%d bytes)", key, len(data))
	return nil
}

// Get reads the bytes stored under key.
func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if os.IsNotExist(err) {
		return nil, apperrors.NotFound("blob")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read blob")
	}
	return data, nil
}
