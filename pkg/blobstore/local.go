package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore implements Store on a local directory. It covers development
// and test setups where no object store is available.
type LocalStore struct {
	root string
}

var _ Store = (*LocalStore)(nil)

// NewLocal creates a directory-backed store rooted at root, creating the
// directory if needed.
func NewLocal(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local store: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &StoreError{Op: "New", Err: err}
	}
	return &LocalStore{root: root}, nil
}

// Put copies the local file at localPath under key.
func (s *LocalStore) Put(ctx context.Context, localPath, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.resolve(key)
	if err != nil {
		return &StoreError{Op: "Put", Key: key, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &StoreError{Op: "Put", Key: key, Err: err}
	}
	if err := copyFile(localPath, dst); err != nil {
		return &StoreError{Op: "Put", Key: key, Err: err}
	}
	return nil
}

// Get copies the object at key to localPath.
func (s *LocalStore) Get(ctx context.Context, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.resolve(key)
	if err != nil {
		return &StoreError{Op: "Get", Key: key, Err: err}
	}
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return &StoreError{Op: "Get", Key: key, Err: ErrNotFound}
	}
	if err := copyFile(src, localPath); err != nil {
		return &StoreError{Op: "Get", Key: key, Err: err}
	}
	return nil
}

// Close is a no-op for the directory store.
func (s *LocalStore) Close() error {
	return nil
}

// resolve maps key to a path under root, rejecting traversal outside it.
func (s *LocalStore) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}

// copyFile writes dst atomically via a temp file in the same directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".blob-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
