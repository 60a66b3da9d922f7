// Package blob provides blob store implementations for rule content. The
// engine addresses content only through opaque keys minted by the version
// manager; these stores never interpret the bytes.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattyatea/zxcv-sub000/internal/domain"
	rulesrepo "github.com/mattyatea/zxcv-sub000/internal/domain/repositories/rules"
)

// FilesystemStore implements the BlobStore interface on a local directory.
// Objects land under a two-character fan-out subdirectory to keep directory
// sizes bounded.
type FilesystemStore struct {
	dir    string
	logger *slog.Logger
}

// NewFilesystemStore creates a filesystem blob store rooted at dir, creating
// the directory if needed.
func NewFilesystemStore(dir string, logger *slog.Logger) (rulesrepo.BlobStore, error) {
	if dir == "" {
		return nil, errors.New("blob directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &FilesystemStore{dir: dir, logger: logger}, nil
}

// Put writes content under key. Writes go to a temp file first so a crashed
// write never leaves a truncated object behind.
func (s *FilesystemStore) Put(ctx context.Context, key string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write object %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close object %s: %w", key, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store object %s: %w", key, err)
	}

	s.logger.Debug("blob stored", "key", key, "bytes", len(content))
	return nil
}

// Get retrieves the content stored under key
func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return content, nil
}

// Delete removes the content stored under key
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	s.logger.Debug("blob deleted", "key", key)
	return nil
}

// path maps an opaque key to an on-disk location, rejecting anything that
// could escape the store root.
func (s *FilesystemStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q: %w", key, domain.ErrValidation)
	}
	fanout := key
	if len(fanout) > 2 {
		fanout = key[:2]
	}
	return filepath.Join(s.dir, fanout, key), nil
}
