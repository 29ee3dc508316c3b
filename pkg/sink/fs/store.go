// Package fs stores artifacts as files under a base directory.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/sink"
)

// Config holds configuration for the filesystem sink.
type Config struct {
	// BasePath is the root directory. Keys are paths relative to it.
	BasePath string

	// DirMode is the permission mode for created directories.
	// Default: 0755
	DirMode os.FileMode

	// FileMode is the permission mode for created files.
	// Default: 0644
	FileMode os.FileMode
}

// Store is a filesystem-backed sink.Sink.
type Store struct {
	mu       sync.RWMutex
	basePath string
	dirMode  os.FileMode
	fileMode os.FileMode
	closed   bool
}

// New creates the base directory if needed and returns a Store.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("base path is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}

	if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
		return nil, err
	}
	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base path %s is not a directory", cfg.BasePath)
	}

	return &Store{basePath: cfg.BasePath, dirMode: cfg.DirMode, fileMode: cfg.FileMode}, nil
}

// NewWithPath creates a Store with default modes.
func NewWithPath(basePath string) (*Store, error) {
	return New(Config{BasePath: basePath})
}

func (s *Store) objectPath(key string) (string, error) {
	k, err := sink.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(k)), nil
}

// Put writes to a temporary file in the target directory and renames it
// into place.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, span := telemetry.StartInternalSpan(ctx, telemetry.SpanSinkPut,
		telemetry.StoreType("fs"), telemetry.StorageKey(key), telemetry.Size(len(data)))
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return sink.ErrClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirMode); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, s.fileMode); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Exists implements sink.Sink.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, sink.ErrClosed
	}

	path, err := s.objectPath(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// DeleteByPrefix removes the file or directory tree at prefix and any
// parent directories left empty.
func (s *Store) DeleteByPrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sink.ErrClosed
	}

	path, err := s.objectPath(prefix)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return err
	}
	s.cleanEmptyDirs(filepath.Dir(path))
	return nil
}

func (s *Store) cleanEmptyDirs(dir string) {
	for dir != s.basePath && strings.HasPrefix(dir, s.basePath) {
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
}

// Describe implements sink.Sink.
func (s *Store) Describe() string {
	return s.basePath
}

// BasePath returns the root directory.
func (s *Store) BasePath() string {
	return s.basePath
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ sink.Sink = (*Store)(nil)
