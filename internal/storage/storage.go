package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/SAP-F-2025/course-marketplace/internal/config"
)

var ErrInvalidName = errors.New("invalid object name")

// ObjectStorage stores public files grouped in buckets
type ObjectStorage interface {
	Put(ctx context.Context, bucket, name, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, bucket, name string) error
}

// LocalStorage keeps objects under Dir/{bucket}/{name}. They are served from PublicURL/{bucket}/{name}.
type LocalStorage struct {
	dir       string
	publicURL string
}

func NewLocalStorage(cfg config.StorageConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &LocalStorage{dir: cfg.Dir, publicURL: strings.TrimRight(cfg.PublicURL, "/")}, nil
}

func (s *LocalStorage) Dir() string {
	return s.dir
}

func (s *LocalStorage) path(bucket, name string) (string, error) {
	for _, part := range []string{bucket, name} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, part)
		}
	}
	return filepath.Join(s.dir, bucket, name), nil
}

func (s *LocalStorage) URL(bucket, name string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, name)
}

func (s *LocalStorage) Put(ctx context.Context, bucket, name, contentType string, r io.Reader) (string, error) {
	target, err := s.path(bucket, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create bucket dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("failed to store object: %w", err)
	}
	return s.URL(bucket, name), nil
}

func (s *LocalStorage) Delete(ctx context.Context, bucket, name string) error {
	target, err := s.path(bucket, name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}
