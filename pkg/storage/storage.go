// Package storage keeps uploaded answer and question media.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidKey is returned for keys that would escape the store root.
var ErrInvalidKey = errors.New("invalid object key")

// MediaStore persists media blobs and returns the location they can be fetched from.
type MediaStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds a unique key under prefix, preserving the file extension.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := sanitizeName(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "upload"
	}
	name := fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], ext)
	return path.Join(strings.Trim(prefix, "/"), time.Now().UTC().Format("2006/01"), name)
}

func sanitizeName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '-'
	}, name)
	return strings.Trim(cleaned, "-")
}

func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// LocalStore writes media below a directory on disk and serves it under BaseURL.
type LocalStore struct {
	Root    string
	BaseURL string
}

// NewLocalStore creates the root directory when missing.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	if baseURL == "" {
		baseURL = "/uploads"
	}
	return &LocalStore{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put implements MediaStore.
func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.Root, filepath.FromSlash(cleaned))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.BaseURL + "/" + cleaned, nil
}

// Delete implements MediaStore. Missing files are not an error.
func (s *LocalStore) Delete(_ context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(cleaned))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
