// Package storage persists uploaded course videos.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vibast-solutions/ms-go-course/config"
)

// LocalPublicPath is the URL prefix local videos are served under.
const LocalPublicPath = "/uploads/videos"

type VideoStore interface {
	// Save stores the video under name and returns its public URL.
	Save(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error)
}

type LocalVideoStore struct {
	dir string
}

func NewLocalVideoStore(dir string) *LocalVideoStore {
	return &LocalVideoStore{dir: dir}
}

// Dir is the directory served under LocalPublicPath.
func (s *LocalVideoStore) Dir() string {
	return s.dir
}

func (s *LocalVideoStore) Save(ctx context.Context, name string, body io.Reader, _ int64, _ string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}

	if _, err = io.Copy(file, contextReader{ctx: ctx, r: body}); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err = file.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}

	return LocalPublicPath + "/" + name, nil
}

// NewVideoStore builds the store selected by VIDEO_STORAGE.
func NewVideoStore(ctx context.Context, cfg config.StorageConfig) (VideoStore, error) {
	switch cfg.Driver {
	case config.VideoStorageS3:
		return NewS3VideoStore(ctx, cfg)
	case config.VideoStorageLocal, "":
		return NewLocalVideoStore(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unsupported video storage %q", cfg.Driver)
	}
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
