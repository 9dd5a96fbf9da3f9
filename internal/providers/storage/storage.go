// Package storage keeps rendered reports and ticket attachments on a
// filesystem rooted at the configured storage directory. Keys are
// slash-separated relative paths ("reports/<file>.pdf").
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"

	"github.com/locafrota/fleetsla/internal/config"
)

var (
	ErrInvalidKey = errors.New("invalid_storage_key")
	ErrNotFound   = errors.New("blob_not_found")
)

type Store interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type fileStore struct {
	fs afero.Fs
}

func New(cfg config.Config) (Store, error) {
	base := afero.NewOsFs()
	if err := base.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{fs: afero.NewBasePathFs(base, cfg.StorageRoot)}, nil
}

// NewMem returns a store backed by an in-memory filesystem.
func NewMem() Store {
	return &fileStore{fs: afero.NewMemMapFs()}
}

func (s *fileStore) Save(_ context.Context, key string, r io.Reader) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	return afero.WriteReader(s.fs, key, r)
}

func (s *fileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Delete removes a blob. A missing key is not an error; removal is
// idempotent.
func (s *fileStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *fileStore) Exists(_ context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, key)
}

// cleanKey normalizes a key and rejects anything that would resolve
// outside the store root.
func cleanKey(key string) (string, error) {
	key = path.Clean(strings.TrimSpace(key))
	if key == "" || key == "." || key == ".." || path.IsAbs(key) || strings.HasPrefix(key, "../") {
		return "", ErrInvalidKey
	}
	return key, nil
}
