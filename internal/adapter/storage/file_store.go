// Package storage reads and removes uploaded inputs.
package storage

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"openlet/internal/domain"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileStore serves object refs from an afero filesystem rooted at the upload bucket.
type FileStore struct {
	fs     afero.Fs
	logger *zap.Logger
}

// NewFileStore roots the store at dir on the local disk.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return NewFileStoreWithFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

func NewFileStoreWithFs(fsys afero.Fs, logger *zap.Logger) *FileStore {
	return &FileStore{fs: fsys, logger: logger}
}

// ObjectPath maps a ref to an object path. Refs are either plain paths or
// download URLs of the form https://host/.../o/<escaped path>?alt=media.
func ObjectPath(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", domain.NewInvalidInputError("empty object reference")
	}

	p := ref
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", domain.NewError(domain.ErrInvalidInput, "malformed object URL", err)
		}
		escaped := u.EscapedPath()
		i := strings.Index(escaped, "/o/")
		if i < 0 {
			return "", domain.NewInvalidInputError("object URL has no /o/ segment: " + ref)
		}
		p, err = url.PathUnescape(escaped[i+len("/o/"):])
		if err != nil {
			return "", domain.NewError(domain.ErrInvalidInput, "malformed object URL", err)
		}
	}

	clean := path.Clean("/" + p)
	if clean == "/" {
		return "", domain.NewInvalidInputError("object reference has no path: " + ref)
	}
	return clean, nil
}

func (s *FileStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := ObjectPath(ref)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return nil, domain.NewStorageError(p, err)
	}
	s.logger.Debug("Fetched object", zap.String("path", p), zap.Int("bytes", len(data)))
	return data, nil
}

// Delete removes the object. A missing object is not an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := ObjectPath(ref)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.NewStorageError(p, err)
	}
	return nil
}

var _ domain.ObjectStore = (*FileStore)(nil)
