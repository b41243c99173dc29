package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/notedrop/internal/apperr"
	"github.com/starford/notedrop/internal/checksum"
)

// FS implements Provider backed by a local upload directory.
type FS struct {
	root string // absolute path to the upload directory
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute upload directory.
func (f *FS) Root() string { return f.root }

// safePath resolves a stored path against the root and rejects any result that
// escapes it.
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: empty path")
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes upload root: %s", rel)
	}
	return abs, nil
}

// Store streams r into a new file. The target is created exclusively so a
// generated name can never overwrite earlier bytes.
func (f *FS) Store(ctx context.Context, r io.Reader, desiredName string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	for range maxNameAttempts {
		name := GenerateName(desiredName)
		abs, err := f.safePath(name)
		if err != nil {
			return Object{}, err
		}
		dst, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Object{}, apperr.Storage("storage: create", err)
		}
		obj, err := f.write(dst, abs, r)
		if err != nil {
			return Object{}, err
		}
		obj.Name = name
		obj.Path = name
		return obj, nil
	}
	return Object{}, apperr.Storage("storage: create", fmt.Errorf("no free name for %q", desiredName))
}

// write copies r into dst, fsyncs and closes it. On any failure the partially
// written file is removed.
func (f *FS) write(dst *os.File, abs string, r io.Reader) (Object, error) {
	success := false
	defer func() {
		if !success {
			_ = dst.Close()
			_ = os.Remove(abs)
		}
	}()

	cr := checksum.NewReader(r)
	if _, err := io.Copy(dst, cr); err != nil {
		return Object{}, apperr.Storage("storage: write", err)
	}
	if err := dst.Sync(); err != nil {
		return Object{}, apperr.Storage("storage: fsync", err)
	}
	if err := dst.Close(); err != nil {
		return Object{}, apperr.Storage("storage: close", err)
	}
	success = true
	return Object{Size: cr.Size(), Checksum: cr.Sum()}, nil
}

// Open returns the stored bytes at path.
func (f *FS) Open(_ context.Context, path string) (io.ReadCloser, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: open %s: %w", path, apperr.ErrNotFound)
		}
		return nil, apperr.Storage("storage: open "+path, err)
	}
	return file, nil
}

// Delete removes the stored bytes at path.
func (f *FS) Delete(_ context.Context, path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("storage: delete %s: %w", path, apperr.ErrNotFound)
		}
		return apperr.Storage("storage: delete "+path, err)
	}
	return nil
}
