package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photoshare/internal/domain"

	"github.com/gabriel-vasile/mimetype"
)

// DiskStore keeps blobs as files in a single directory.
type DiskStore struct {
	dir string
	now func() time.Time
}

// NewDiskStore creates dir if needed.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create images dir: %w", err)
	}
	return &DiskStore{dir: dir, now: time.Now}, nil
}

// Save writes r under a generated name. A partially written file is removed.
func (d *DiskStore) Save(ctx context.Context, originalName, contentType string, r io.Reader, size int64) (string, error) {
	name := NewFileName(d.now(), originalName)

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("blob error: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("blob error: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blob error: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, name)); err != nil {
		return "", fmt.Errorf("blob error: %w", err)
	}
	return name, nil
}

// Open returns the file and its sniffed content type.
func (d *DiskStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !ValidName(name) {
		return nil, "", domain.ErrBlobNotFound
	}
	path := filepath.Join(d.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, "", domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("blob error: %w", err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("blob error: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, "", fmt.Errorf("blob error: %w", err)
	}
	ct, _, _ := strings.Cut(mt.String(), ";")
	return f, ct, nil
}

// Delete removes the file for name.
func (d *DiskStore) Delete(ctx context.Context, name string) error {
	if !ValidName(name) {
		return nil
	}
	err := os.Remove(filepath.Join(d.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob error: %w", err)
	}
	return nil
}
