package domain

import (
	"context"
	"io"
)

// BlobStore keeps uploaded image content under generated file names.
type BlobStore interface {
	// Save stores the content and returns the generated file name. Only the
	// extension of originalName is kept.
	Save(ctx context.Context, originalName, contentType string, r io.Reader, size int64) (string, error)
	// Open returns ErrBlobNotFound when name is unknown.
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
	// Delete removes name. Unknown names are not an error.
	Delete(ctx context.Context, name string) error
}
