// Package storage holds the blob backends used for report attachments.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a key has no stored blob.
var ErrObjectNotFound = errors.New("storage: object not found")

// Object is an open stored blob. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// BlobStore is the file-storage collaborator for attachments.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}
