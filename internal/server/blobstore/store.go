// Package blobstore persists the raw bytes of stored objects. Keys are
// internal object ids; buckets partition keys per endpoint container.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrInvalidKey = errors.New("invalid blob key")

// Store is a streaming byte store. A Put that fails must leave nothing
// readable under the key.
type Store interface {
	// Ensure prepares the bucket; it is idempotent.
	Ensure(ctx context.Context, bucket string) error
	// Put streams r into bucket/key and returns the number of bytes written.
	Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (int64, error)
	// Get opens a committed blob; a missing key yields common.ErrorNotFound.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	// Delete physically removes the blob; a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
}

func validateName(kind, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %s %q", ErrInvalidKey, kind, name)
	}
	return nil
}

// countingReader tallies bytes handed to the backend.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
