package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/filex"
	"github.com/klauspost/compress/zstd"
)

// zstdSuffix marks blobs written with compression enabled, so a store can
// read both forms after the setting changes.
const zstdSuffix = ".zst"

// FSStore keeps blobs on the local filesystem at
// {baseDir}/{bucket}/{key[:2]}/{key}. Writes go to a temp file that is
// renamed into place only after the stream completes.
type FSStore struct {
	baseDir  string
	compress bool
}

// NewFSStore creates the base directory if needed.
func NewFSStore(baseDir string, compress bool) (*FSStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("%w: empty base directory", ErrInvalidKey)
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{baseDir: baseDir, compress: compress}, nil
}

func (s *FSStore) path(bucket, key string) (string, error) {
	if err := validateName("bucket", bucket); err != nil {
		return "", err
	}
	if err := validateName("key", key); err != nil {
		return "", err
	}
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(s.baseDir, bucket, shard, key), nil
}

func (s *FSStore) Ensure(ctx context.Context, bucket string) error {
	if err := validateName("bucket", bucket); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(s.baseDir, bucket), 0o700)
}

func (s *FSStore) Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (int64, error) {
	path, err := s.path(bucket, key)
	if err != nil {
		return 0, err
	}
	if s.compress {
		path += zstdSuffix
	}
	src := &countingReader{r: r}
	err = filex.WriteAtomic(path, func(w io.Writer) error {
		return s.copyInto(w, src)
	})
	return src.n, err
}

func (s *FSStore) copyInto(dst io.Writer, src io.Reader) error {
	if !s.compress {
		_, err := io.Copy(dst, src)
		return err
	}
	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func (s *FSStore) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	path, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	f, err = os.Open(path + zstdSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	return &zstdReadCloser{dec: dec, f: f}, nil
}

func (s *FSStore) Delete(ctx context.Context, bucket, key string) error {
	path, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	for _, p := range []string{path, path + zstdSuffix} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove blob: %w", err)
		}
	}
	return nil
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	f   *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.f.Close()
}
