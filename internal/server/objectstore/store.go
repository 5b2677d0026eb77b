// Package objectstore is the content-addressed object store: metadata
// records in a repository, bytes in a blob store, both keyed by an
// internal id assigned when a write starts.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/dmitrijs2005/docstore/internal/server/blobstore"
	"github.com/dmitrijs2005/docstore/internal/server/models"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/objects"
	"github.com/google/uuid"
)

// WriteOptions describes an object about to be written.
type WriteOptions struct {
	Bucket      string
	ContentType string
	Filename    string
	Owner       string
}

type Store struct {
	repo  objects.Repository
	blobs blobstore.Store
	cache *DigestCache
	log   logging.Logger

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithCache enables the live digest lookup cache.
func WithCache(c *DigestCache) Option {
	return func(s *Store) { s.cache = c }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(repo objects.Repository, blobs blobstore.Store, opts ...Option) *Store {
	s := &Store{
		repo:  repo,
		blobs: blobs,
		log:   logging.Nop(),
		// timestamptz keeps microseconds.
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureContainer prepares the metadata container with its indices and the
// blob bucket.
func (s *Store) EnsureContainer(ctx context.Context, bucket string) error {
	if err := s.repo.EnsureContainer(ctx, bucket); err != nil {
		return fmt.Errorf("ensure metadata container %s: %w", bucket, err)
	}
	if err := s.blobs.Ensure(ctx, bucket); err != nil {
		return fmt.Errorf("ensure blob bucket %s: %w", bucket, err)
	}
	return nil
}

// Write records a pending object and streams r into it. The returned
// record carries the internal id and the number of bytes stored even when
// the copy fails; such objects stay pending until collected.
func (s *Store) Write(ctx context.Context, opts WriteOptions, r io.Reader) (*models.StoredObject, error) {
	obj := &models.StoredObject{
		ID:          s.newID(),
		Bucket:      opts.Bucket,
		ContentType: opts.ContentType,
		Filename:    opts.Filename,
		Owner:       opts.Owner,
		Created:     s.now(),
	}
	if err := s.repo.Create(ctx, obj); err != nil {
		return nil, fmt.Errorf("create object record: %w", err)
	}

	n, err := s.blobs.Put(ctx, obj.Bucket, obj.ID, obj.ContentType, r)
	obj.Size = n
	if err != nil {
		return obj, fmt.Errorf("write object %s: %w", obj.ID, err)
	}
	return obj, nil
}

// Open streams the bytes of a stored object.
func (s *Store) Open(ctx context.Context, bucket, id string) (io.ReadCloser, error) {
	return s.blobs.Get(ctx, bucket, id)
}

func (s *Store) Get(ctx context.Context, bucket, id string) (*models.StoredObject, error) {
	return s.repo.Get(ctx, bucket, id)
}

// UpdateMetadata merges patch into the record without touching the bytes.
func (s *Store) UpdateMetadata(ctx context.Context, bucket, id string, patch models.Patch) error {
	var before *models.StoredObject
	if s.cache != nil && (patch.Deleted != nil || patch.Valid != nil || patch.DigestValue != nil) {
		obj, err := s.repo.Get(ctx, bucket, id)
		if err != nil {
			return err
		}
		before = obj
	}
	if err := s.repo.UpdateMetadata(ctx, bucket, id, patch); err != nil {
		return err
	}
	if before != nil && before.DigestValue != "" {
		s.evict(ctx, bucket, before.DigestValue)
	}
	return nil
}

// Finalize records the digest and marks obj valid. It returns
// common.ErrUniqueDigest when the digest already belongs to a live object.
func (s *Store) Finalize(ctx context.Context, obj *models.StoredObject, digestAlgorithm, digestValue string) error {
	if err := s.repo.Finalize(ctx, obj.Bucket, obj.ID, digestAlgorithm, digestValue, obj.Size); err != nil {
		return err
	}
	obj.DigestAlgorithm = digestAlgorithm
	obj.DigestValue = digestValue
	obj.Valid = true
	if s.cache != nil {
		s.cache.put(obj)
	}
	return nil
}

// FindByDigest looks an object up by digest. With the cache enabled, a
// live lookup first tries the cached id and confirms it against the
// record; a stale hint is dropped and the digest index is consulted.
func (s *Store) FindByDigest(ctx context.Context, bucket, digestValue string, opts models.FindOptions) (*models.StoredObject, error) {
	cacheable := s.cache != nil && opts == models.LiveOnly
	if cacheable {
		if id, ok := s.cache.get(bucket, digestValue); ok {
			obj, err := s.repo.Get(ctx, bucket, id)
			switch {
			case err == nil && obj.Live() && obj.DigestValue == digestValue:
				return obj, nil
			case err != nil && !errors.Is(err, common.ErrorNotFound):
				return nil, err
			}
			s.evict(ctx, bucket, digestValue)
		}
	}
	obj, err := s.repo.FindByDigest(ctx, bucket, digestValue, opts)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.put(obj)
	}
	return obj, nil
}

// Delete soft-deletes a live object. Deleting an unknown or already
// deleted object reports common.ErrorNotFound.
func (s *Store) Delete(ctx context.Context, bucket, id string) error {
	obj, err := s.repo.Get(ctx, bucket, id)
	if err != nil {
		return err
	}
	if obj.Deleted != nil {
		return common.ErrorNotFound
	}
	now := s.now()
	if err := s.repo.UpdateMetadata(ctx, bucket, id, models.Patch{Deleted: &now}); err != nil {
		return err
	}
	if obj.DigestValue != "" {
		s.evict(ctx, bucket, obj.DigestValue)
	}
	return nil
}

// Purge physically removes a pending or deleted obj, record first and
// then bytes, using repo for the metadata so callers can batch purges in a
// transaction. A record that became live in the meantime is kept, together
// with its bytes, and common.ErrObjectLive is returned.
func (s *Store) Purge(ctx context.Context, repo objects.Repository, obj *models.StoredObject) error {
	if repo == nil {
		repo = s.repo
	}
	if err := repo.Purge(ctx, obj.Bucket, obj.ID); err != nil {
		return fmt.Errorf("purge record %s: %w", obj.ID, err)
	}
	if err := s.blobs.Delete(ctx, obj.Bucket, obj.ID); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("purge blob %s: %w", obj.ID, err)
	}
	return nil
}

func (s *Store) evict(ctx context.Context, bucket, digestValue string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.evict(bucket, digestValue); err != nil {
		s.log.Warn(ctx, "digest cache eviction failed", "bucket", bucket, "error", err)
	}
}
