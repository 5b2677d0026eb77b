// Package objects persists StoredObject metadata records and the indices
// over them: a digest index scoped to live objects, a pending index ordered
// by creation time and a deleted index ordered by deletion time.
package objects

import (
	"context"
	"time"

	"github.com/dmitrijs2005/docstore/internal/server/models"
)

type Repository interface {
	// EnsureContainer creates the container and its indices; it is idempotent.
	EnsureContainer(ctx context.Context, bucket string) error
	// Create inserts a pending record.
	Create(ctx context.Context, obj *models.StoredObject) error
	Get(ctx context.Context, bucket, id string) (*models.StoredObject, error)
	// UpdateMetadata merges patch into the record. Setting Valid may fail
	// with common.ErrUniqueDigest.
	UpdateMetadata(ctx context.Context, bucket, id string, patch models.Patch) error
	// Finalize records the digest and marks the object valid in one write.
	// It returns common.ErrUniqueDigest when another live object in the
	// bucket already owns digestValue.
	Finalize(ctx context.Context, bucket, id, digestAlgorithm, digestValue string, size int64) error
	FindByDigest(ctx context.Context, bucket, digestValue string, opts models.FindOptions) (*models.StoredObject, error)
	// FindStale lists objects that never became valid, created before the cutoff.
	FindStale(ctx context.Context, bucket string, before time.Time, limit int) ([]*models.StoredObject, error)
	// FindDeleted lists objects soft-deleted before the cutoff.
	FindDeleted(ctx context.Context, bucket string, before time.Time, limit int) ([]*models.StoredObject, error)
	// Purge physically removes a record that is pending or deleted. A
	// missing record is not an error; a live one is left in place and
	// reported with common.ErrObjectLive.
	Purge(ctx context.Context, bucket, id string) error
}
