package objects

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/server/models"
	"go.etcd.io/bbolt"
)

var (
	bucketObjects = []byte("objects")
	bucketDigest  = []byte("digest")
	bucketPending = []byte("pending")
	bucketDeleted = []byte("deleted")
)

// BoltRepository keeps each container in a top-level bbolt bucket holding
// the records and three index buckets. Index entries are maintained in the
// same transaction as the record they describe.
type BoltRepository struct {
	db *bbolt.DB
}

func NewBoltRepository(db *bbolt.DB) *BoltRepository {
	return &BoltRepository{db: db}
}

var _ Repository = (*BoltRepository)(nil)

type container struct {
	objects *bbolt.Bucket
	digest  *bbolt.Bucket
	pending *bbolt.Bucket
	deleted *bbolt.Bucket
}

func openContainer(tx *bbolt.Tx, bucket string) (*container, error) {
	root := tx.Bucket([]byte(bucket))
	if root == nil {
		return nil, fmt.Errorf("%w: container %q", common.ErrorNotFound, bucket)
	}
	return &container{
		objects: root.Bucket(bucketObjects),
		digest:  root.Bucket(bucketDigest),
		pending: root.Bucket(bucketPending),
		deleted: root.Bucket(bucketDeleted),
	}, nil
}

// timeKey orders index entries by time, then id.
func timeKey(t time.Time, id string) []byte {
	k := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return append(k, id...)
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (c *container) load(id string) (*models.StoredObject, error) {
	data := c.objects.Get([]byte(id))
	if data == nil {
		return nil, common.ErrorNotFound
	}
	var obj models.StoredObject
	if err := decodeGob(data, &obj); err != nil {
		return nil, fmt.Errorf("boltstore: decode object %s: %w", id, err)
	}
	return &obj, nil
}

func (c *container) unindex(obj *models.StoredObject) error {
	if obj.Live() && obj.DigestValue != "" {
		if owner := c.digest.Get([]byte(obj.DigestValue)); string(owner) == obj.ID {
			if err := c.digest.Delete([]byte(obj.DigestValue)); err != nil {
				return err
			}
		}
	}
	if !obj.Valid {
		if err := c.pending.Delete(timeKey(obj.Created, obj.ID)); err != nil {
			return err
		}
	}
	if obj.Deleted != nil {
		if err := c.deleted.Delete(timeKey(*obj.Deleted, obj.ID)); err != nil {
			return err
		}
	}
	return nil
}

func (c *container) index(obj *models.StoredObject) error {
	if obj.Live() && obj.DigestValue != "" {
		owner := c.digest.Get([]byte(obj.DigestValue))
		if owner != nil && string(owner) != obj.ID {
			return common.ErrUniqueDigest
		}
		if err := c.digest.Put([]byte(obj.DigestValue), []byte(obj.ID)); err != nil {
			return err
		}
	}
	if !obj.Valid {
		if err := c.pending.Put(timeKey(obj.Created, obj.ID), nil); err != nil {
			return err
		}
	}
	if obj.Deleted != nil {
		if err := c.deleted.Put(timeKey(*obj.Deleted, obj.ID), nil); err != nil {
			return err
		}
	}
	return nil
}

// replace swaps old for updated, keeping the indices consistent.
func (c *container) replace(old, updated *models.StoredObject) error {
	if old != nil {
		if err := c.unindex(old); err != nil {
			return fmt.Errorf("boltstore: unindex: %w", err)
		}
	}
	if err := c.index(updated); err != nil {
		if errors.Is(err, common.ErrUniqueDigest) {
			return err
		}
		return fmt.Errorf("boltstore: index: %w", err)
	}
	data, err := encodeGob(updated)
	if err != nil {
		return fmt.Errorf("boltstore: encode object: %w", err)
	}
	return c.objects.Put([]byte(updated.ID), data)
}

func (r *BoltRepository) EnsureContainer(ctx context.Context, bucket string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("boltstore: create container %q: %w", bucket, err)
		}
		for _, name := range [][]byte{bucketObjects, bucketDigest, bucketPending, bucketDeleted} {
			if _, err := root.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
}

func (r *BoltRepository) Create(ctx context.Context, obj *models.StoredObject) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		c, err := openContainer(tx, obj.Bucket)
		if err != nil {
			return err
		}
		if c.objects.Get([]byte(obj.ID)) != nil {
			return fmt.Errorf("boltstore: object %s already exists", obj.ID)
		}
		record := *obj
		record.Valid = false
		return c.replace(nil, &record)
	})
}

func (r *BoltRepository) Get(ctx context.Context, bucket, id string) (*models.StoredObject, error) {
	var obj *models.StoredObject
	err := r.db.View(func(tx *bbolt.Tx) error {
		c, err := openContainer(tx, bucket)
		if err != nil {
			return err
		}
		obj, err = c.load(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (r *BoltRepository) modify(bucket, id string, fn func(obj *models.StoredObject) error) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		c, err := openContainer(tx, bucket)
		if err != nil {
			return err
		}
		old, err := c.load(id)
		if err != nil {
			return err
		}
		updated := *old
		if err := fn(&updated); err != nil {
			return err
		}
		return c.replace(old, &updated)
	})
}

func (r *BoltRepository) UpdateMetadata(ctx context.Context, bucket, id string, patch models.Patch) error {
	return r.modify(bucket, id, func(obj *models.StoredObject) error {
		if patch.DigestAlgorithm != nil {
			obj.DigestAlgorithm = *patch.DigestAlgorithm
		}
		if patch.DigestValue != nil {
			obj.DigestValue = *patch.DigestValue
		}
		if patch.Valid != nil {
			obj.Valid = *patch.Valid
		}
		if patch.Owner != nil {
			obj.Owner = *patch.Owner
		}
		if patch.Size != nil {
			obj.Size = *patch.Size
		}
		if patch.Deleted != nil {
			t := *patch.Deleted
			obj.Deleted = &t
		}
		return nil
	})
}

func (r *BoltRepository) Finalize(ctx context.Context, bucket, id, digestAlgorithm, digestValue string, size int64) error {
	return r.modify(bucket, id, func(obj *models.StoredObject) error {
		if obj.Deleted != nil {
			return common.ErrorNotFound
		}
		obj.DigestAlgorithm = digestAlgorithm
		obj.DigestValue = digestValue
		obj.Size = size
		obj.Valid = true
		return nil
	})
}

func (r *BoltRepository) FindByDigest(ctx context.Context, bucket, digestValue string, opts models.FindOptions) (*models.StoredObject, error) {
	var found *models.StoredObject
	err := r.db.View(func(tx *bbolt.Tx) error {
		c, err := openContainer(tx, bucket)
		if err != nil {
			return err
		}
		if id := c.digest.Get([]byte(digestValue)); id != nil {
			found, err = c.load(string(id))
			return err
		}
		if opts.ValidOnly && opts.ExcludeDeleted {
			return common.ErrorNotFound
		}
		// Non-live objects are not indexed by digest.
		return c.objects.ForEach(func(k, v []byte) error {
			var obj models.StoredObject
			if err := decodeGob(v, &obj); err != nil {
				return fmt.Errorf("boltstore: decode object %s: %w", k, err)
			}
			if obj.DigestValue != digestValue ||
				(opts.ValidOnly && !obj.Valid) ||
				(opts.ExcludeDeleted && obj.Deleted != nil) {
				return nil
			}
			if found == nil || better(&obj, found) {
				o := obj
				found = &o
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, common.ErrorNotFound
	}
	return found, nil
}

// better prefers valid objects, then the most recently created.
func better(a, b *models.StoredObject) bool {
	if a.Valid != b.Valid {
		return a.Valid
	}
	return a.Created.After(b.Created)
}

func (r *BoltRepository) FindStale(ctx context.Context, bucket string, before time.Time, limit int) ([]*models.StoredObject, error) {
	return r.scanIndex(bucket, func(c *container) *bbolt.Bucket { return c.pending }, before, limit)
}

func (r *BoltRepository) FindDeleted(ctx context.Context, bucket string, before time.Time, limit int) ([]*models.StoredObject, error) {
	return r.scanIndex(bucket, func(c *container) *bbolt.Bucket { return c.deleted }, before, limit)
}

func (r *BoltRepository) scanIndex(bucket string, pick func(*container) *bbolt.Bucket, before time.Time, limit int) ([]*models.StoredObject, error) {
	var result []*models.StoredObject
	cutoff := timeKey(before, "")
	err := r.db.View(func(tx *bbolt.Tx) error {
		c, err := openContainer(tx, bucket)
		if err != nil {
			return err
		}
		cur := pick(c).Cursor()
		for k, _ := cur.First(); k != nil && bytes.Compare(k[:8], cutoff) < 0; k, _ = cur.Next() {
			if limit > 0 && len(result) >= limit {
				break
			}
			obj, err := c.load(string(k[8:]))
			if err != nil {
				return err
			}
			result = append(result, obj)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *BoltRepository) Purge(ctx context.Context, bucket, id string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		c, err := openContainer(tx, bucket)
		if err != nil {
			return err
		}
		obj, err := c.load(id)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if obj.Live() {
			return common.ErrObjectLive
		}
		if err := c.unindex(obj); err != nil {
			return fmt.Errorf("boltstore: unindex: %w", err)
		}
		return c.objects.Delete([]byte(id))
	})
}
