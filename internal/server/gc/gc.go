// Package gc purges objects that can no longer be served: uploads that
// never became valid within a grace period, and soft-deleted objects past
// their retention window. Live objects are never touched.
package gc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/logging"
	"github.com/dmitrijs2005/docstore/internal/server/models"
	"github.com/dmitrijs2005/docstore/internal/server/objectstore"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/objects"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/repomanager"
)

type Policy struct {
	Grace     time.Duration
	Retention time.Duration
	BatchSize int
}

// Cutoff holds the instants before which objects are collectable.
type Cutoff struct {
	Stale   time.Time
	Deleted time.Time
}

func Cutoffs(now time.Time, p Policy) Cutoff {
	return Cutoff{Stale: now.Add(-p.Grace), Deleted: now.Add(-p.Retention)}
}

// Collectable reports whether obj may be purged at the given cutoff.
func Collectable(obj *models.StoredObject, cut Cutoff) bool {
	switch obj.State() {
	case models.StateDeleted:
		return obj.Deleted.Before(cut.Deleted)
	case models.StatePending:
		return obj.Created.Before(cut.Stale)
	default:
		return false
	}
}

// Stats counts purged objects of one run.
type Stats struct {
	Stale   int
	Deleted int
}

type Collector struct {
	store   *objectstore.Store
	repos   repomanager.RepositoryManager
	buckets []string
	policy  Policy
	log     logging.Logger
	now     func() time.Time
}

func NewCollector(store *objectstore.Store, repos repomanager.RepositoryManager, buckets []string, policy Policy, log logging.Logger) *Collector {
	if policy.BatchSize <= 0 {
		policy.BatchSize = 100
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Collector{
		store:   store,
		repos:   repos,
		buckets: buckets,
		policy:  policy,
		log:     log.With("module", "gc"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run performs one collection pass over every bucket.
func (c *Collector) Run(ctx context.Context) (Stats, error) {
	cut := Cutoffs(c.now(), c.policy)
	var stats Stats
	for _, bucket := range c.buckets {
		n, err := c.sweep(ctx, bucket, cut, func(ctx context.Context, limit int) ([]*models.StoredObject, error) {
			return c.repos.Objects().FindStale(ctx, bucket, cut.Stale, limit)
		})
		stats.Stale += n
		if err != nil {
			return stats, fmt.Errorf("collect stale objects in %s: %w", bucket, err)
		}

		n, err = c.sweep(ctx, bucket, cut, func(ctx context.Context, limit int) ([]*models.StoredObject, error) {
			return c.repos.Objects().FindDeleted(ctx, bucket, cut.Deleted, limit)
		})
		stats.Deleted += n
		if err != nil {
			return stats, fmt.Errorf("collect deleted objects in %s: %w", bucket, err)
		}
	}
	return stats, nil
}

type finder func(ctx context.Context, limit int) ([]*models.StoredObject, error)

// sweep purges batches until the finder comes back short.
func (c *Collector) sweep(ctx context.Context, bucket string, cut Cutoff, find finder) (int, error) {
	purged := 0
	for {
		if err := ctx.Err(); err != nil {
			return purged, err
		}
		batch, err := find(ctx, c.policy.BatchSize)
		if err != nil {
			return purged, err
		}

		n := 0
		err = c.repos.WithinTx(ctx, func(ctx context.Context, repo objects.Repository) error {
			for _, obj := range batch {
				if !Collectable(obj, cut) {
					continue
				}
				err := c.store.Purge(ctx, repo, obj)
				if errors.Is(err, common.ErrObjectLive) {
					c.log.Debug(ctx, "object became live, kept", "bucket", bucket, "id", obj.ID)
					continue
				}
				if err != nil {
					return err
				}
				n++
			}
			return nil
		})
		if err != nil {
			return purged, err
		}
		purged += n
		if n > 0 {
			c.log.Info(ctx, "purged objects", "bucket", bucket, "count", n)
		}
		if len(batch) < c.policy.BatchSize || n == 0 {
			return purged, nil
		}
	}
}

// RunPeriodically runs a pass every interval until ctx is cancelled.
func (c *Collector) RunPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info(ctx, "collector stopped")
			return
		case <-ticker.C:
			stats, err := c.Run(ctx)
			if err != nil {
				c.log.Error(ctx, "collection failed", "error", err)
				continue
			}
			c.log.Debug(ctx, "collection done", "stale", stats.Stale, "deleted", stats.Deleted)
		}
	}
}
