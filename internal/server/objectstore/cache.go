package objectstore

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/dmitrijs2005/docstore/internal/server/models"
)

// DigestCache maps a live digest to the internal id that owns it. A hit is
// only a hint: the record is re-read by id before it is served, so a delete
// made through another Store, or racing with the write-back, is never hidden.
type DigestCache struct {
	cache *bigcache.BigCache
}

// NewDigestCache creates a cache holding at most maxSizeMB megabytes.
func NewDigestCache(ctx context.Context, lifeWindow time.Duration, maxSizeMB int) (*DigestCache, error) {
	cfg := bigcache.DefaultConfig(lifeWindow)
	cfg.HardMaxCacheSize = maxSizeMB
	cfg.CleanWindow = lifeWindow
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10000
	cfg.MaxEntrySize = 512
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DigestCache{cache: cache}, nil
}

func digestKey(bucket, digestValue string) string {
	return bucket + "\x00" + digestValue
}

func (c *DigestCache) get(bucket, digestValue string) (string, bool) {
	data, err := c.cache.Get(digestKey(bucket, digestValue))
	if err != nil || len(data) == 0 {
		return "", false
	}
	return string(data), true
}

func (c *DigestCache) put(obj *models.StoredObject) {
	_ = c.cache.Set(digestKey(obj.Bucket, obj.DigestValue), []byte(obj.ID))
}

func (c *DigestCache) evict(bucket, digestValue string) error {
	err := c.cache.Delete(digestKey(bucket, digestValue))
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

func (c *DigestCache) Close() error {
	return c.cache.Close()
}
