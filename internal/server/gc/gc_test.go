package gc

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/server/blobstore"
	"github.com/dmitrijs2005/docstore/internal/server/models"
	"github.com/dmitrijs2005/docstore/internal/server/objectstore"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/objects"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCutoffs(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cut := Cutoffs(now, Policy{Grace: time.Hour, Retention: 48 * time.Hour})

	assert.Equal(t, now.Add(-time.Hour), cut.Stale)
	assert.Equal(t, now.Add(-48*time.Hour), cut.Deleted)
}

func TestCollectable(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	cut := Cutoffs(now, Policy{Grace: time.Hour, Retention: 48 * time.Hour})
	old := now.Add(-72 * time.Hour)
	recent := now.Add(-time.Minute)

	tests := []struct {
		name string
		obj  models.StoredObject
		want bool
	}{
		{name: "old pending", obj: models.StoredObject{Created: old}, want: true},
		{name: "fresh pending", obj: models.StoredObject{Created: recent}},
		{name: "old live object", obj: models.StoredObject{Created: old, Valid: true}},
		{name: "deleted long ago", obj: models.StoredObject{Created: old, Valid: true, Deleted: &old}, want: true},
		{name: "deleted recently", obj: models.StoredObject{Created: old, Valid: true, Deleted: &recent}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Collectable(&tt.obj, cut))
		})
	}
}

func TestCollector_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repos, err := repomanager.OpenBolt(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	defer repos.Close()

	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"), false)
	require.NoError(t, err)

	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := past
	store := objectstore.New(repos.Objects(), blobs, objectstore.WithClock(func() time.Time { return clock }))
	require.NoError(t, store.EnsureContainer(ctx, "docs"))

	write := func(content string) *models.StoredObject {
		obj, err := store.Write(ctx, objectstore.WriteOptions{Bucket: "docs", ContentType: "text/plain"}, strings.NewReader(content))
		require.NoError(t, err)
		return obj
	}

	abandoned := []*models.StoredObject{write("a"), write("b"), write("c")}

	live := write("live")
	require.NoError(t, store.Finalize(ctx, live, "sha256", "live"))

	removed := write("removed")
	require.NoError(t, store.Finalize(ctx, removed, "sha256", "removed"))
	require.NoError(t, store.Delete(ctx, "docs", removed.ID))

	clock = time.Now().UTC()
	fresh := write("fresh")

	c := NewCollector(store, repos, []string{"docs"}, Policy{Grace: time.Hour, Retention: 24 * time.Hour, BatchSize: 2}, nil)
	stats, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Stale: 3, Deleted: 1}, stats)

	for _, obj := range append(abandoned, removed) {
		_, err := store.Get(ctx, "docs", obj.ID)
		assert.ErrorIs(t, err, common.ErrorNotFound)
		_, err = store.Open(ctx, "docs", obj.ID)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	}

	for _, obj := range []*models.StoredObject{live, fresh} {
		_, err := store.Get(ctx, "docs", obj.ID)
		assert.NoError(t, err, "object %s survives", obj.ID)
	}

	stats, err = c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestCollector_RunPeriodicallyStopsOnCancel(t *testing.T) {
	repos, err := repomanager.OpenBolt(filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer repos.Close()

	c := NewCollector(nil, repos, nil, Policy{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunPeriodically(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

// lateRepos runs afterList once, right after the first stale listing.
type lateRepos struct {
	repomanager.RepositoryManager
	afterList func()
}

func (m *lateRepos) Objects() objects.Repository {
	return &lateRepo{Repository: m.RepositoryManager.Objects(), m: m}
}

type lateRepo struct {
	objects.Repository
	m *lateRepos
}

func (r *lateRepo) FindStale(ctx context.Context, bucket string, before time.Time, limit int) ([]*models.StoredObject, error) {
	found, err := r.Repository.FindStale(ctx, bucket, before, limit)
	if hook := r.m.afterList; hook != nil {
		r.m.afterList = nil
		hook()
	}
	return found, err
}

func TestCollector_KeepsObjectFinalizedAfterListing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repos, err := repomanager.OpenBolt(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	defer repos.Close()

	blobs, err := blobstore.NewFSStore(filepath.Join(dir, "blobs"), false)
	require.NoError(t, err)

	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := objectstore.New(repos.Objects(), blobs, objectstore.WithClock(func() time.Time { return past }))
	require.NoError(t, store.EnsureContainer(ctx, "docs"))

	slow, err := store.Write(ctx, objectstore.WriteOptions{Bucket: "docs", ContentType: "text/plain"}, strings.NewReader("slow upload"))
	require.NoError(t, err)

	late := &lateRepos{RepositoryManager: repos, afterList: func() {
		require.NoError(t, store.Finalize(ctx, slow, "sha256", "slow"))
	}}

	c := NewCollector(store, late, []string{"docs"}, Policy{Grace: time.Hour, Retention: time.Hour}, nil)
	stats, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	got, err := store.FindByDigest(ctx, "docs", "slow", models.LiveOnly)
	require.NoError(t, err)
	assert.Equal(t, slow.ID, got.ID)

	rc, err := store.Open(ctx, "docs", slow.ID)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "slow upload", string(b))
}
