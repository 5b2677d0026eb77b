package repomanager

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docstore/internal/filex"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/objects"
	"go.etcd.io/bbolt"
)

// BoltRepositoryManager serves metadata from an embedded bbolt file. Each
// repository call is its own transaction.
type BoltRepositoryManager struct {
	db *bbolt.DB
}

// OpenBolt opens or creates the database at path, creating the parent
// directory if needed.
func OpenBolt(path string) (*BoltRepositoryManager, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	return &BoltRepositoryManager{db: db}, nil
}

// RunMigrations is a no-op: containers and their indices are created by
// EnsureContainer.
func (m *BoltRepositoryManager) RunMigrations(ctx context.Context) error { return nil }

func (m *BoltRepositoryManager) Objects() objects.Repository {
	return objects.NewBoltRepository(m.db)
}

func (m *BoltRepositoryManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repo objects.Repository) error) error {
	return fn(ctx, m.Objects())
}

func (m *BoltRepositoryManager) Close() error {
	return m.db.Close()
}
