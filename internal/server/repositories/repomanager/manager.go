// Package repomanager vends the metadata repository for the configured
// backend and prepares its schema.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/docstore/internal/server/repositories/objects"
)

type RepositoryManager interface {
	// RunMigrations brings the backend schema up to date.
	RunMigrations(ctx context.Context) error
	Objects() objects.Repository
	// WithinTx runs fn against a repository whose writes commit together
	// when the backend supports multi-statement transactions.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo objects.Repository) error) error
	Close() error
}
