package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/docstore/internal/server/repositories/objects"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp), sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestManagersImplementInterface(t *testing.T) {
	var _ RepositoryManager = (*PostgresRepositoryManager)(nil)
	var _ RepositoryManager = (*BoltRepositoryManager)(nil)
}

func TestPostgres_Objects(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := NewPostgresRepositoryManager(db)
	_, ok := m.Objects().(*objects.PostgresRepository)
	assert.True(t, ok)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := NewPostgresRepositoryManager(db)
	if err := m.RunMigrations(context.Background()); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestWithinTx_CommitsAndRollsBack(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()
	m := NewPostgresRepositoryManager(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM objects`).WithArgs("docs", "a").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.WithinTx(context.Background(), func(ctx context.Context, repo objects.Repository) error {
		return repo.Purge(ctx, "docs", "a")
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = m.WithinTx(context.Background(), func(ctx context.Context, repo objects.Repository) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenPostgres_PingFailure(t *testing.T) {
	db, mock := newDB(t)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	orig := sqlOpen
	sqlOpen = func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			return nil, errors.New("unexpected driver")
		}
		return db, nil
	}
	defer func() { sqlOpen = orig }()

	_, err := OpenPostgres(context.Background(), "postgres://localhost/docs")
	assert.ErrorContains(t, err, "ping postgres: refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenBolt(t *testing.T) {
	m, err := OpenBolt(filepath.Join(t.TempDir(), "nested", "meta.db"))
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.RunMigrations(context.Background()))
	repo := m.Objects()
	require.NoError(t, repo.EnsureContainer(context.Background(), "docs"))

	called := false
	err = m.WithinTx(context.Background(), func(ctx context.Context, r objects.Repository) error {
		called = true
		return r.Purge(ctx, "docs", "missing")
	})
	require.NoError(t, err)
	assert.True(t, called)
}
