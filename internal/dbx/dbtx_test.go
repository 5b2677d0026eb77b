package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// openObjects returns an in-memory database with a cut-down objects table.
func openObjects(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE objects (id TEXT PRIMARY KEY, bucket TEXT NOT NULL, valid INTEGER NOT NULL DEFAULT 0)`)
	require.NoError(t, err)
	return db
}

func validCount(t *testing.T, db *sql.DB) (total, valid int) {
	t.Helper()
	require.NoError(t, db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(valid), 0) FROM objects`).Scan(&total, &valid))
	return total, valid
}

// createAndFinalize inserts a pending object and marks it valid in tx.
func createAndFinalize(ctx context.Context, tx DBTX, id string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO objects(id, bucket) VALUES (?, 'documentServer')`, id); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `UPDATE objects SET valid = 1 WHERE id = ?`, id)
	return err
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits every statement", func(t *testing.T) {
		db := openObjects(t)
		require.NoError(t, WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			return createAndFinalize(ctx, tx, "a")
		}))
		total, valid := validCount(t, db)
		assert.Equal(t, 1, total)
		assert.Equal(t, 1, valid)
	})

	t.Run("error rolls back and is returned", func(t *testing.T) {
		db := openObjects(t)
		errSweep := errors.New("sweep interrupted")
		err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, createAndFinalize(ctx, tx, "a"))
			return errSweep
		})
		assert.ErrorIs(t, err, errSweep)
		total, _ := validCount(t, db)
		assert.Zero(t, total)
	})

	t.Run("panic rolls back and propagates", func(t *testing.T) {
		db := openObjects(t)
		assert.PanicsWithValue(t, "blob store gone", func() {
			_ = WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
				require.NoError(t, createAndFinalize(ctx, tx, "a"))
				panic("blob store gone")
			})
		})
		total, _ := validCount(t, db)
		assert.Zero(t, total)
	})

	t.Run("begin failure", func(t *testing.T) {
		db := openObjects(t)
		require.NoError(t, db.Close())
		called := false
		err := WithTx(ctx, db, nil, func(context.Context, DBTX) error {
			called = true
			return nil
		})
		assert.Error(t, err)
		assert.False(t, called)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "objects_bucket_digest_live_idx"}

	assert.True(t, IsUniqueViolation(dup, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("update: %w", dup), "objects_bucket_digest_live_idx"))
	assert.False(t, IsUniqueViolation(dup, "other_idx"))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}
