package objects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/docstore/internal/common"
	"github.com/dmitrijs2005/docstore/internal/dbx"
	"github.com/dmitrijs2005/docstore/internal/server/models"
)

// DigestIndexName is the partial unique index that arbitrates digest
// ownership between concurrent uploads.
const DigestIndexName = "objects_bucket_digest_live_idx"

const selectColumns = `id, bucket, digest_algorithm, digest_value, content_type, filename, owner, size, created, valid, deleted`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObject(row rowScanner) (*models.StoredObject, error) {
	var (
		obj     models.StoredObject
		deleted sql.NullTime
	)
	if err := row.Scan(&obj.ID, &obj.Bucket, &obj.DigestAlgorithm, &obj.DigestValue, &obj.ContentType,
		&obj.Filename, &obj.Owner, &obj.Size, &obj.Created, &obj.Valid, &deleted); err != nil {
		return nil, err
	}
	// timestamptz scans in the session zone.
	obj.Created = obj.Created.UTC()
	if deleted.Valid {
		t := deleted.Time.UTC()
		obj.Deleted = &t
	}
	return &obj, nil
}

// EnsureContainer registers the bucket. The indices are created by the
// schema migrations and cover every bucket.
func (r *PostgresRepository) EnsureContainer(ctx context.Context, bucket string) error {
	query := `INSERT INTO containers (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, bucket); err != nil {
		return fmt.Errorf("failed to ensure container: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, obj *models.StoredObject) error {
	query := `
		INSERT INTO objects (id, bucket, content_type, filename, owner, created, valid)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	`
	_, err := r.db.ExecContext(ctx, query, obj.ID, obj.Bucket, obj.ContentType, obj.Filename, obj.Owner, obj.Created)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, bucket, id string) (*models.StoredObject, error) {
	query := `SELECT ` + selectColumns + ` FROM objects WHERE bucket=$1 AND id=$2`
	obj, err := scanObject(r.db.QueryRowContext(ctx, query, bucket, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select object: %w", err)
	}
	return obj, nil
}

func (r *PostgresRepository) UpdateMetadata(ctx context.Context, bucket, id string, patch models.Patch) error {
	query := `
		UPDATE objects SET
			digest_algorithm = COALESCE($3, digest_algorithm),
			digest_value = COALESCE($4, digest_value),
			valid = COALESCE($5, valid),
			owner = COALESCE($6, owner),
			size = COALESCE($7, size),
			deleted = COALESCE($8, deleted)
		WHERE bucket=$1 AND id=$2
	`
	res, err := r.db.ExecContext(ctx, query, bucket, id,
		patch.DigestAlgorithm, patch.DigestValue, patch.Valid, patch.Owner, patch.Size, patch.Deleted)
	return checkSingleRow(res, err)
}

func (r *PostgresRepository) Finalize(ctx context.Context, bucket, id, digestAlgorithm, digestValue string, size int64) error {
	query := `
		UPDATE objects SET digest_algorithm=$3, digest_value=$4, size=$5, valid=TRUE
		WHERE bucket=$1 AND id=$2 AND deleted IS NULL
	`
	res, err := r.db.ExecContext(ctx, query, bucket, id, digestAlgorithm, digestValue, size)
	return checkSingleRow(res, err)
}

// checkSingleRow maps the outcome of an update addressed by primary key.
func checkSingleRow(res sql.Result, err error) error {
	if err != nil {
		if dbx.IsUniqueViolation(err, DigestIndexName) {
			return common.ErrUniqueDigest
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) FindByDigest(ctx context.Context, bucket, digestValue string, opts models.FindOptions) (*models.StoredObject, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + selectColumns + ` FROM objects WHERE bucket=$1 AND digest_value=$2`)
	if opts.ValidOnly {
		b.WriteString(` AND valid`)
	}
	if opts.ExcludeDeleted {
		b.WriteString(` AND deleted IS NULL`)
	}
	b.WriteString(` ORDER BY valid DESC, created DESC LIMIT 1`)

	obj, err := scanObject(r.db.QueryRowContext(ctx, b.String(), bucket, digestValue))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find by digest: %w", err)
	}
	return obj, nil
}

func (r *PostgresRepository) FindStale(ctx context.Context, bucket string, before time.Time, limit int) ([]*models.StoredObject, error) {
	query := `SELECT ` + selectColumns + ` FROM objects
		WHERE bucket=$1 AND NOT valid AND created < $2
		ORDER BY created LIMIT $3`
	return r.list(ctx, query, bucket, before, limit)
}

func (r *PostgresRepository) FindDeleted(ctx context.Context, bucket string, before time.Time, limit int) ([]*models.StoredObject, error) {
	query := `SELECT ` + selectColumns + ` FROM objects
		WHERE bucket=$1 AND deleted IS NOT NULL AND deleted < $2
		ORDER BY deleted LIMIT $3`
	return r.list(ctx, query, bucket, before, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*models.StoredObject, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select objects: %w", err)
	}
	defer rows.Close()

	var result []*models.StoredObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Purge(ctx context.Context, bucket, id string) error {
	query := `DELETE FROM objects WHERE bucket=$1 AND id=$2 AND (NOT valid OR deleted IS NOT NULL)`
	res, err := r.db.ExecContext(ctx, query, bucket, id)
	if err != nil {
		return fmt.Errorf("failed to purge object: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	query = `SELECT EXISTS (SELECT 1 FROM objects WHERE bucket=$1 AND id=$2)`
	if err := r.db.QueryRowContext(ctx, query, bucket, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to select object: %w", err)
	}
	if exists {
		return common.ErrObjectLive
	}
	return nil
}
