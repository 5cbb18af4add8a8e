package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/codepet/classroom-sync-api/internal/models"
)

// SnapshotArchiveRepository stores the compressed canonical snapshot kept per
// owner as the diff baseline. Exactly one row per owner.
type SnapshotArchiveRepository struct {
	db *sqlx.DB
}

// NewSnapshotArchiveRepository constructs the repository.
func NewSnapshotArchiveRepository(db *sqlx.DB) *SnapshotArchiveRepository {
	return &SnapshotArchiveRepository{db: db}
}

// Get returns the archived record for an owner, or sql.ErrNoRows.
func (r *SnapshotArchiveRepository) Get(ctx context.Context, ownerID string) (*models.SnapshotArchiveRecord, error) {
	const query = `SELECT owner_id, compressed, original_bytes, compressed_bytes,
        compression_ratio, last_imported_at
        FROM snapshot_archives WHERE owner_id = $1`
	var record models.SnapshotArchiveRecord
	if err := r.db.GetContext(ctx, &record, query, ownerID); err != nil {
		return nil, err
	}
	return &record, nil
}

// Put overwrites the archived record for an owner.
func (r *SnapshotArchiveRepository) Put(ctx context.Context, record *models.SnapshotArchiveRecord) error {
	const query = `INSERT INTO snapshot_archives (owner_id, compressed, original_bytes,
        compressed_bytes, compression_ratio, last_imported_at)
        VALUES (:owner_id, :compressed, :original_bytes, :compressed_bytes, :compression_ratio, :last_imported_at)
        ON CONFLICT (owner_id) DO UPDATE SET
            compressed = EXCLUDED.compressed,
            original_bytes = EXCLUDED.original_bytes,
            compressed_bytes = EXCLUDED.compressed_bytes,
            compression_ratio = EXCLUDED.compression_ratio,
            last_imported_at = EXCLUDED.last_imported_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("put snapshot archive: %w", err)
	}
	return nil
}
