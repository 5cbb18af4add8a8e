package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/codepet/classroom-sync-api/internal/models"
)

// ImportRunRepository keeps the audit log of finished import runs.
type ImportRunRepository struct {
	db *sqlx.DB
}

// NewImportRunRepository constructs the repository.
func NewImportRunRepository(db *sqlx.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

// Create appends one run record.
func (r *ImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO import_runs (id, owner_id, outcome, short_circuited, stats,
        error_count, duration_ms, created_at)
        VALUES (:id, :owner_id, :outcome, :short_circuited, :stats, :error_count, :duration_ms, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create import run: %w", err)
	}
	return nil
}

// ListByOwner returns the most recent runs for an owner, newest first.
func (r *ImportRunRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]models.ImportRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const query = `SELECT id, owner_id, outcome, short_circuited, stats, error_count,
        duration_ms, created_at
        FROM import_runs WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`
	var runs []models.ImportRun
	if err := r.db.SelectContext(ctx, &runs, query, ownerID, limit); err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	return runs, nil
}
