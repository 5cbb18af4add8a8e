package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/codepet/classroom-sync-api/internal/mapper"
	"github.com/codepet/classroom-sync-api/internal/models"
)

const submissionColumns = `id, assignment_id, classroom_id, owner_id, student_id, student_name,
        student_email, status, version, is_latest, previous_version_id, content_hash,
        submitted_at, payload, created_at, updated_at`

// SubmissionRepository handles persistence of versioned submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// GetByID returns a submission document by id.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE id = $1`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListByAssignment returns every document (all versions) for one assignment.
func (r *SubmissionRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE assignment_id = $1 ORDER BY id`, submissionColumns)
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// GetLatest returns the current version for one (assignment, student) pair.
func (r *SubmissionRepository) GetLatest(ctx context.Context, assignmentID, studentID string) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions
        WHERE assignment_id = $1 AND student_id = $2 AND is_latest = true`, submissionColumns)
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, assignmentID, studentID); err != nil {
		return nil, err
	}
	return &submission, nil
}

// ListLatestByAssignmentIDs returns the latest submission per lineage for the
// given assignments, keyed by models.SubmissionKey. The id list is split into groups of
// at most the store's equality-list ceiling; groups are read concurrently
// and merged, since reads are order-independent.
func (r *SubmissionRepository) ListLatestByAssignmentIDs(ctx context.Context, assignmentIDs []string) (map[string]models.Submission, error) {
	result := make(map[string]models.Submission)
	chunks := chunkStrings(assignmentIDs, maxInListIDs)
	if len(chunks) == 0 {
		return result, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	for _, chunk := range chunks {
		wg.Add(1)
		go func(ids []string) {
			defer wg.Done()
			subs, err := r.listLatestChunk(ctx, ids)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, sub := range subs {
				result[models.SubmissionKey(sub.AssignmentID, sub.StudentID)] = sub
			}
		}(chunk)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("list latest submissions: %w", firstErr)
	}
	return result, nil
}

func (r *SubmissionRepository) listLatestChunk(ctx context.Context, assignmentIDs []string) ([]models.Submission, error) {
	placeholders := make([]string, len(assignmentIDs))
	args := make([]interface{}, len(assignmentIDs))
	for i, id := range assignmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM submissions
        WHERE assignment_id IN (%s) AND is_latest = true`,
		submissionColumns, strings.Join(placeholders, ","))

	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, args...); err != nil {
		return nil, err
	}
	return submissions, nil
}

// UpsertMany merge-upserts submission documents in sequential chunks. The
// version bookkeeping columns are never touched on conflict; version
// transitions go through CreateVersion.
func (r *SubmissionRepository) UpsertMany(ctx context.Context, submissions []models.Submission) (int, int, error) {
	created, updated := 0, 0
	now := time.Now().UTC()
	for start := 0; start < len(submissions); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(submissions) {
			end = len(submissions)
		}
		c, u, err := r.upsertChunk(ctx, submissions[start:end], now)
		if err != nil {
			return created, updated, fmt.Errorf("upsert submissions chunk at %d: %w", start, err)
		}
		created += c
		updated += u
	}
	return created, updated, nil
}

func (r *SubmissionRepository) upsertChunk(ctx context.Context, chunk []models.Submission, now time.Time) (int, int, error) {
	const cols = 16
	placeholders := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*cols)
	for i, s := range chunk {
		base := i * cols
		marks := make([]string, cols)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")
		args = append(args, s.ID, s.AssignmentID, s.ClassroomID, s.OwnerID, s.StudentID,
			s.StudentName, s.StudentEmail, s.Status, s.Version, s.IsLatest,
			s.PreviousVersionID, s.ContentHash, s.SubmittedAt, s.Payload, now, now)
	}

	query := fmt.Sprintf(`INSERT INTO submissions (%s)
        VALUES %s
        ON CONFLICT (id) DO UPDATE SET
            student_name = EXCLUDED.student_name,
            student_email = EXCLUDED.student_email,
            status = EXCLUDED.status,
            content_hash = EXCLUDED.content_hash,
            submitted_at = EXCLUDED.submitted_at,
            payload = submissions.payload || EXCLUDED.payload,
            updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0) AS inserted`, submissionColumns, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	created, updated := 0, 0
	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return created, updated, fmt.Errorf("scan upsert result: %w", err)
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}
	return created, updated, rows.Err()
}

// CreateVersion atomically retires the current latest document of a lineage
// and inserts the incoming submission as the next version. The transaction
// guarantees at most one is_latest row per (assignment, student) pair even
// under concurrent writers.
func (r *SubmissionRepository) CreateVersion(ctx context.Context, incoming models.Submission) (*models.Submission, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin version transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var prev struct {
		ID      string `db:"id"`
		Version int    `db:"version"`
	}
	err = tx.GetContext(ctx, &prev, `SELECT id, version FROM submissions
        WHERE assignment_id = $1 AND student_id = $2 AND is_latest = true FOR UPDATE`,
		incoming.AssignmentID, incoming.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no latest submission for %s/%s", incoming.AssignmentID, incoming.StudentID)
		}
		return nil, fmt.Errorf("lock latest submission: %w", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE submissions SET is_latest = false, updated_at = $2 WHERE id = $1`,
		prev.ID, now); err != nil {
		return nil, fmt.Errorf("retire previous version: %w", err)
	}

	next := incoming
	next.Version = prev.Version + 1
	next.ID = mapper.SubmissionVersionID(incoming.ID, next.Version)
	next.PreviousVersionID = &prev.ID
	next.IsLatest = true
	next.CreatedAt = now
	next.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO submissions (%s)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`, submissionColumns)
	if _, err := tx.ExecContext(ctx, query, next.ID, next.AssignmentID, next.ClassroomID,
		next.OwnerID, next.StudentID, next.StudentName, next.StudentEmail, next.Status,
		next.Version, next.IsLatest, next.PreviousVersionID, next.ContentHash,
		next.SubmittedAt, next.Payload, now, now); err != nil {
		return nil, fmt.Errorf("insert new version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit version transaction: %w", err)
	}
	return &next, nil
}
