package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/codepet/classroom-sync-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// GetByID returns an enrollment by its composite id.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, classroom_id, owner_id, student_id, student_name, student_email,
        status, submission_count, graded_count, payload, created_at, updated_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByClassroom returns the enrollments of one classroom.
func (r *EnrollmentRepository) ListByClassroom(ctx context.Context, classroomID string) ([]models.Enrollment, error) {
	const query = `SELECT id, classroom_id, owner_id, student_id, student_name, student_email,
        status, submission_count, graded_count, payload, created_at, updated_at
        FROM enrollments WHERE classroom_id = $1 ORDER BY id`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, classroomID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// UpsertMany merge-upserts enrollments in sequential chunks. Re-imported
// members are flipped back to active.
func (r *EnrollmentRepository) UpsertMany(ctx context.Context, enrollments []models.Enrollment) (int, int, error) {
	created, updated := 0, 0
	now := time.Now().UTC()
	for start := 0; start < len(enrollments); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(enrollments) {
			end = len(enrollments)
		}
		c, u, err := r.upsertChunk(ctx, enrollments[start:end], now)
		if err != nil {
			return created, updated, fmt.Errorf("upsert enrollments chunk at %d: %w", start, err)
		}
		created += c
		updated += u
	}
	return created, updated, nil
}

func (r *EnrollmentRepository) upsertChunk(ctx context.Context, chunk []models.Enrollment, now time.Time) (int, int, error) {
	const cols = 10
	placeholders := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*cols)
	for i, e := range chunk {
		base := i * cols
		marks := make([]string, cols)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")
		args = append(args, e.ID, e.ClassroomID, e.OwnerID, e.StudentID, e.StudentName,
			e.StudentEmail, e.Status, e.Payload, now, now)
	}

	query := fmt.Sprintf(`INSERT INTO enrollments (id, classroom_id, owner_id, student_id,
        student_name, student_email, status, payload, created_at, updated_at)
        VALUES %s
        ON CONFLICT (id) DO UPDATE SET
            classroom_id = EXCLUDED.classroom_id,
            owner_id = EXCLUDED.owner_id,
            student_name = EXCLUDED.student_name,
            student_email = EXCLUDED.student_email,
            status = EXCLUDED.status,
            payload = enrollments.payload || EXCLUDED.payload,
            updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0) AS inserted`, strings.Join(placeholders, ", "))

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

// MarkRemovedExcept transitions active enrollments absent from the current
// snapshot to removed. Nothing is hard-deleted.
func (r *EnrollmentRepository) MarkRemovedExcept(ctx context.Context, ownerID string, keepIDs []string) (int64, error) {
	const query = `UPDATE enrollments SET status = $2, updated_at = NOW()
        WHERE owner_id = $1 AND status = $3 AND NOT (id = ANY($4))`
	res, err := r.db.ExecContext(ctx, query, ownerID, models.EnrollmentStatusRemoved,
		models.EnrollmentStatusActive, pq.Array(keepIDs))
	if err != nil {
		return 0, fmt.Errorf("mark removed enrollments: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("removed enrollments affected: %w", err)
	}
	return affected, nil
}

// RecomputeCounts re-derives per-enrollment submission counters from the
// latest submission rows.
func (r *EnrollmentRepository) RecomputeCounts(ctx context.Context, ownerID string) error {
	const query = `UPDATE enrollments e SET
        submission_count = (SELECT COUNT(*) FROM submissions s
            WHERE s.classroom_id = e.classroom_id AND s.student_id = e.student_id AND s.is_latest = true),
        graded_count = (SELECT COUNT(*) FROM submissions s
            WHERE s.classroom_id = e.classroom_id AND s.student_id = e.student_id
              AND s.is_latest = true AND s.status IN ($2, $3)),
        updated_at = NOW()
        WHERE e.owner_id = $1`
	if _, err := r.db.ExecContext(ctx, query, ownerID,
		models.SubmissionStatusGraded, models.SubmissionStatusReturned); err != nil {
		return fmt.Errorf("recompute enrollment counts: %w", err)
	}
	return nil
}
