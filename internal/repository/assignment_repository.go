package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/codepet/classroom-sync-api/internal/models"
)

// AssignmentRepository handles persistence of assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// GetByID returns an assignment by its composite id.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, classroom_id, owner_id, title, max_points, due_date, is_quiz,
        submission_count, graded_count, pending_count, payload, created_at, updated_at
        FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByClassroom returns the assignments of one classroom.
func (r *AssignmentRepository) ListByClassroom(ctx context.Context, classroomID string) ([]models.Assignment, error) {
	const query = `SELECT id, classroom_id, owner_id, title, max_points, due_date, is_quiz,
        submission_count, graded_count, pending_count, payload, created_at, updated_at
        FROM assignments WHERE classroom_id = $1 ORDER BY id`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, classroomID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// UpsertMany merge-upserts assignments in sequential chunks.
func (r *AssignmentRepository) UpsertMany(ctx context.Context, assignments []models.Assignment) (int, int, error) {
	created, updated := 0, 0
	now := time.Now().UTC()
	for start := 0; start < len(assignments); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(assignments) {
			end = len(assignments)
		}
		c, u, err := r.upsertChunk(ctx, assignments[start:end], now)
		if err != nil {
			return created, updated, fmt.Errorf("upsert assignments chunk at %d: %w", start, err)
		}
		created += c
		updated += u
	}
	return created, updated, nil
}

func (r *AssignmentRepository) upsertChunk(ctx context.Context, chunk []models.Assignment, now time.Time) (int, int, error) {
	const cols = 10
	placeholders := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*cols)
	for i, assignment := range chunk {
		base := i * cols
		marks := make([]string, cols)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")
		args = append(args, assignment.ID, assignment.ClassroomID, assignment.OwnerID,
			assignment.Title, assignment.MaxPoints, assignment.DueDate, assignment.IsQuiz,
			assignment.Payload, now, now)
	}

	query := fmt.Sprintf(`INSERT INTO assignments (id, classroom_id, owner_id, title, max_points,
        due_date, is_quiz, payload, created_at, updated_at)
        VALUES %s
        ON CONFLICT (id) DO UPDATE SET
            classroom_id = EXCLUDED.classroom_id,
            owner_id = EXCLUDED.owner_id,
            title = EXCLUDED.title,
            max_points = EXCLUDED.max_points,
            due_date = EXCLUDED.due_date,
            is_quiz = EXCLUDED.is_quiz,
            payload = assignments.payload || EXCLUDED.payload,
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

// RecomputeCounts re-derives the assignment aggregate counters from the
// latest submission rows.
func (r *AssignmentRepository) RecomputeCounts(ctx context.Context, ownerID string) error {
	const query = `UPDATE assignments a SET
        submission_count = (SELECT COUNT(*) FROM submissions s
            WHERE s.assignment_id = a.id AND s.is_latest = true),
        graded_count = (SELECT COUNT(*) FROM submissions s
            WHERE s.assignment_id = a.id AND s.is_latest = true AND s.status IN ($2, $3)),
        pending_count = (SELECT COUNT(*) FROM submissions s
            WHERE s.assignment_id = a.id AND s.is_latest = true AND s.status NOT IN ($2, $3)),
        updated_at = NOW()
        WHERE a.owner_id = $1`
	if _, err := r.db.ExecContext(ctx, query, ownerID,
		models.SubmissionStatusGraded, models.SubmissionStatusReturned); err != nil {
		return fmt.Errorf("recompute assignment counts: %w", err)
	}
	return nil
}
