package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/codepet/classroom-sync-api/internal/models"
)

// ClassroomRepository handles persistence of classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// GetByID returns a classroom by its composite id.
func (r *ClassroomRepository) GetByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, owner_id, name, section, student_count, assignment_count,
        active_submissions, ungraded_submissions, payload, created_at, updated_at
        FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// ListByOwner returns all classrooms belonging to an owner.
func (r *ClassroomRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Classroom, error) {
	const query = `SELECT id, owner_id, name, section, student_count, assignment_count,
        active_submissions, ungraded_submissions, payload, created_at, updated_at
        FROM classrooms WHERE owner_id = $1 ORDER BY id`
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, ownerID); err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return classrooms, nil
}

// Upsert creates or merge-updates a single classroom.
func (r *ClassroomRepository) Upsert(ctx context.Context, classroom *models.Classroom) (bool, error) {
	created, _, err := r.UpsertMany(ctx, []models.Classroom{*classroom})
	if err != nil {
		return false, err
	}
	return created == 1, nil
}

// UpsertMany merge-upserts classrooms in sequential chunks of at most the
// store's batch ceiling. A chunk failure leaves earlier chunks committed.
func (r *ClassroomRepository) UpsertMany(ctx context.Context, classrooms []models.Classroom) (int, int, error) {
	created, updated := 0, 0
	now := time.Now().UTC()
	for start := 0; start < len(classrooms); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(classrooms) {
			end = len(classrooms)
		}
		c, u, err := r.upsertChunk(ctx, classrooms[start:end], now)
		if err != nil {
			return created, updated, fmt.Errorf("upsert classrooms chunk at %d: %w", start, err)
		}
		created += c
		updated += u
	}
	return created, updated, nil
}

func (r *ClassroomRepository) upsertChunk(ctx context.Context, chunk []models.Classroom, now time.Time) (int, int, error) {
	const cols = 7
	placeholders := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*cols)
	for i, classroom := range chunk {
		base := i * cols
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args, classroom.ID, classroom.OwnerID, classroom.Name, classroom.Section,
			classroom.Payload, now, now)
	}

	query := fmt.Sprintf(`INSERT INTO classrooms (id, owner_id, name, section, payload, created_at, updated_at)
        VALUES %s
        ON CONFLICT (id) DO UPDATE SET
            owner_id = EXCLUDED.owner_id,
            name = EXCLUDED.name,
            section = EXCLUDED.section,
            payload = classrooms.payload || EXCLUDED.payload,
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

// RecomputeCounts re-derives the classroom aggregate counters from child
// rows. Counters are never incremented speculatively.
func (r *ClassroomRepository) RecomputeCounts(ctx context.Context, ownerID string) error {
	const query = `UPDATE classrooms c SET
        student_count = (SELECT COUNT(*) FROM enrollments e
            WHERE e.classroom_id = c.id AND e.status = $2),
        assignment_count = (SELECT COUNT(*) FROM assignments a
            WHERE a.classroom_id = c.id),
        active_submissions = (SELECT COUNT(*) FROM submissions s
            WHERE s.classroom_id = c.id AND s.is_latest = true),
        ungraded_submissions = (SELECT COUNT(*) FROM submissions s
            WHERE s.classroom_id = c.id AND s.is_latest = true AND s.status NOT IN ($3, $4)),
        updated_at = NOW()
        WHERE c.owner_id = $1`
	if _, err := r.db.ExecContext(ctx, query, ownerID, models.EnrollmentStatusActive,
		models.SubmissionStatusGraded, models.SubmissionStatusReturned); err != nil {
		return fmt.Errorf("recompute classroom counts: %w", err)
	}
	return nil
}
