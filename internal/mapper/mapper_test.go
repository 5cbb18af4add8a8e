package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepet/classroom-sync-api/internal/models"
	"github.com/codepet/classroom-sync-api/internal/schema"
)

func TestCompositeIDs(t *testing.T) {
	assert.Equal(t, "c1", ClassroomID("c1"))
	assert.Equal(t, "c1_a1", AssignmentID("c1", "a1"))
	assert.Equal(t, "c1_a1_s1", SubmissionID("c1", "a1", "s1"))
	assert.Equal(t, "c1_stu1", EnrollmentID("c1", "stu1"))
}

func TestSubmissionVersionID(t *testing.T) {
	assert.Equal(t, "c1_a1_s1", SubmissionVersionID("c1_a1_s1", 1))
	assert.Equal(t, "c1_a1_s1", SubmissionVersionID("c1_a1_s1", 0))
	assert.Equal(t, "c1_a1_s1_v2", SubmissionVersionID("c1_a1_s1", 2))
	assert.Equal(t, "c1_a1_s1_v7", SubmissionVersionID("c1_a1_s1", 7))
}

func optimizedResult() *schema.Result {
	due := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	return &schema.Result{
		Kind: schema.KindOptimized,
		Optimized: &models.OptimizedSnapshot{
			Teacher:          models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
			SnapshotMetadata: models.SnapshotMetadata{Source: "classroom", Version: "2.0"},
			Entities: &models.SnapshotEntities{
				Classrooms: []models.ClassroomInput{
					{ID: "c1", Name: "Physics", Section: "A", Room: "101"},
				},
				Assignments: []models.AssignmentInput{
					{ID: "a1", CourseID: "c1", Title: "Lab 1", MaxPoints: 50, DueDate: &due},
					{ID: "a2", CourseID: "c1", Title: "Quiz 1", QuizData: &models.QuizData{FormID: "f1", IsQuiz: true}},
				},
				Submissions: []models.SubmissionInput{
					{ID: "s1", CourseID: "c1", CourseWorkID: "a1", StudentID: "stu1", Status: "turned_in"},
				},
				Enrollments: []models.EnrollmentInput{
					{CourseID: "c1", UserID: "stu1", Name: "Sam", Email: "sam@school.edu"},
				},
			},
		},
	}
}

func legacyResult() *schema.Result {
	due := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	return &schema.Result{
		Kind: schema.KindLegacy,
		Legacy: &models.LegacySnapshot{
			Teacher:          models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
			SnapshotMetadata: models.SnapshotMetadata{Source: "classroom", Version: "1.0"},
			Classrooms: []models.LegacyClassroom{
				{
					ClassroomInput: models.ClassroomInput{ID: "c1", Name: "Physics", Section: "A", Room: "101"},
					Assignments: []models.AssignmentInput{
						{ID: "a1", Title: "Lab 1", MaxPoints: 50, DueDate: &due},
						{ID: "a2", Title: "Quiz 1", QuizData: &models.QuizData{FormID: "f1", IsQuiz: true}},
					},
					Submissions: []models.SubmissionInput{
						{ID: "s1", CourseWorkID: "a1", StudentID: "stu1", Status: "turned_in"},
					},
					Enrollments: []models.EnrollmentInput{
						{UserID: "stu1", Name: "Sam", Email: "sam@school.edu"},
					},
				},
			},
		},
	}
}

func TestMapOptimized(t *testing.T) {
	ents := Map(optimizedResult(), "owner-1")

	require.Len(t, ents.Classrooms, 1)
	room := ents.Classrooms[0]
	assert.Equal(t, "c1", room.ID)
	assert.Equal(t, "owner-1", room.OwnerID)
	assert.Equal(t, "101", room.Payload["room"])

	require.Len(t, ents.Assignments, 2)
	assert.Equal(t, "c1_a1", ents.Assignments[0].ID)
	assert.Equal(t, float64(50), ents.Assignments[0].MaxPoints)
	assert.False(t, ents.Assignments[0].IsQuiz)
	assert.True(t, ents.Assignments[1].IsQuiz)

	require.Len(t, ents.Submissions, 1)
	sub := ents.Submissions[0]
	assert.Equal(t, "c1_a1_s1", sub.ID)
	assert.Equal(t, "c1_a1", sub.AssignmentID)
	assert.Equal(t, 1, sub.Version)
	assert.True(t, sub.IsLatest)
	assert.NotEmpty(t, sub.ContentHash)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)

	require.Len(t, ents.Enrollments, 1)
	assert.Equal(t, "c1_stu1", ents.Enrollments[0].ID)
	assert.Equal(t, models.EnrollmentStatusActive, ents.Enrollments[0].Status)
}

// Both schema generations must map to the same entity set so the diff and
// the persistence layer never see a generation difference.
func TestMapLegacyMatchesOptimized(t *testing.T) {
	fromOptimized := Map(optimizedResult(), "owner-1")
	fromLegacy := Map(legacyResult(), "owner-1")

	assert.Equal(t, fromOptimized.Classrooms, fromLegacy.Classrooms)
	assert.Equal(t, fromOptimized.Assignments, fromLegacy.Assignments)
	assert.Equal(t, fromOptimized.Submissions, fromLegacy.Submissions)
	assert.Equal(t, fromOptimized.Enrollments, fromLegacy.Enrollments)
}

func TestMapAssignmentDefaultsMaxPoints(t *testing.T) {
	res := optimizedResult()
	res.Optimized.Entities.Assignments[0].MaxPoints = 0

	ents := Map(res, "owner-1")
	assert.Equal(t, float64(models.DefaultMaxPoints), ents.Assignments[0].MaxPoints)
}

func TestSubmissionContentHashIgnoresVolatileFields(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	base := models.SubmissionInput{
		ID: "s1", CourseID: "c1", CourseWorkID: "a1", StudentID: "stu1",
		Status: "turned_in", Content: "answer", SubmittedAt: &at,
	}
	other := base
	other.StudentName = "Renamed Student"
	other.AlternateLink = "https://elsewhere"

	assert.Equal(t, submissionContentHash(base), submissionContentHash(other))

	changed := base
	changed.Content = "revised answer"
	assert.NotEqual(t, submissionContentHash(base), submissionContentHash(changed))
}
