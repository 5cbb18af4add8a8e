package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepet/classroom-sync-api/internal/mapper"
	"github.com/codepet/classroom-sync-api/internal/models"
)

func sampleEntities() *mapper.Entities {
	return &mapper.Entities{
		Classrooms: []models.Classroom{
			{ID: "c2", OwnerID: "owner-1", Name: "Chemistry", Payload: models.Attributes{"room": "202"}},
			{ID: "c1", OwnerID: "owner-1", Name: "Physics", Payload: models.Attributes{"room": "101"}},
		},
		Assignments: []models.Assignment{
			{ID: "c1_a1", ClassroomID: "c1", OwnerID: "owner-1", Title: "Lab 1", MaxPoints: 50},
		},
		Submissions: []models.Submission{
			{ID: "c1_a1_s1", AssignmentID: "c1_a1", OwnerID: "owner-1", StudentID: "stu1",
				Status: models.SubmissionStatusSubmitted, ContentHash: "abc", Version: 1, IsLatest: true},
		},
		Enrollments: []models.Enrollment{
			{ID: "c1_stu1", ClassroomID: "c1", OwnerID: "owner-1", StudentID: "stu1",
				Status: models.EnrollmentStatusActive},
		},
	}
}

func buildSample(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := Build(
		models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
		models.SnapshotMetadata{Source: "classroom", Version: "2.0"},
		sampleEntities(),
	)
	require.NoError(t, err)
	return snap
}

func TestBuildSortsCollectionsByID(t *testing.T) {
	snap := buildSample(t)

	require.Len(t, snap.Classrooms, 2)
	assert.Equal(t, "c1", snap.Classrooms[0].ID)
	assert.Equal(t, "c2", snap.Classrooms[1].ID)
}

// Build round-trips through JSON, so numeric fields must land in the JSON
// type domain and compare equal to records parsed back out of an archive.
func TestBuildNormalizesTypeDomain(t *testing.T) {
	snap := buildSample(t)

	raw, err := snap.Marshal()
	require.NoError(t, err)
	parsed, err := Parse(raw)
	require.NoError(t, err)

	assert.True(t, Diff(parsed, snap).Empty())
	assert.True(t, Diff(snap, parsed).Empty())
}

func TestMarshalIsDeterministic(t *testing.T) {
	a := buildSample(t)
	b := buildSample(t)

	rawA, err := a.Marshal()
	require.NoError(t, err)
	rawB, err := b.Marshal()
	require.NoError(t, err)

	assert.Equal(t, rawA, rawB)
}

func TestDiffSelfIsEmpty(t *testing.T) {
	snap := buildSample(t)
	diff := Diff(snap, snap)
	assert.True(t, diff.Empty())
}

func TestDiffDetectsFieldChange(t *testing.T) {
	old := buildSample(t)

	ents := sampleEntities()
	ents.Classrooms[1].Name = "Advanced Physics"
	curr, err := Build(
		models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
		models.SnapshotMetadata{Source: "classroom", Version: "2.0"},
		ents,
	)
	require.NoError(t, err)

	diff := Diff(old, curr)
	assert.False(t, diff.Empty())
	require.Len(t, diff.Classrooms.Modified, 1)

	changes := diff.Classrooms.Modified["c1"]
	require.Len(t, changes, 1)
	assert.Equal(t, "name", changes[0].Field)
	assert.Equal(t, "Physics", changes[0].Old)
	assert.Equal(t, "Advanced Physics", changes[0].New)

	assert.True(t, diff.Assignments.Empty())
	assert.True(t, diff.Submissions.Empty())
	assert.True(t, diff.Enrollments.Empty())
}

func TestDiffDetectsAddedAndRemoved(t *testing.T) {
	old := buildSample(t)

	ents := sampleEntities()
	ents.Classrooms = ents.Classrooms[:1] // drop c1, keep c2
	ents.Assignments = append(ents.Assignments, models.Assignment{
		ID: "c2_a9", ClassroomID: "c2", OwnerID: "owner-1", Title: "New work", MaxPoints: 100,
	})
	curr, err := Build(
		models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
		models.SnapshotMetadata{Source: "classroom", Version: "2.0"},
		ents,
	)
	require.NoError(t, err)

	diff := Diff(old, curr)
	assert.Equal(t, []string{"c1"}, diff.Classrooms.Removed)
	assert.Equal(t, []string{"c2_a9"}, diff.Assignments.Added)
}

// Volatile metadata never reaches the canonical form, so two snapshots that
// differ only by fetch time remain identical.
func TestCanonicalIgnoresVolatileMetadata(t *testing.T) {
	a, err := Build(
		models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
		models.SnapshotMetadata{
			FetchedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
			ExpiresAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			Source:    "classroom",
			Version:   "2.0",
		},
		sampleEntities(),
	)
	require.NoError(t, err)

	b, err := Build(
		models.TeacherInfo{Name: "Jane Roe", Email: "jane@school.edu"},
		models.SnapshotMetadata{
			FetchedAt: time.Date(2026, 4, 2, 14, 30, 0, 0, time.UTC),
			ExpiresAt: time.Date(2026, 4, 2, 15, 30, 0, 0, time.UTC),
			Source:    "classroom",
			Version:   "2.0",
		},
		sampleEntities(),
	)
	require.NoError(t, err)

	rawA, _ := a.Marshal()
	rawB, _ := b.Marshal()
	assert.Equal(t, rawA, rawB)
	assert.True(t, Diff(a, b).Empty())
}
